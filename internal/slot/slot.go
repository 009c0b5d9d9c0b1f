// Package slot provides durable key/value slots that survive restarts.
//
// The employee store keeps its whole collection serialized under a single
// key, so a slot only needs whole-value reads and writes. Drivers:
//
//   - memory:   process-local map, used by tests and throwaway runs
//   - file:     one file per key inside a directory, replaced atomically
//   - sqlite:   a kv table in a local database file (pure Go driver)
//   - postgres: a kv_slots table reached through a pgx pool
package slot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/staffdir/internal/config"
)

// ErrNotFound is returned by Get when nothing has been stored under the key.
var ErrNotFound = errors.New("slot: key not found")

// Slot reads and writes whole values by key.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open returns the driver selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Slot, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverFile, "":
		return NewFile(cfg.Path)
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("slot: unknown driver %q", cfg.Driver)
	}
}

func validKey(key string) error {
	if key == "" {
		return errors.New("slot: empty key")
	}
	return nil
}
