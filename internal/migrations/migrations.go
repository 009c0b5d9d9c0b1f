// Package migrations holds the versioned postgres schema for the slot
// table and runs it with golang-migrate. The postgres slot also creates the
// table on open, so migrations are only required where the app role cannot
// run DDL.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var files embed.FS

// Actions accepted by Run.
const (
	ActionUp      = "up"
	ActionDown    = "down"
	ActionDrop    = "drop"
	ActionVersion = "version"
)

// ErrUnknownAction is returned for an action Run does not support.
var ErrUnknownAction = errors.New("unsupported migration action")

// Source returns the embedded migration files as a golang-migrate source.
func Source() (source.Driver, error) {
	return iofs.New(files, ".")
}

// Runner is the part of *migrate.Migrate that Run drives.
type Runner interface {
	Up() error
	Down() error
	Drop() error
	Version() (uint, bool, error)
}

// New opens a migrator for databaseURL over the embedded files.
func New(databaseURL string) (*migrate.Migrate, error) {
	src, err := Source()
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// Run applies action. Having nothing to migrate is not an error.
func Run(m Runner, action string) error {
	switch action {
	case ActionUp:
		return ignoreNoChange(m.Up())
	case ActionDown:
		return ignoreNoChange(m.Down())
	case ActionDrop:
		return m.Drop()
	case ActionVersion:
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			slog.Info("no migration applied")
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("schema version", "version", version, "dirty", dirty)
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, action)
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
