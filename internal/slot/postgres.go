package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/staffdir/internal/config"
)

// DBTX is the subset of pgx shared by pools, connections and transactions.
// pgxmock pools satisfy it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const postgresSchema = `CREATE TABLE IF NOT EXISTS kv_slots (
	key        text PRIMARY KEY,
	value      jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

const (
	postgresGet = `SELECT value::text FROM kv_slots WHERE key = $1`
	postgresSet = `INSERT INTO kv_slots (key, value, updated_at) VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// Postgres stores slots as jsonb rows.
type Postgres struct {
	db    DBTX
	close func()
}

// NewPostgres wraps an existing connection. The caller owns its lifetime.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db, close: func() {}}
}

// BuildPoolConfig maps storage settings onto a pgxpool config.
func BuildPoolConfig(cfg config.StorageConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("slot: parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	return poolCfg, nil
}

// OpenPostgres connects a pool, pings it and ensures the kv_slots table.
func OpenPostgres(ctx context.Context, cfg config.StorageConfig) (*Postgres, error) {
	poolCfg, err := BuildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("slot: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("slot: ping: %w", err)
	}

	p := &Postgres{db: pool, close: pool.Close}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates kv_slots when missing. cmd/migrate manages the same
// table for deployments that prefer explicit migrations.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("slot: init postgres schema: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	var value string
	err := p.db.QueryRow(ctx, postgresGet, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("slot: read %s: %w", key, err)
	}
	return []byte(value), nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, postgresSet, key, string(value)); err != nil {
		return fmt.Errorf("slot: write %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.close()
	return nil
}
