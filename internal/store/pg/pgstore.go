package pg

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fbms.app/internal/auth"
	"fbms.app/internal/config"
	"fbms.app/internal/inventory"
	"fbms.app/internal/project"
)

// Store is the PostgreSQL implementation of the account, permission,
// inventory and project stores.
type Store struct {
	db *sql.DB
}

var (
	_ auth.AccountStore        = (*Store)(nil)
	_ auth.PathPermissionStore = (*Store)(nil)
	_ inventory.Service        = (*Store)(nil)
	_ project.Service          = (*Store)(nil)
)

// Open connects through the pgx stdlib driver and applies the pool settings.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("pgx", cfg.ConnString())
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	return s.db.PingContext(ctx)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
