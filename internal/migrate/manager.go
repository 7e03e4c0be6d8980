package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"fbms.app/internal/obs"
)

const defaultSeedsTable = "schema_seeds"

//go:embed sql/*.sql
var migrationFS embed.FS

//go:embed seeds/*.sql
var seedFS embed.FS

// Status describes one schema migration.
type Status struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Manager applies the embedded goose migrations and the idempotent seed files.
type Manager struct {
	db         *sql.DB
	provider   *goose.Provider
	seeds      fs.FS
	seedsTable string
}

// Option configures Manager.
type Option func(*managerOptions)

type managerOptions struct {
	migrations fs.FS
	seeds      fs.FS
	seedsTable string
}

// WithSeedsTable overrides the default seeds bookkeeping table.
func WithSeedsTable(name string) Option {
	return func(o *managerOptions) {
		if name != "" {
			o.seedsTable = name
		}
	}
}

// WithMigrations replaces the embedded migrations.
func WithMigrations(fsys fs.FS) Option {
	return func(o *managerOptions) { o.migrations = fsys }
}

// WithSeeds replaces the embedded seeds.
func WithSeeds(fsys fs.FS) Option {
	return func(o *managerOptions) { o.seeds = fsys }
}

// NewManager constructs a Manager over db.
func NewManager(db *sql.DB, opts ...Option) (*Manager, error) {
	migrations, err := fs.Sub(migrationFS, "sql")
	if err != nil {
		return nil, err
	}
	seeds, err := fs.Sub(seedFS, "seeds")
	if err != nil {
		return nil, err
	}
	o := managerOptions{migrations: migrations, seeds: seeds, seedsTable: defaultSeedsTable}
	for _, opt := range opts {
		opt(&o)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, o.migrations)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Manager{db: db, provider: provider, seeds: o.seeds, seedsTable: o.seedsTable}, nil
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	for _, r := range results {
		obs.Logger().Info().
			Str("migration", r.Source.Path).
			Dur("duration", r.Duration).
			Msg("migration applied")
	}
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent applied migration.
func (m *Manager) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	if r != nil && r.Source != nil {
		obs.Logger().Info().Str("migration", r.Source.Path).Msg("migration rolled back")
	}
	return nil
}

// Status returns every known migration in version order.
func (m *Manager) Status(ctx context.Context) ([]Status, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, Status{
			Version:   st.Source.Version,
			Name:      st.Source.Path,
			Applied:   st.State == goose.StateApplied,
			AppliedAt: st.AppliedAt,
		})
	}
	return out, nil
}

// Seed applies seed files that have not been recorded yet. Each file runs in
// its own transaction together with its bookkeeping row.
func (m *Manager) Seed(ctx context.Context) error {
	if err := m.ensureSeedsTable(ctx); err != nil {
		return err
	}
	executed, err := m.listExecuted(ctx)
	if err != nil {
		return err
	}
	files, err := collectSQL(m.seeds)
	if err != nil {
		return err
	}
	for _, name := range files {
		if executed[name] {
			continue
		}
		if err := m.applySeed(ctx, name); err != nil {
			return fmt.Errorf("apply seed %s: %w", name, err)
		}
		obs.Logger().Info().Str("seed", name).Msg("seed applied")
	}
	return nil
}

func (m *Manager) ensureSeedsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		create table if not exists %s (
			name text primary key,
			applied_at timestamptz not null default now()
		)`, m.seedsTable))
	return err
}

func (m *Manager) applySeed(ctx context.Context, name string) error {
	body, err := fs.ReadFile(m.seeds, name)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(body)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`insert into %s (name, applied_at) values ($1, $2)`, m.seedsTable),
		name, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) listExecuted(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s`, m.seedsTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		result[name] = true
	}
	return result, rows.Err()
}

func collectSQL(fsys fs.FS) ([]string, error) {
	if fsys == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// splitStatements splits SQL on semicolons outside single-quoted strings.
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	var inString bool
	for _, r := range sql {
		current.WriteRune(r)
		switch r {
		case '\'':
			inString = !inString
		case ';':
			if !inString {
				stmts = append(stmts, current.String())
				current.Reset()
			}
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		stmts = append(stmts, current.String())
	}
	return stmts
}
