package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"fbms.app/internal/auth"
)

// accountColumns and scanAccount must stay in step.
const accountColumns = `id, email, password_hash, role, permission, coalesce(current_token, ''), created_at`

func scanAccount(row rowScanner) (auth.Account, error) {
	var acc auth.Account
	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.PasswordHash,
		&acc.Role,
		&acc.Active,
		&acc.CurrentToken,
		&acc.CreatedAt,
	)
	return acc, err
}

func (s *Store) CreateAccount(ctx context.Context, in auth.NewAccount) (auth.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into accounts (email, password_hash, role, permission)
		values ($1, $2, $3, $4)
		returning `+accountColumns,
		normalizeEmail(in.Email), in.PasswordHash, in.Role, in.Active)
	acc, err := scanAccount(row)
	if err != nil {
		if isPgCode(err, pgErrUniqueViolation) {
			return auth.Account{}, auth.ErrConflict
		}
		return auth.Account{}, err
	}
	return acc, nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (auth.Account, error) {
	acc, err := scanAccount(s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where email = $1`, normalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, auth.ErrNotFound
	}
	return acc, err
}

func (s *Store) AccountByIDAndEmail(ctx context.Context, id int64, email string) (auth.Account, error) {
	acc, err := scanAccount(s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id = $1 and email = $2`, id, normalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, auth.ErrAccountNotFound
	}
	return acc, err
}

func (s *Store) ListAccounts(ctx context.Context) ([]auth.Account, error) {
	rows, err := s.db.QueryContext(ctx, `select `+accountColumns+` from accounts order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (s *Store) SetCurrentToken(ctx context.Context, id int64, token string) error {
	return s.execOne(ctx, `update accounts set current_token = $2 where id = $1`, id, nullIfEmpty(token))
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return s.execOne(ctx, `update accounts set password_hash = $2 where id = $1`, id, hash)
}

func (s *Store) SetPermission(ctx context.Context, id int64, active bool) error {
	return s.execOne(ctx, `update accounts set permission = $2, current_token = null where id = $1`, id, active)
}

func (s *Store) AllowedPaths(ctx context.Context, role string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select path from role_path_permissions where role = $1 order by path`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// execOne runs an account update and maps zero affected rows to auth.ErrNotFound.
func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
