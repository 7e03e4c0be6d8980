package pg

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"fbms.app/internal/project"
)

const clientColumns = `client_id, first_name, last_name, country, company, email, contact_nu`

func scanClient(row rowScanner) (project.Client, error) {
	var c project.Client
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Country, &c.Company, &c.Email, &c.ContactNumber)
	return c, err
}

func (s *Store) CreateClient(ctx context.Context, c project.Client) (project.Client, error) {
	if err := c.Validate(); err != nil {
		return project.Client{}, err
	}
	created, err := scanClient(s.db.QueryRowContext(ctx, `
		insert into clients (client_id, first_name, last_name, country, company, email, contact_nu)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+clientColumns,
		c.ID, c.FirstName, c.LastName, c.Country, c.Company, c.Email, c.ContactNumber))
	if err != nil {
		if isPgCode(err, pgErrUniqueViolation) {
			return project.Client{}, project.ErrConflict
		}
		return project.Client{}, err
	}
	return created, nil
}

func (s *Store) ListClients(ctx context.Context) ([]project.Client, error) {
	rows, err := s.db.QueryContext(ctx, `select `+clientColumns+` from clients order by client_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []project.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SuggestClients matches the query against first name or company, case-insensitively.
func (s *Store) SuggestClients(ctx context.Context, query string) ([]project.ClientSuggestion, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	sqlStr, args, err := psql.
		Select("client_id", "first_name", "company", "country").
		From("clients").
		Where(sq.Or{
			sq.ILike{"first_name": pattern},
			sq.ILike{"company": pattern},
		}).
		OrderBy("first_name", "client_id").
		Limit(project.MaxSuggestions).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build suggestion query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []project.ClientSuggestion{}
	for rows.Next() {
		var c project.ClientSuggestion
		if err := rows.Scan(&c.ID, &c.FirstName, &c.Company, &c.Country); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
