package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"fbms.app/internal/project"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const projectSelect = `
	select p.proj_id, p.proj_name, p.start_date, p.end_date, p.status, p.remarks, p.client_id,
	       c.first_name, c.company, c.country
	from projects p
	left join clients c on c.client_id = p.client_id`

func scanProject(row rowScanner) (project.Project, error) {
	var p project.Project
	var clientID, first, company, country sql.NullString
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.StartDate,
		&p.EndDate,
		&p.Status,
		&p.Remarks,
		&clientID,
		&first,
		&company,
		&country,
	); err != nil {
		return project.Project{}, err
	}
	p.ClientID = nullableString(clientID)
	p.ClientFirstName = nullableString(first)
	p.ClientCompany = nullableString(company)
	p.ClientCountry = nullableString(country)
	return p, nil
}

// projectWriteError maps constraint violations raised by project writes.
func projectWriteError(err error) error {
	pgErr, ok := maybePgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return project.ErrConflict
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: client does not exist", project.ErrInvalidInput)
	case pgErrCheckViolation:
		return fmt.Errorf("%w: end_date precedes start_date", project.ErrInvalidInput)
	}
	return err
}

func appendBreakdown(ctx context.Context, tx *sql.Tx, projectID int64, description string) error {
	_, err := tx.ExecContext(ctx,
		`insert into proj_breakdown (proj_id, description) values ($1, $2)`, projectID, description)
	return err
}

func (s *Store) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	if err := p.Validate(); err != nil {
		return project.Project{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return project.Project{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into projects (proj_id, proj_name, start_date, end_date, status, remarks, client_id)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.StartDate, p.EndDate, p.Status, p.Remarks, p.ClientID); err != nil {
		return project.Project{}, projectWriteError(err)
	}
	if err := appendBreakdown(ctx, tx, p.ID, project.CreatedSummary(p)); err != nil {
		return project.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return project.Project{}, err
	}
	return s.GetProject(ctx, p.ID)
}

func (s *Store) GetProject(ctx context.Context, id int64) (project.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		projectSelect+` where p.proj_id = $1 and p.deleted_at is null`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return project.Project{}, project.ErrNotFound
	}
	return p, err
}

func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		projectSelect+` where p.deleted_at is null order by p.start_date desc, p.proj_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []project.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProject writes only the fields set on u.
func (s *Store) UpdateProject(ctx context.Context, id int64, u project.Update) (project.Project, error) {
	if err := u.Validate(); err != nil {
		return project.Project{}, err
	}

	q := psql.Update("projects").
		Where(sq.Eq{"proj_id": id}).
		Where("deleted_at is null").
		Suffix("returning proj_id")
	if u.Name != nil {
		q = q.Set("proj_name", *u.Name)
	}
	if u.StartDate != nil {
		q = q.Set("start_date", *u.StartDate)
	}
	if u.EndDate != nil {
		q = q.Set("end_date", *u.EndDate)
	}
	if u.Status != nil {
		q = q.Set("status", *u.Status)
	}
	if u.Remarks != nil {
		q = q.Set("remarks", *u.Remarks)
	}
	if u.ClientID != nil {
		q = q.Set("client_id", *u.ClientID)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return project.Project{}, fmt.Errorf("build update: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return project.Project{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var updated int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, projectWriteError(err)
	}
	if err := appendBreakdown(ctx, tx, id, project.UpdatedSummary(u)); err != nil {
		return project.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return project.Project{}, err
	}
	return s.GetProject(ctx, id)
}

func (s *Store) SetStatus(ctx context.Context, id int64, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return fmt.Errorf("%w: status is required", project.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`update projects set status = $2 where proj_id = $1 and deleted_at is null`, id, status)
	if err != nil {
		return err
	}
	if aff, err := res.RowsAffected(); err != nil {
		return err
	} else if aff == 0 {
		return project.ErrNotFound
	}
	if err := appendBreakdown(ctx, tx, id, project.StatusSummary(status)); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteProject stamps deleted_at. Cost and breakdown rows are untouched;
// their foreign keys restrict hard deletes.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`update projects set deleted_at = now() where proj_id = $1 and deleted_at is null`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return project.ErrNotFound
	}
	return nil
}

func (s *Store) Breakdown(ctx context.Context, id int64) (project.Breakdown, error) {
	var d project.Details
	var first, company sql.NullString
	err := s.db.QueryRowContext(ctx, `
		select p.proj_id, p.proj_name, p.start_date, p.end_date, p.status, p.remarks, c.first_name, c.company
		from projects p
		left join clients c on c.client_id = p.client_id
		where p.proj_id = $1
	`, id).Scan(&d.ProjectID, &d.Name, &d.StartDate, &d.EndDate, &d.Status, &d.Remarks, &first, &company)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return project.Breakdown{}, project.ErrNotFound
		}
		return project.Breakdown{}, err
	}
	d.ClientName = nullableString(first)
	d.Company = nullableString(company)

	rows, err := s.db.QueryContext(ctx, `
		select breakdown_id, proj_id, date_time, description
		from proj_breakdown
		where proj_id = $1
		order by date_time, breakdown_id
	`, id)
	if err != nil {
		return project.Breakdown{}, err
	}
	defer rows.Close()

	history := []project.BreakdownEntry{}
	for rows.Next() {
		var e project.BreakdownEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Timestamp, &e.Description); err != nil {
			return project.Breakdown{}, err
		}
		e.Timestamp = e.Timestamp.UTC()
		history = append(history, e)
	}
	if err := rows.Err(); err != nil {
		return project.Breakdown{}, err
	}
	return project.Breakdown{Details: d, History: history}, nil
}

func (s *Store) CostBreakdown(ctx context.Context, id int64) (project.CostBreakdown, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`select exists (select 1 from projects where proj_id = $1)`, id).Scan(&exists); err != nil {
		return project.CostBreakdown{}, err
	}
	if !exists {
		return project.CostBreakdown{}, project.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		select pc.cost_id, pc.inventory_code, pc.quantity, pc.date_time, pc.description, i.name, i.unit_price
		from proj_cost pc
		join inventory i on i.inventory_code = pc.inventory_code
		where pc.proj_id = $1
		order by pc.date_time, pc.cost_id
	`, id)
	if err != nil {
		return project.CostBreakdown{}, err
	}
	defer rows.Close()

	var lines []project.CostLine
	for rows.Next() {
		var (
			l  project.CostLine
			at time.Time
		)
		if err := rows.Scan(&l.CostID, &l.InventoryCode, &l.Quantity, &at, &l.Description, &l.InventoryName, &l.InventoryPrice); err != nil {
			return project.CostBreakdown{}, err
		}
		l.DateTime = at.UTC()
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return project.CostBreakdown{}, err
	}
	return project.NewCostBreakdown(lines), nil
}
