package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fbms.app/internal/inventory"
)

const itemColumns = `inventory_code, name, shop, purchase_date, unit_price, total_quantity, available_quantity, location`

func scanItem(row rowScanner) (inventory.Item, error) {
	var it inventory.Item
	err := row.Scan(
		&it.Code,
		&it.Name,
		&it.Shop,
		&it.PurchaseDate,
		&it.UnitPrice,
		&it.TotalQuantity,
		&it.AvailableQuantity,
		&it.Location,
	)
	return it, err
}

func (s *Store) AddItem(ctx context.Context, it inventory.Item) (inventory.Item, error) {
	if err := it.Validate(); err != nil {
		return inventory.Item{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into inventory (inventory_code, name, shop, purchase_date, unit_price, total_quantity, available_quantity, location)
		values ($1, $2, $3, $4, $5, $6, $6, $7)
		returning `+itemColumns,
		it.Code, it.Name, it.Shop, it.PurchaseDate, it.UnitPrice, it.TotalQuantity, it.Location)
	created, err := scanItem(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return inventory.Item{}, inventory.ErrConflict
			case pgErrCheckViolation:
				return inventory.Item{}, fmt.Errorf("%w: %s", inventory.ErrInvalidInput, pgErr.ConstraintName)
			}
		}
		return inventory.Item{}, err
	}
	return created, nil
}

func (s *Store) GetItem(ctx context.Context, code string) (inventory.Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx,
		`select `+itemColumns+` from inventory where inventory_code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Item{}, inventory.ErrNotFound
	}
	return it, err
}

func (s *Store) ListItems(ctx context.Context) ([]inventory.Item, error) {
	rows, err := s.db.QueryContext(ctx, `select `+itemColumns+` from inventory order by inventory_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Assign runs the whole assignment in one transaction. The inventory row is
// locked first, so concurrent assignments of one item queue behind each other
// and the availability check always sees committed stock.
func (s *Store) Assign(ctx context.Context, req inventory.AssignRequest) (inventory.Assignment, error) {
	if err := req.Validate(); err != nil {
		return inventory.Assignment{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return inventory.Assignment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	it, err := scanItem(tx.QueryRowContext(ctx,
		`select `+itemColumns+` from inventory where inventory_code = $1 for update`, req.Code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.Assignment{}, inventory.ErrNotFound
		}
		return inventory.Assignment{}, err
	}
	if it.AvailableQuantity < req.Quantity {
		return inventory.Assignment{}, &inventory.InsufficientQuantityError{
			Code: req.Code, Requested: req.Quantity, Available: it.AvailableQuantity,
		}
	}

	var projName string
	err = tx.QueryRowContext(ctx,
		`select proj_name from projects where proj_id = $1 and deleted_at is null for share`, req.ProjectID).Scan(&projName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.Assignment{}, inventory.ErrProjectNotFound
		}
		return inventory.Assignment{}, err
	}

	var remaining int64
	if err := tx.QueryRowContext(ctx, `
		update inventory set available_quantity = available_quantity - $2
		where inventory_code = $1
		returning available_quantity
	`, req.Code, req.Quantity).Scan(&remaining); err != nil {
		return inventory.Assignment{}, err
	}

	var (
		costID int64
		at     time.Time
	)
	if err := tx.QueryRowContext(ctx, `
		insert into proj_cost (proj_id, inventory_code, description, quantity)
		values ($1, $2, $3, $4)
		returning cost_id, date_time
	`, req.ProjectID, req.Code, req.Description, req.Quantity).Scan(&costID, &at); err != nil {
		return inventory.Assignment{}, fmt.Errorf("record cost: %w", err)
	}

	var breakdownID int64
	if err := tx.QueryRowContext(ctx, `
		insert into proj_breakdown (proj_id, date_time, description)
		values ($1, $2, $3)
		returning breakdown_id
	`, req.ProjectID, at, inventory.AssignSummary(it, req.Quantity, projName, req.ProjectID, req.Description)).Scan(&breakdownID); err != nil {
		return inventory.Assignment{}, fmt.Errorf("record breakdown: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return inventory.Assignment{}, err
	}

	return inventory.Assignment{
		InventoryCode:    req.Code,
		ProjectID:        req.ProjectID,
		Quantity:         req.Quantity,
		Remaining:        remaining,
		CostEntryID:      costID,
		BreakdownEntryID: breakdownID,
		AssignedAt:       at.UTC(),
	}, nil
}
