package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"fbms.app/internal/auth"
	"fbms.app/internal/inventory"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

var itemCols = []string{"inventory_code", "name", "shop", "purchase_date", "unit_price", "total_quantity", "available_quantity", "location"}

func itemRow(available int64) *sqlmock.Rows {
	purchased := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(itemCols).AddRow("INV1", "Copper cable", "Main St", purchased, "2.50", int64(10), available, "A1")
}

func assignReq(qty int64) inventory.AssignRequest {
	return inventory.AssignRequest{ProjectID: 7, Code: "INV1", Quantity: qty, Description: "install"}
}

func TestAssignCommitsAllWrites(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`select .+ from inventory where inventory_code = \$1 for update`).
		WithArgs("INV1").WillReturnRows(itemRow(10))
	mock.ExpectQuery(`select proj_name from projects where proj_id = \$1 and deleted_at is null for share`).
		WithArgs(int64(7)).WillReturnRows(sqlmock.NewRows([]string{"proj_name"}).AddRow("Tower"))
	mock.ExpectQuery(`update inventory set available_quantity = available_quantity - \$2`).
		WithArgs("INV1", int64(4)).WillReturnRows(sqlmock.NewRows([]string{"available_quantity"}).AddRow(int64(6)))
	mock.ExpectQuery(`insert into proj_cost`).
		WithArgs(int64(7), "INV1", "install", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"cost_id", "date_time"}).AddRow(int64(11), at))
	mock.ExpectQuery(`insert into proj_breakdown`).
		WithArgs(int64(7), at, "Assigned 4 x Copper cable (INV1) to project Tower (#7): install").
		WillReturnRows(sqlmock.NewRows([]string{"breakdown_id"}).AddRow(int64(21)))
	mock.ExpectCommit()

	got, err := store.Assign(context.Background(), assignReq(4))
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got.Remaining != 6 || got.CostEntryID != 11 || got.BreakdownEntryID != 21 {
		t.Fatalf("unexpected assignment: %+v", got)
	}
	if !got.AssignedAt.Equal(at) {
		t.Fatalf("assigned_at = %v, want %v", got.AssignedAt, at)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAssignInsufficientRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`for update`).WithArgs("INV1").WillReturnRows(itemRow(3))
	mock.ExpectRollback()

	_, err := store.Assign(context.Background(), assignReq(4))
	var insufficient *inventory.InsufficientQuantityError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientQuantityError, got %v", err)
	}
	if insufficient.Available != 3 || insufficient.Requested != 4 {
		t.Fatalf("unexpected error detail: %+v", insufficient)
	}
	if !errors.Is(err, inventory.ErrInsufficientQuantity) {
		t.Fatalf("expected ErrInsufficientQuantity, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAssignLedgerFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`for update`).WithArgs("INV1").WillReturnRows(itemRow(10))
	mock.ExpectQuery(`select proj_name from projects`).
		WithArgs(int64(7)).WillReturnRows(sqlmock.NewRows([]string{"proj_name"}).AddRow("Tower"))
	mock.ExpectQuery(`update inventory set available_quantity`).
		WithArgs("INV1", int64(4)).WillReturnRows(sqlmock.NewRows([]string{"available_quantity"}).AddRow(int64(6)))
	mock.ExpectQuery(`insert into proj_cost`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if _, err := store.Assign(context.Background(), assignReq(4)); err == nil {
		t.Fatal("expected error when the cost ledger insert fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAssignMissingRows(t *testing.T) {
	t.Run("item", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`for update`).WithArgs("INV1").WillReturnRows(sqlmock.NewRows(itemCols))
		mock.ExpectRollback()

		if _, err := store.Assign(context.Background(), assignReq(1)); !errors.Is(err, inventory.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatal(err)
		}
	})
	t.Run("project", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`for update`).WithArgs("INV1").WillReturnRows(itemRow(10))
		mock.ExpectQuery(`select proj_name from projects`).
			WithArgs(int64(7)).WillReturnRows(sqlmock.NewRows([]string{"proj_name"}))
		mock.ExpectRollback()

		if _, err := store.Assign(context.Background(), assignReq(1)); !errors.Is(err, inventory.ErrProjectNotFound) {
			t.Fatalf("expected ErrProjectNotFound, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestAssignRejectsInvalidRequestWithoutQuerying(t *testing.T) {
	store, mock := newMockStore(t)
	if _, err := store.Assign(context.Background(), assignReq(0)); !errors.Is(err, inventory.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAddItemConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`insert into inventory`).WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.AddItem(context.Background(), inventory.Item{
		Code: "INV1", Name: "Copper cable", UnitPrice: decimal.RequireFromString("2.50"), TotalQuantity: 10,
	})
	if !errors.Is(err, inventory.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

var accountCols = []string{"id", "email", "password_hash", "role", "permission", "current_token", "created_at"}

func TestAccountByIDAndEmail(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`from accounts where id = \$1 and email = \$2`).
		WithArgs(int64(5), "ann@example.com").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(int64(5), "ann@example.com", "hash", "admin", true, "tok", created))
	mock.ExpectQuery(`from accounts where id = \$1 and email = \$2`).
		WithArgs(int64(6), "bob@example.com").
		WillReturnRows(sqlmock.NewRows(accountCols))

	acc, err := store.AccountByIDAndEmail(context.Background(), 5, "Ann@Example.com")
	if err != nil {
		t.Fatalf("AccountByIDAndEmail: %v", err)
	}
	if acc.Role != "admin" || !acc.Active || acc.CurrentToken != "tok" {
		t.Fatalf("unexpected account: %+v", acc)
	}

	if _, err := store.AccountByIDAndEmail(context.Background(), 6, "bob@example.com"); !errors.Is(err, auth.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`insert into accounts`).
		WithArgs("ann@example.com", "hash", "employee", true).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.CreateAccount(context.Background(), auth.NewAccount{
		Email: "ann@example.com", PasswordHash: "hash", Role: "employee", Active: true,
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSetPermissionClearsToken(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`update accounts set permission = \$2, current_token = null where id = \$1`).
		WithArgs(int64(5), false).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`update accounts set permission`).
		WithArgs(int64(99), true).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.SetPermission(context.Background(), 5, false); err != nil {
		t.Fatalf("SetPermission: %v", err)
	}
	if err := store.SetPermission(context.Background(), 99, true); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAllowedPaths(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`select path from role_path_permissions where role = \$1`).
		WithArgs("employee").
		WillReturnRows(sqlmock.NewRows([]string{"path"}).AddRow("/inventory").AddRow("/inventory/assign/"))

	paths, err := store.AllowedPaths(context.Background(), "employee")
	if err != nil {
		t.Fatalf("AllowedPaths: %v", err)
	}
	if len(paths) != 2 || paths[1] != "/inventory/assign/" {
		t.Fatalf("unexpected paths: %v", paths)
	}
}
