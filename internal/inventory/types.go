package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fbms.app/internal/project"
)

var (
	ErrNotFound             = errors.New("inventory item not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConflict             = errors.New("inventory item already exists")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
)

// Item is a stocked inventory line. 0 <= AvailableQuantity <= TotalQuantity always holds.
type Item struct {
	Code              string          `json:"inventory_code"`
	Name              string          `json:"name"`
	Shop              string          `json:"shop"`
	PurchaseDate      project.Date    `json:"purchase_date"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalQuantity     int64           `json:"total_quantity"`
	AvailableQuantity int64           `json:"available_quantity"`
	Location          string          `json:"location"`
}

// Validate checks a new item before it is stocked.
func (it Item) Validate() error {
	if strings.TrimSpace(it.Code) == "" || strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("%w: inventory_code and name are required", ErrInvalidInput)
	}
	if it.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit_price must be >= 0", ErrInvalidInput)
	}
	if it.TotalQuantity < 0 {
		return fmt.Errorf("%w: total_quantity must be >= 0", ErrInvalidInput)
	}
	return nil
}

// AssignRequest moves Quantity units of item Code onto project ProjectID.
type AssignRequest struct {
	ProjectID   int64
	Code        string
	Quantity    int64
	Description string
}

// Validate checks the preconditions of an assignment.
func (r AssignRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("%w: inventory_code is required", ErrInvalidInput)
	}
	if r.ProjectID <= 0 {
		return fmt.Errorf("%w: proj_id is required", ErrInvalidInput)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: requested_quantity must be > 0", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	return nil
}

// Assignment is the committed result of an assignment.
type Assignment struct {
	InventoryCode    string    `json:"inventory_code"`
	ProjectID        int64     `json:"proj_id"`
	Quantity         int64     `json:"quantity"`
	Remaining        int64     `json:"available_quantity"`
	CostEntryID      int64     `json:"cost_id"`
	BreakdownEntryID int64     `json:"breakdown_id"`
	AssignedAt       time.Time `json:"assigned_at"`
}

// CostLedgerEntry records inventory consumed by a project. Append only.
type CostLedgerEntry struct {
	ID            int64
	ProjectID     int64
	InventoryCode string
	Timestamp     time.Time
	Description   string
	Quantity      int64
}

// InsufficientQuantityError reports the stock actually available when an
// assignment asks for more.
type InsufficientQuantityError struct {
	Code      string
	Requested int64
	Available int64
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity for %s: requested %d, available %d", e.Code, e.Requested, e.Available)
}

func (e *InsufficientQuantityError) Is(target error) bool {
	return target == ErrInsufficientQuantity
}

// AssignSummary is the breakdown line written for an assignment.
func AssignSummary(item Item, qty int64, projectName string, projectID int64, description string) string {
	return fmt.Sprintf("Assigned %d x %s (%s) to project %s (#%d): %s",
		qty, item.Name, item.Code, projectName, projectID, description)
}
