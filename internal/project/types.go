package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("project not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidInput = errors.New("invalid input")
)

// Project is a customer engagement that inventory is assigned to.
type Project struct {
	ID        int64   `json:"proj_id"`
	Name      string  `json:"proj_name"`
	StartDate Date    `json:"start_date"`
	EndDate   Date    `json:"end_date"`
	Status    string  `json:"status"`
	Remarks   string  `json:"remarks"`
	ClientID  *string `json:"client_id"`

	// Populated by list and get from the joined client row.
	ClientFirstName *string `json:"client_first_name,omitempty"`
	ClientCompany   *string `json:"client_company,omitempty"`
	ClientCountry   *string `json:"client_country,omitempty"`
}

// Validate checks the fields required to create a project.
func (p Project) Validate() error {
	var missing []string
	if p.ID <= 0 {
		missing = append(missing, "proj_id")
	}
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "proj_name")
	}
	if p.StartDate.IsZero() {
		missing = append(missing, "start_date")
	}
	if p.EndDate.IsZero() {
		missing = append(missing, "end_date")
	}
	if strings.TrimSpace(p.Status) == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if p.EndDate.Before(p.StartDate.Time) {
		return fmt.Errorf("%w: end_date precedes start_date", ErrInvalidInput)
	}
	return nil
}

// Update is a partial project update; nil fields are left unchanged.
type Update struct {
	Name      *string `json:"proj_name"`
	StartDate *Date   `json:"start_date"`
	EndDate   *Date   `json:"end_date"`
	Status    *string `json:"status"`
	Remarks   *string `json:"remarks"`
	ClientID  *string `json:"client_id"`
}

// Fields returns the wire names of the fields set on u, in a stable order.
func (u Update) Fields() []string {
	var out []string
	if u.Name != nil {
		out = append(out, "proj_name")
	}
	if u.StartDate != nil {
		out = append(out, "start_date")
	}
	if u.EndDate != nil {
		out = append(out, "end_date")
	}
	if u.Status != nil {
		out = append(out, "status")
	}
	if u.Remarks != nil {
		out = append(out, "remarks")
	}
	if u.ClientID != nil {
		out = append(out, "client_id")
	}
	return out
}

// Validate rejects empty updates and blank required values.
func (u Update) Validate() error {
	if len(u.Fields()) == 0 {
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: proj_name cannot be empty", ErrInvalidInput)
	}
	if u.Status != nil && strings.TrimSpace(*u.Status) == "" {
		return fmt.Errorf("%w: status cannot be empty", ErrInvalidInput)
	}
	if u.StartDate != nil && u.StartDate.IsZero() {
		return fmt.Errorf("%w: start_date cannot be empty", ErrInvalidInput)
	}
	if u.EndDate != nil && u.EndDate.IsZero() {
		return fmt.Errorf("%w: end_date cannot be empty", ErrInvalidInput)
	}
	return nil
}

// Apply copies the set fields of u onto p.
func (u Update) Apply(p *Project) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.StartDate != nil {
		p.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		p.EndDate = *u.EndDate
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Remarks != nil {
		p.Remarks = *u.Remarks
	}
	if u.ClientID != nil {
		id := *u.ClientID
		p.ClientID = &id
	}
}

// BreakdownEntry is one line of a project's human readable history.
type BreakdownEntry struct {
	ID          int64     `json:"-"`
	ProjectID   int64     `json:"-"`
	Timestamp   time.Time `json:"date_time"`
	Description string    `json:"description"`
}

// Details is the project header of a breakdown view.
type Details struct {
	ProjectID  int64   `json:"proj_id"`
	Name       string  `json:"proj_name"`
	StartDate  Date    `json:"start_date"`
	EndDate    Date    `json:"end_date"`
	Status     string  `json:"status"`
	Remarks    string  `json:"remarks"`
	ClientName *string `json:"client_name"`
	Company    *string `json:"company"`
}

// Breakdown is a project with its history in chronological order.
type Breakdown struct {
	Details Details          `json:"project_details"`
	History []BreakdownEntry `json:"breakdown_history"`
}

// CostLine is one cost-ledger entry priced at the item's unit price.
type CostLine struct {
	CostID         int64           `json:"cost_id"`
	InventoryCode  string          `json:"inventory_code"`
	Quantity       int64           `json:"quantity"`
	DateTime       time.Time       `json:"date_time"`
	Description    string          `json:"description"`
	InventoryName  string          `json:"inventory_name"`
	InventoryPrice decimal.Decimal `json:"inventory_price"`
	ItemTotalCost  decimal.Decimal `json:"item_total_cost"`
}

// CostBreakdown lists a project's cost lines and their total.
type CostBreakdown struct {
	Lines []CostLine      `json:"cost_breakdown"`
	Total decimal.Decimal `json:"total_project_cost"`
}

// NewCostBreakdown prices each line and sums the total.
func NewCostBreakdown(lines []CostLine) CostBreakdown {
	total := decimal.Zero
	out := make([]CostLine, len(lines))
	for i, l := range lines {
		l.ItemTotalCost = l.InventoryPrice.Mul(decimal.NewFromInt(l.Quantity))
		total = total.Add(l.ItemTotalCost)
		out[i] = l
	}
	return CostBreakdown{Lines: out, Total: total}
}

// Client is a customer that projects are billed to.
type Client struct {
	ID            string `json:"client_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Country       string `json:"country"`
	Company       string `json:"company"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_nu"`
}

// Validate checks the fields required to create a client.
func (c Client) Validate() error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: client_id and email are required", ErrInvalidInput)
	}
	return nil
}

// ClientSuggestion is the short client form used by autocomplete.
type ClientSuggestion struct {
	ID        string `json:"client_id"`
	FirstName string `json:"first_name"`
	Company   string `json:"company"`
	Country   string `json:"country"`
}
