package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fbms.app/internal/inventory"
	"fbms.app/internal/project"
)

type projectRow struct {
	project.Project
	deleted bool
}

// Store implements inventory.Service and project.Service in process memory.
// A single mutex serializes writers, which also serializes assignments.
type Store struct {
	mu        sync.RWMutex
	items     map[string]*inventory.Item
	projects  map[int64]*projectRow
	clients   map[string]project.Client
	costs     []inventory.CostLedgerEntry
	breakdown []project.BreakdownEntry
	now       func() time.Time
}

var (
	_ inventory.Service = (*Store)(nil)
	_ project.Service   = (*Store)(nil)
)

// New creates an empty Store.
func New() *Store {
	return &Store{
		items:    make(map[string]*inventory.Item),
		projects: make(map[int64]*projectRow),
		clients:  make(map[string]project.Client),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CostEntries returns a copy of the cost ledger.
func (s *Store) CostEntries() []inventory.CostLedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.CostLedgerEntry, len(s.costs))
	copy(out, s.costs)
	return out
}

// BreakdownEntries returns a copy of every project's breakdown history.
func (s *Store) BreakdownEntries() []project.BreakdownEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]project.BreakdownEntry, len(s.breakdown))
	copy(out, s.breakdown)
	return out
}

func (s *Store) AddItem(_ context.Context, it inventory.Item) (inventory.Item, error) {
	if err := it.Validate(); err != nil {
		return inventory.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.Code]; ok {
		return inventory.Item{}, inventory.ErrConflict
	}
	it.AvailableQuantity = it.TotalQuantity
	s.items[it.Code] = &it
	return it, nil
}

func (s *Store) GetItem(_ context.Context, code string) (inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[code]
	if !ok {
		return inventory.Item{}, inventory.ErrNotFound
	}
	return *it, nil
}

func (s *Store) ListItems(_ context.Context) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) Assign(_ context.Context, req inventory.AssignRequest) (inventory.Assignment, error) {
	if err := req.Validate(); err != nil {
		return inventory.Assignment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[req.Code]
	if !ok {
		return inventory.Assignment{}, inventory.ErrNotFound
	}
	if it.AvailableQuantity < req.Quantity {
		return inventory.Assignment{}, &inventory.InsufficientQuantityError{
			Code: req.Code, Requested: req.Quantity, Available: it.AvailableQuantity,
		}
	}
	p, ok := s.projects[req.ProjectID]
	if !ok || p.deleted {
		return inventory.Assignment{}, inventory.ErrProjectNotFound
	}

	now := s.now()
	it.AvailableQuantity -= req.Quantity
	cost := inventory.CostLedgerEntry{
		ID:            int64(len(s.costs) + 1),
		ProjectID:     req.ProjectID,
		InventoryCode: req.Code,
		Timestamp:     now,
		Description:   req.Description,
		Quantity:      req.Quantity,
	}
	s.costs = append(s.costs, cost)
	entry := s.appendBreakdown(req.ProjectID, now,
		inventory.AssignSummary(*it, req.Quantity, p.Name, p.ID, req.Description))

	return inventory.Assignment{
		InventoryCode:    req.Code,
		ProjectID:        req.ProjectID,
		Quantity:         req.Quantity,
		Remaining:        it.AvailableQuantity,
		CostEntryID:      cost.ID,
		BreakdownEntryID: entry.ID,
		AssignedAt:       now,
	}, nil
}

// appendBreakdown must be called with s.mu held.
func (s *Store) appendBreakdown(projectID int64, at time.Time, description string) project.BreakdownEntry {
	entry := project.BreakdownEntry{
		ID:          int64(len(s.breakdown) + 1),
		ProjectID:   projectID,
		Timestamp:   at,
		Description: description,
	}
	s.breakdown = append(s.breakdown, entry)
	return entry
}

func (s *Store) CreateProject(_ context.Context, p project.Project) (project.Project, error) {
	if err := p.Validate(); err != nil {
		return project.Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return project.Project{}, project.ErrConflict
	}
	if err := s.checkClient(p.ClientID); err != nil {
		return project.Project{}, err
	}
	s.projects[p.ID] = &projectRow{Project: p}
	s.appendBreakdown(p.ID, s.now(), project.CreatedSummary(p))
	return s.withClient(p), nil
}

func (s *Store) GetProject(_ context.Context, id int64) (project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.projects[id]
	if !ok || row.deleted {
		return project.Project{}, project.ErrNotFound
	}
	return s.withClient(row.Project), nil
}

func (s *Store) ListProjects(_ context.Context) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]project.Project, 0, len(s.projects))
	for _, row := range s.projects {
		if row.deleted {
			continue
		}
		out = append(out, s.withClient(row.Project))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate.Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartDate.After(out[j].StartDate.Time)
	})
	return out, nil
}

func (s *Store) UpdateProject(_ context.Context, id int64, u project.Update) (project.Project, error) {
	if err := u.Validate(); err != nil {
		return project.Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.projects[id]
	if !ok || row.deleted {
		return project.Project{}, project.ErrNotFound
	}
	if err := s.checkClient(u.ClientID); err != nil {
		return project.Project{}, err
	}
	updated := row.Project
	u.Apply(&updated)
	if updated.EndDate.Before(updated.StartDate.Time) {
		return project.Project{}, fmt.Errorf("%w: end_date precedes start_date", project.ErrInvalidInput)
	}
	row.Project = updated
	s.appendBreakdown(id, s.now(), project.UpdatedSummary(u))
	return s.withClient(updated), nil
}

func (s *Store) SetStatus(_ context.Context, id int64, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return fmt.Errorf("%w: status is required", project.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.projects[id]
	if !ok || row.deleted {
		return project.ErrNotFound
	}
	row.Status = status
	s.appendBreakdown(id, s.now(), project.StatusSummary(status))
	return nil
}

func (s *Store) DeleteProject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.projects[id]
	if !ok || row.deleted {
		return project.ErrNotFound
	}
	row.deleted = true
	return nil
}

func (s *Store) Breakdown(_ context.Context, id int64) (project.Breakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.projects[id]
	if !ok {
		return project.Breakdown{}, project.ErrNotFound
	}
	details := project.Details{
		ProjectID: row.ID,
		Name:      row.Name,
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		Status:    row.Status,
		Remarks:   row.Remarks,
	}
	if row.ClientID != nil {
		if c, ok := s.clients[*row.ClientID]; ok {
			details.ClientName = &c.FirstName
			details.Company = &c.Company
		}
	}
	history := []project.BreakdownEntry{}
	for _, e := range s.breakdown {
		if e.ProjectID == id {
			history = append(history, e)
		}
	}
	return project.Breakdown{Details: details, History: history}, nil
}

func (s *Store) CostBreakdown(_ context.Context, id int64) (project.CostBreakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.projects[id]; !ok {
		return project.CostBreakdown{}, project.ErrNotFound
	}
	var lines []project.CostLine
	for _, c := range s.costs {
		if c.ProjectID != id {
			continue
		}
		it := s.items[c.InventoryCode]
		lines = append(lines, project.CostLine{
			CostID:         c.ID,
			InventoryCode:  c.InventoryCode,
			Quantity:       c.Quantity,
			DateTime:       c.Timestamp,
			Description:    c.Description,
			InventoryName:  it.Name,
			InventoryPrice: it.UnitPrice,
		})
	}
	return project.NewCostBreakdown(lines), nil
}

func (s *Store) CreateClient(_ context.Context, c project.Client) (project.Client, error) {
	if err := c.Validate(); err != nil {
		return project.Client{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ID]; ok {
		return project.Client{}, project.ErrConflict
	}
	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) ListClients(_ context.Context) ([]project.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]project.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SuggestClients(_ context.Context, query string) ([]project.ClientSuggestion, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []project.ClientSuggestion{}
	for _, c := range s.clients {
		if strings.Contains(strings.ToLower(c.FirstName), q) || strings.Contains(strings.ToLower(c.Company), q) {
			out = append(out, project.ClientSuggestion{ID: c.ID, FirstName: c.FirstName, Company: c.Company, Country: c.Country})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	if len(out) > project.MaxSuggestions {
		out = out[:project.MaxSuggestions]
	}
	return out, nil
}

// checkClient must be called with s.mu held.
func (s *Store) checkClient(id *string) error {
	if id == nil {
		return nil
	}
	if _, ok := s.clients[*id]; !ok {
		return fmt.Errorf("%w: client %q does not exist", project.ErrInvalidInput, *id)
	}
	return nil
}

// withClient must be called with s.mu held.
func (s *Store) withClient(p project.Project) project.Project {
	if p.ClientID == nil {
		return p
	}
	if c, ok := s.clients[*p.ClientID]; ok {
		first, company, country := c.FirstName, c.Company, c.Country
		p.ClientFirstName = &first
		p.ClientCompany = &company
		p.ClientCountry = &country
	}
	return p
}
