package project

import (
	"context"
	"strings"
)

// MaxSuggestions caps the client autocomplete result size.
const MaxSuggestions = 10

// Service defines project and client operations.
type Service interface {
	CreateProject(ctx context.Context, p Project) (Project, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	UpdateProject(ctx context.Context, id int64, u Update) (Project, error)
	SetStatus(ctx context.Context, id int64, status string) error
	// DeleteProject hides the project; its breakdown and cost history remain.
	DeleteProject(ctx context.Context, id int64) error
	Breakdown(ctx context.Context, id int64) (Breakdown, error)
	CostBreakdown(ctx context.Context, id int64) (CostBreakdown, error)

	CreateClient(ctx context.Context, c Client) (Client, error)
	ListClients(ctx context.Context) ([]Client, error)
	SuggestClients(ctx context.Context, query string) ([]ClientSuggestion, error)
}

// CreatedSummary is the breakdown line written when a project is created.
func CreatedSummary(p Project) string {
	return "Project created: " + p.Name
}

// UpdatedSummary is the breakdown line written on a partial update.
func UpdatedSummary(u Update) string {
	return "Project updated: " + strings.Join(u.Fields(), ", ")
}

// StatusSummary is the breakdown line written on a status change.
func StatusSummary(status string) string {
	return "Status changed to " + status
}
