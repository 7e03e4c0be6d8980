package inventory

import "context"

// Service defines inventory operations.
type Service interface {
	AddItem(ctx context.Context, it Item) (Item, error)
	GetItem(ctx context.Context, code string) (Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	// Assign decrements stock and records the cost-ledger and breakdown
	// entries atomically. Concurrent calls on one item are serialized.
	Assign(ctx context.Context, req AssignRequest) (Assignment, error)
}
