package auth

import (
	"context"
	"strings"

	"fbms.app/internal/obs"
)

// Evaluator decides whether a role may reach a request path.
type Evaluator struct {
	store PathPermissionStore
}

// NewEvaluator constructs an Evaluator backed by store.
func NewEvaluator(store PathPermissionStore) *Evaluator {
	return &Evaluator{store: store}
}

// IsAllowed reports whether role may access path. Lookup failures and roles
// without entries are denied.
func (e *Evaluator) IsAllowed(ctx context.Context, role, path string) bool {
	if e == nil || e.store == nil {
		return false
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	allowed, err := e.store.AllowedPaths(ctx, role)
	if err != nil {
		l := obs.Logger()
		l.Warn().Err(err).Str("role", role).Str("path", path).Msg("path permission lookup failed")
		return false
	}
	for _, entry := range allowed {
		if PathMatches(entry, path) {
			return true
		}
	}
	return false
}

// PathMatches reports whether entry grants path: an exact match, or entry
// ends in "/" and path starts with it.
func PathMatches(entry, path string) bool {
	if entry == "" {
		return false
	}
	if entry == path {
		return true
	}
	return strings.HasSuffix(entry, "/") && strings.HasPrefix(path, entry)
}
