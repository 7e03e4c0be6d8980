package audit

import (
	"context"
	"errors"
	"strings"

	"fbms.app/internal/auth"
	"fbms.app/internal/obs"
)

// Audit event names.
const (
	EventLogin            = "auth.login"
	EventLoginFailed      = "auth.login_failed"
	EventRegister         = "auth.register"
	EventPermissionChange = "auth.permission_change"
	EventInventoryAssign  = "inventory.assign"
	EventInventoryAdd     = "inventory.add"
	EventProjectCreate    = "project.create"
	EventProjectUpdate    = "project.update"
	EventProjectDelete    = "project.delete"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit line enriched with the request id and the acting account.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	e := obs.Logger().Info().
		Str("type", "audit").
		Str("event", event)
	if rid := requestIDFromContext(ctx); rid != "" {
		e = e.Str("request_id", rid)
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		e = e.Int64("account_id", id.AccountID).Str("role", id.Role)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	e.Interface("fields", fields).Msg("audit")
	return nil
}
