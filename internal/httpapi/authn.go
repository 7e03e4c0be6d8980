package httpapi

import (
	"errors"
	"net/http"

	"fbms.app/internal/auth"
	"fbms.app/internal/obs"
)

const authHeader = "Authorization"

// guard is the auth gateway: the token is verified first, then the role's
// path permissions are evaluated against the request path.
func (a *API) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.auth == nil || a.evaluator == nil {
			writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
			return
		}
		id, err := a.auth.Tokens().Verify(r.Context(), r.Header.Get(authHeader))
		if err != nil {
			obs.ObserveAuth(verifyResult(err))
			handleAuthError(w, r, err)
			return
		}
		if !a.evaluator.IsAllowed(r.Context(), id.Role, r.URL.Path) {
			obs.ObserveAuth("denied")
			handleAuthError(w, r, auth.ErrAccessDenied)
			return
		}
		obs.ObserveAuth("ok")
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), id)))
	})
}

func verifyResult(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing"
	case errors.Is(err, auth.ErrExpiredToken):
		return "expired"
	case errors.Is(err, auth.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, auth.ErrRevokedToken):
		return "revoked"
	case errors.Is(err, auth.ErrAccountNotFound):
		return "unknown_account"
	default:
		return "error"
	}
}

// handleAuthError maps auth sentinels to status codes and wire messages.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		writeError(w, r, http.StatusUnauthorized, "Missing token")
	case errors.Is(err, auth.ErrExpiredToken):
		writeError(w, r, http.StatusUnauthorized, "Token expired")
	case errors.Is(err, auth.ErrMalformedToken):
		writeError(w, r, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, auth.ErrRevokedToken), errors.Is(err, auth.ErrAccountNotFound):
		writeError(w, r, http.StatusForbidden, "Invalid or expired token")
	case errors.Is(err, auth.ErrAccessDenied):
		writeError(w, r, http.StatusForbidden, "Access denied")
	case errors.Is(err, auth.ErrSelfModification):
		writeError(w, r, http.StatusForbidden, "You cannot modify your own account permissions")
	case errors.Is(err, auth.ErrAccountInactive):
		writeError(w, r, http.StatusForbidden, "Permission denied. Your account is not active.")
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, errorDetail(err, auth.ErrInvalidInput, "Invalid input"))
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Account not found")
	default:
		obs.Logger().Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("auth failure")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
