package httpapi

import (
	"net/http"
	"strings"
	"time"

	"fbms.app/internal/audit"
	"fbms.app/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID         int64               `json:"id"`
	Email      string              `json:"email"`
	Permission auth.PermissionFlag `json:"permission"`
	Role       string              `json:"role"`
}

type loginResponse struct {
	Message   string    `json:"message"`
	User      userView  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type permissionRequest struct {
	Permission *auth.PermissionFlag `json:"permission"`
}

func newUserView(acc auth.Account) userView {
	return userView{
		ID:         acc.ID,
		Email:      acc.Email,
		Permission: auth.PermissionFlag(acc.Active),
		Role:       acc.Role,
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.auth == nil {
		writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}

	res, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		_ = audit.LogEvent(r.Context(), audit.EventLoginFailed, map[string]any{
			"email":  strings.ToLower(strings.TrimSpace(req.Email)),
			"reason": err.Error(),
		})
		handleAuthError(w, r, err)
		return
	}

	ctx := auth.ContextWithIdentity(r.Context(), auth.Identity{
		AccountID: res.Account.ID, Email: res.Account.Email, Role: res.Account.Role,
	})
	_ = audit.LogEvent(ctx, audit.EventLogin, map[string]any{
		"expires_at": res.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful",
		User:      newUserView(res.Account),
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

// handleVerifyToken checks the token only; path permissions are not evaluated.
func (a *API) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	if a.auth == nil {
		writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
		return
	}
	id, err := a.auth.Tokens().Verify(r.Context(), r.Header.Get(authHeader))
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user":  id,
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}

	acc, err := a.auth.Register(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventRegister, map[string]any{
		"new_account_id": acc.ID,
		"email":          acc.Email,
		"role":           acc.Role,
	})
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (a *API) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.auth.Accounts(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	out := make([]userView, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, newUserView(acc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleSetPermission(w http.ResponseWriter, r *http.Request) {
	target, ok := int64Var(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "account id must be a positive integer")
		return
	}
	actor, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Missing token")
		return
	}
	// Own-account changes are refused before the body is even read.
	if actor.AccountID == target {
		handleAuthError(w, r, auth.ErrSelfModification)
		return
	}

	var req permissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Permission == nil {
		writeError(w, r, http.StatusBadRequest, "permission is required")
		return
	}

	active := bool(*req.Permission)
	if err := a.auth.SetPermission(r.Context(), actor, target, active); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventPermissionChange, map[string]any{
		"target_account_id": target,
		"permission":        active,
	})
	writeMessage(w, http.StatusOK, "Permission updated successfully")
}
