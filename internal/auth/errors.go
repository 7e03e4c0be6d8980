package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")

	// Token verification failures, in the order Verify checks for them.
	ErrMissingToken    = errors.New("missing token")
	ErrMalformedToken  = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
	ErrAccountNotFound = errors.New("account not found")
	ErrRevokedToken    = errors.New("token revoked")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is not active")
	ErrAccessDenied       = errors.New("access denied")
	ErrSelfModification   = errors.New("cannot modify own account permissions")
)
