package auth

import "context"

// AccountLookup resolves the account a token claims to belong to.
type AccountLookup interface {
	AccountByIDAndEmail(ctx context.Context, id int64, email string) (Account, error)
}

// AccountStore describes persistence operations required for accounts.
type AccountStore interface {
	AccountLookup
	CreateAccount(ctx context.Context, acc NewAccount) (Account, error)
	AccountByEmail(ctx context.Context, email string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	SetCurrentToken(ctx context.Context, id int64, token string) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	// SetPermission updates the activation flag and clears the current token.
	SetPermission(ctx context.Context, id int64, active bool) error
}

// PathPermissionStore returns the paths and path prefixes a role may access.
type PathPermissionStore interface {
	AllowedPaths(ctx context.Context, role string) ([]string, error)
}
