package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"fbms.app/internal/obs"
)

const defaultRole = "employee"

// Service implements login, registration and account administration on top
// of an AccountStore and a TokenService.
type Service struct {
	accounts    AccountStore
	tokens      *TokenService
	defaultRole string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithDefaultRole sets the role given to accounts registered without one.
func WithDefaultRole(role string) ServiceOption {
	return func(s *Service) {
		if role = strings.TrimSpace(role); role != "" {
			s.defaultRole = role
		}
	}
}

// NewService constructs a Service.
func NewService(accounts AccountStore, tokens *TokenService, opts ...ServiceOption) *Service {
	s := &Service{
		accounts:    accounts,
		tokens:      tokens,
		defaultRole: defaultRole,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokens exposes the token service used for verification.
func (s *Service) Tokens() *TokenService { return s.tokens }

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Account   Account
	Token     string
	ExpiresAt time.Time
}

// Login checks credentials, issues a token and stores it as the account's
// only valid token. The token is returned only after it has been stored.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	acc, err := s.accounts.AccountByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup account: %w", err)
	}
	if err := VerifyPassword(acc.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !acc.Active {
		return LoginResult{}, ErrAccountInactive
	}

	token, expiresAt, err := s.tokens.Issue(Identity{AccountID: acc.ID, Email: acc.Email, Role: acc.Role})
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.accounts.SetCurrentToken(ctx, acc.ID, token); err != nil {
		return LoginResult{}, fmt.Errorf("store token: %w", err)
	}
	acc.CurrentToken = token

	if IsLegacyHash(acc.PasswordHash) {
		s.upgradeHash(ctx, acc.ID, password)
	}
	return LoginResult{Account: acc, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) upgradeHash(ctx context.Context, id int64, password string) {
	l := obs.Logger()
	hash, err := HashPassword(password)
	if err == nil {
		err = s.accounts.UpdatePasswordHash(ctx, id, hash)
	}
	if err != nil {
		l.Warn().Err(err).Int64("account_id", id).Msg("legacy password hash upgrade failed")
		return
	}
	l.Info().Int64("account_id", id).Msg("legacy password hash upgraded")
}

// Register creates an active account. An empty role falls back to the default role.
func (s *Service) Register(ctx context.Context, email, password, role string) (Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Account{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Account{}, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = s.defaultRole
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.accounts.CreateAccount(ctx, NewAccount{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
}

// SetPermission changes another account's activation flag. The target's
// current token is revoked. Acting on one's own account is refused.
func (s *Service) SetPermission(ctx context.Context, actor Identity, targetID int64, active bool) error {
	if targetID <= 0 {
		return fmt.Errorf("%w: account id must be positive", ErrInvalidInput)
	}
	if actor.AccountID == targetID {
		return ErrSelfModification
	}
	return s.accounts.SetPermission(ctx, targetID, active)
}

// Accounts lists all accounts.
func (s *Service) Accounts(ctx context.Context) ([]Account, error) {
	return s.accounts.ListAccounts(ctx)
}
