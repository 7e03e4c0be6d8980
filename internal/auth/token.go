package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer   = "fbms"
	defaultTokenTTL = time.Hour
	bearerScheme    = "Bearer"
)

// Claims represents JWT claims issued at login.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies session tokens. A token is only valid
// while it is the one stored on its account.
type TokenService struct {
	secret   []byte
	accounts AccountLookup
	issuer   string
	ttl      time.Duration
	now      func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithTokenTTL configures token lifetime.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces the time source, mostly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenService constructs a TokenService signing with secret (HS256).
func NewTokenService(secret string, accounts AccountLookup, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret is required")
	}
	if accounts == nil {
		return nil, errors.New("auth: account lookup is required")
	}
	s := &TokenService{
		secret:   []byte(secret),
		accounts: accounts,
		issuer:   defaultIssuer,
		ttl:      defaultTokenTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for id. Storing it on the account is the caller's job.
func (s *TokenService) Issue(id Identity) (string, time.Time, error) {
	if id.AccountID <= 0 || strings.TrimSpace(id.Email) == "" {
		return "", time.Time{}, fmt.Errorf("%w: identity requires account id and email", ErrInvalidInput)
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(id.AccountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse checks signature and expiry of a raw token and returns the identity it carries.
func (s *TokenService) Parse(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrMissingToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrMalformedToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrMalformedToken)
	}
	if strings.TrimSpace(claims.Email) == "" {
		return Identity{}, fmt.Errorf("%w: email claim missing", ErrMalformedToken)
	}
	return Identity{AccountID: id, Email: claims.Email, Role: claims.Role}, nil
}

// Verify authenticates the value of an Authorization header. The token must
// be well formed, unexpired, and identical to the one stored on the account.
func (s *TokenService) Verify(ctx context.Context, header string) (Identity, error) {
	raw := strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, bearerScheme) {
		raw = strings.TrimSpace(rest)
	} else if strings.EqualFold(raw, bearerScheme) {
		raw = ""
	}
	if raw == "" {
		return Identity{}, ErrMissingToken
	}

	id, err := s.Parse(raw)
	if err != nil {
		return Identity{}, err
	}

	acc, err := s.accounts.AccountByIDAndEmail(ctx, id.AccountID, id.Email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrNotFound) {
			return Identity{}, ErrAccountNotFound
		}
		return Identity{}, fmt.Errorf("lookup account: %w", err)
	}
	if acc.CurrentToken == "" || subtle.ConstantTimeCompare([]byte(acc.CurrentToken), []byte(raw)) != 1 {
		return Identity{}, ErrRevokedToken
	}
	return id, nil
}
