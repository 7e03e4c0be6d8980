package auth

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"testing"
	"time"
)

func newServiceFixture(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	tokens, err := NewTokenService(testSecret, store, WithTokenTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewService(store, tokens, WithDefaultRole("employee")), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, store := newServiceFixture(t)
	ctx := context.Background()

	acc, err := svc.Register(ctx, "  Ada@Example.com ", "hunter2", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acc.Email != "ada@example.com" || acc.Role != "employee" || !acc.Active {
		t.Fatalf("unexpected account: %+v", acc)
	}

	res, err := svc.Login(ctx, "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	stored, _ := store.AccountByEmail(ctx, "ada@example.com")
	if stored.CurrentToken != res.Token {
		t.Fatal("login must store the issued token")
	}
	if _, err := svc.Tokens().Verify(ctx, "Bearer "+res.Token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	for _, tc := range []struct{ email, password string }{
		{"", "pw"},
		{"a@b.c", ""},
		{"not an email", "pw"},
	} {
		if _, err := svc.Register(ctx, tc.email, tc.password, ""); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Register(%q, %q) = %v, want ErrInvalidInput", tc.email, tc.password, err)
		}
	}

	if _, err := svc.Register(ctx, "dup@example.com", "pw", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "DUP@example.com", "pw", ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate register = %v, want ErrConflict", err)
	}
}

func TestLoginWrongPasswordLeavesTokenUnchanged(t *testing.T) {
	svc, store := newServiceFixture(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ada@example.com", "hunter2", "admin"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	first, err := svc.Login(ctx, "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := svc.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v, want ErrInvalidCredentials", err)
	}

	stored, _ := store.AccountByEmail(ctx, "ada@example.com")
	if stored.CurrentToken != first.Token {
		t.Fatal("failed login must not touch the stored token")
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, store := newServiceFixture(t)
	ctx := context.Background()
	acc, err := svc.Register(ctx, "ada@example.com", "hunter2", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := store.SetPermission(ctx, acc.ID, false); err != nil {
		t.Fatalf("SetPermission: %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "hunter2"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("got %v, want ErrAccountInactive", err)
	}
	// Wrong password on an inactive account still reads as bad credentials.
	if _, err := svc.Login(ctx, "ada@example.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	svc, store := newServiceFixture(t)
	ctx := context.Background()
	sum := sha512.Sum512([]byte("legacy-pw"))
	acc, err := store.CreateAccount(ctx, NewAccount{
		Email: "old@example.com", PasswordHash: hex.EncodeToString(sum[:]), Role: "employee", Active: true,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	if _, err := svc.Login(ctx, "old@example.com", "legacy-pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	stored, _ := store.AccountByEmail(ctx, acc.Email)
	if IsLegacyHash(stored.PasswordHash) {
		t.Fatal("expected hash to be upgraded to bcrypt")
	}
	if err := VerifyPassword(stored.PasswordHash, "legacy-pw"); err != nil {
		t.Fatalf("upgraded hash does not verify: %v", err)
	}
}

func TestSetPermission(t *testing.T) {
	svc, store := newServiceFixture(t)
	ctx := context.Background()
	admin, _ := svc.Register(ctx, "admin@example.com", "pw", "admin")
	emp, _ := svc.Register(ctx, "emp@example.com", "pw", "")
	res, err := svc.Login(ctx, "emp@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	actor := Identity{AccountID: admin.ID, Email: admin.Email, Role: admin.Role}
	if err := svc.SetPermission(ctx, actor, admin.ID, false); !errors.Is(err, ErrSelfModification) {
		t.Fatalf("self modification: got %v, want ErrSelfModification", err)
	}
	if err := svc.SetPermission(ctx, actor, emp.ID, false); err != nil {
		t.Fatalf("SetPermission: %v", err)
	}
	if _, err := svc.Tokens().Verify(ctx, res.Token); !errors.Is(err, ErrRevokedToken) {
		t.Fatalf("token after deactivation: got %v, want ErrRevokedToken", err)
	}
	stored, _ := store.AccountByEmail(ctx, emp.Email)
	if stored.Active {
		t.Fatal("expected account to be deactivated")
	}
	if err := svc.SetPermission(ctx, actor, 999, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown target: got %v, want ErrNotFound", err)
	}
}
