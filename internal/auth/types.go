package auth

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Account is a login-capable employee record.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	// CurrentToken is the only token accepted for the account; empty when none.
	CurrentToken string
	CreatedAt    time.Time
}

// Identity is what a verified token asserts about its bearer.
type Identity struct {
	AccountID int64  `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// NewAccount carries the fields required to create an account.
type NewAccount struct {
	Email        string
	PasswordHash string
	Role         string
	Active       bool
}

// RolePathPermission grants a role access to a path or, when Path ends in "/", a path prefix.
type RolePathPermission struct {
	Role string
	Path string
}

// PermissionFlag is the account activation flag as it travels over the wire:
// "TRUE"/"FALSE" on output, booleans or those strings on input.
type PermissionFlag bool

var errPermissionFlag = errors.New(`permission must be a boolean or "TRUE"/"FALSE"`)

func (f PermissionFlag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"TRUE"`), nil
	}
	return []byte(`"FALSE"`), nil
}

func (f *PermissionFlag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = PermissionFlag(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errPermissionFlag
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return errPermissionFlag
	}
	*f = PermissionFlag(v)
	return nil
}
