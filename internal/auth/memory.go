package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps accounts and path permissions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*Account
	byEmail  map[string]int64
	paths    map[string][]string
}

var (
	_ AccountStore        = (*MemoryStore)(nil)
	_ PathPermissionStore = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]*Account),
		byEmail:  make(map[string]int64),
		paths:    make(map[string][]string),
	}
}

// GrantPath adds a path entry for role.
func (m *MemoryStore) GrantPath(role, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[role] = append(m.paths[role], path)
}

func (m *MemoryStore) AllowedPaths(_ context.Context, role string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.paths[role]))
	copy(out, m.paths[role])
	return out, nil
}

func (m *MemoryStore) CreateAccount(_ context.Context, in NewAccount) (Account, error) {
	email := normalizeEmail(in.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return Account{}, ErrConflict
	}
	m.nextID++
	acc := &Account{
		ID:           m.nextID,
		Email:        email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		Active:       in.Active,
		CreatedAt:    time.Now().UTC(),
	}
	m.accounts[acc.ID] = acc
	m.byEmail[email] = acc.ID
	return *acc, nil
}

func (m *MemoryStore) AccountByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *m.accounts[id], nil
}

func (m *MemoryStore) AccountByIDAndEmail(_ context.Context, id int64, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok || acc.Email != normalizeEmail(email) {
		return Account{}, ErrAccountNotFound
	}
	return *acc, nil
}

func (m *MemoryStore) ListAccounts(_ context.Context) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SetCurrentToken(_ context.Context, id int64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.CurrentToken = token
	return nil
}

func (m *MemoryStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.PasswordHash = hash
	return nil
}

func (m *MemoryStore) SetPermission(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.Active = active
	acc.CurrentToken = ""
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
