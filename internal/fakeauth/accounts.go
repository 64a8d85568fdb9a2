package fakeauth

import (
	"errors"
	"strings"
	"sync"

	"github.com/aussiebroadwan/sessionkit/pkg/cryptox"
	"github.com/aussiebroadwan/sessionkit/pkg/jwtx"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserExists         = errors.New("user_exists")
)

// Account is a registered user.
type Account struct {
	ID           uuid.UUID
	Login        string
	Email        string
	Role         jwtx.Role
	PasswordHash string
}

// accounts is the backend's user table.
type accounts struct {
	hasher cryptox.Hasher

	mu      sync.RWMutex
	byLogin map[string]*Account
	byEmail map[string]*Account
	guests  map[uuid.UUID]struct{}
}

func newAccounts(hasher cryptox.Hasher) *accounts {
	return &accounts{
		hasher:  hasher,
		byLogin: make(map[string]*Account),
		byEmail: make(map[string]*Account),
		guests:  make(map[uuid.UUID]struct{}),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *accounts) create(login, email, password string, role jwtx.Role) (*Account, error) {
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	email = normalizeEmail(email)
	if _, ok := a.byLogin[login]; ok {
		return nil, ErrUserExists
	}
	if _, ok := a.byEmail[email]; ok && email != "" {
		return nil, ErrUserExists
	}

	acct := &Account{
		ID:           uuid.New(),
		Login:        login,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}
	a.byLogin[login] = acct
	if email != "" {
		a.byEmail[email] = acct
	}
	return acct, nil
}

func (a *accounts) authenticate(login, password string) (*Account, error) {
	a.mu.RLock()
	acct, ok := a.byLogin[login]
	a.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := a.hasher.Verify(password, acct.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	cp := *acct
	return &cp, nil
}

func (a *accounts) byID(id uuid.UUID) (*Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, acct := range a.byLogin {
		if acct.ID == id {
			cp := *acct
			return &cp, true
		}
	}
	return nil, false
}

func (a *accounts) loginBusy(login string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.byLogin[login]
	return ok
}

func (a *accounts) emailBusy(email string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.byEmail[normalizeEmail(email)]
	return ok
}

func (a *accounts) createGuest() uuid.UUID {
	id := uuid.New()
	a.mu.Lock()
	a.guests[id] = struct{}{}
	a.mu.Unlock()
	return id
}
