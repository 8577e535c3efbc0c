// Package dummyidentity is an in-memory identity provider for tests and
// local development without network access.
package dummyidentity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nurturehq/nurture/core"
	"github.com/nurturehq/nurture/core/session"
)

var (
	ErrBadCredentials = errors.New("authentication failed")
	ErrEmailExists    = errors.New("an account with this email already exists")
	ErrBadRefresh     = errors.New("invalid refresh token")
)

type account struct {
	acct     session.Account
	password string
}

type service struct {
	lifetime time.Duration

	mu       sync.Mutex
	accounts map[string]account // email -> account
	refresh  map[string]string  // refresh token -> email
}

var _ session.IdentityProvider = (*service)(nil)

func NewService(lifetime time.Duration) *service {
	return &service{
		lifetime: lifetime,
		accounts: make(map[string]account),
		refresh:  make(map[string]string),
	}
}

// Register seeds an account without going through SignUp validation.
func (svc *service) Register(acct session.Account, password string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.accounts[acct.Email] = account{acct: acct, password: password}
}

func (svc *service) SignIn(_ context.Context, email, password string) (session.Account, session.Token, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	a, ok := svc.accounts[email]
	if !ok || a.password != password {
		return session.Account{}, session.Token{}, ErrBadCredentials
	}
	return a.acct, svc.issue(email), nil
}

func (svc *service) SignUp(_ context.Context, na session.NewAccount) (session.Account, session.Token, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if _, ok := svc.accounts[na.Email]; ok {
		return session.Account{}, session.Token{}, ErrEmailExists
	}
	acct := session.Account{ID: uuid.NewString(), Email: na.Email, Name: na.Name}
	svc.accounts[na.Email] = account{acct: acct, password: na.Password}
	return acct, svc.issue(na.Email), nil
}

func (svc *service) Refresh(_ context.Context, refreshToken string) (session.Token, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	email, ok := svc.refresh[refreshToken]
	if !ok {
		return session.Token{}, ErrBadRefresh
	}
	delete(svc.refresh, refreshToken)
	return svc.issue(email), nil
}

// issue mints an opaque token; callers must hold mu.
func (svc *service) issue(email string) session.Token {
	ref := uuid.NewString()
	svc.refresh[ref] = email
	return session.Token{
		Value:        uuid.NewString(),
		RefreshToken: ref,
		ExpiresAt:    core.NowFunc().Add(svc.lifetime),
	}
}
