package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nurturehq/nurture/core"
)

var (
	// errors
	ErrNotSignedIn    = errors.New("not signed in")
	ErrSessionExpired = errors.New("session expired, please sign in again")
	ErrNoSession      = errors.New("no persisted session")
)

type (
	// IdentityProvider is the third-party service that issues and refreshes
	// bearer tokens.
	IdentityProvider interface {
		SignIn(ctx context.Context, email, password string) (Account, Token, error)
		SignUp(ctx context.Context, na NewAccount) (Account, Token, error)
		Refresh(ctx context.Context, refreshToken string) (Token, error)
	}

	// Store persists the session across restarts; cleared on sign-out and
	// on failed refresh.
	Store interface {
		SaveSession(acct Account, tok Token) error
		LoadSession() (Account, Token, error) // ErrNoSession when absent
		ClearSession() error
	}

	// Event is published to subscribers on session lifecycle changes.
	Event int

	// Session owns the current account and bearer token. No other component
	// reads the persisted session directly; everything goes through Token.
	Session struct {
		provider     IdentityProvider
		store        Store
		log          core.Logger
		minRemaining time.Duration

		mu   sync.Mutex
		acct Account
		tok  Token

		subMu sync.Mutex
		subs  []chan Event
	}
)

const (
	EventSignedIn Event = iota
	EventSignedOut
	EventExpired
)

func NewSession(conf *core.Config, provider IdentityProvider, store Store, log core.Logger) *Session {
	return &Session{
		provider:     provider,
		store:        store,
		log:          log,
		minRemaining: conf.TokenMinRemaining,
	}
}

// Subscribe returns a channel receiving session lifecycle events.
// Slow subscribers miss events rather than block the session.
func (s *Session) Subscribe() <-chan Event {
	ch := make(chan Event, 4)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SignIn authenticates against the identity provider and persists the session.
func (s *Session) SignIn(ctx context.Context, creds Credentials) (Account, error) {
	if err := creds.Validate(); err != nil {
		return Account{}, err
	}
	acct, tok, err := s.provider.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		return Account{}, err
	}
	s.install(acct, tok)
	s.publish(EventSignedIn)
	return acct, nil
}

// SignUp registers a new parent account and signs it in.
func (s *Session) SignUp(ctx context.Context, na NewAccount) (Account, error) {
	if err := na.Validate(); err != nil {
		return Account{}, err
	}
	acct, tok, err := s.provider.SignUp(ctx, na)
	if err != nil {
		return Account{}, err
	}
	s.install(acct, tok)
	s.publish(EventSignedIn)
	return acct, nil
}

// Restore loads a previously persisted session, if any.
func (s *Session) Restore() (Account, error) {
	acct, tok, err := s.store.LoadSession()
	if err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	s.acct, s.tok = acct, tok
	s.mu.Unlock()
	return acct, nil
}

// SignOut clears the in-memory and persisted session.
func (s *Session) SignOut() error {
	s.mu.Lock()
	s.acct, s.tok = Account{}, Token{}
	s.mu.Unlock()
	s.publish(EventSignedOut)
	return s.store.ClearSession()
}

// Account returns the signed-in parent.
func (s *Session) Account() (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acct.ID == "" {
		return Account{}, ErrNotSignedIn
	}
	return s.acct, nil
}

// Token returns a bearer token valid for at least the configured minimum
// remaining lifetime, refreshing through the provider when it is not.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok.Value == "" {
		return "", ErrNotSignedIn
	}
	if s.tok.Remaining(core.NowFunc()) >= s.minRemaining {
		return s.tok.Value, nil
	}
	return s.refreshLocked(ctx)
}

// ForceRefresh discards the current token and fetches a fresh one. Used by
// the API client after a 401.
func (s *Session) ForceRefresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok.Value == "" {
		return "", ErrNotSignedIn
	}
	return s.refreshLocked(ctx)
}

// Expire transitions to the session-expired state: persisted state is
// cleared and subscribers are notified. Called when recovery failed.
func (s *Session) Expire() {
	s.mu.Lock()
	s.acct, s.tok = Account{}, Token{}
	s.mu.Unlock()
	if err := s.store.ClearSession(); err != nil {
		s.log.Warn("clearing expired session", err)
	}
	s.publish(EventExpired)
}

func (s *Session) refreshLocked(ctx context.Context) (string, error) {
	tok, err := s.provider.Refresh(ctx, s.tok.RefreshToken)
	if err != nil {
		s.log.Warn("token refresh failed", err)
		s.acct, s.tok = Account{}, Token{}
		if cerr := s.store.ClearSession(); cerr != nil {
			s.log.Warn("clearing expired session", cerr)
		}
		s.publish(EventExpired)
		return "", ErrSessionExpired
	}
	tok.ExpiresAt = tokenExpiry(tok)
	s.tok = tok
	if err := s.store.SaveSession(s.acct, s.tok); err != nil {
		s.log.Warn("persisting refreshed session", err)
	}
	return s.tok.Value, nil
}

func (s *Session) install(acct Account, tok Token) {
	tok.ExpiresAt = tokenExpiry(tok)
	s.mu.Lock()
	s.acct, s.tok = acct, tok
	s.mu.Unlock()
	if err := s.store.SaveSession(acct, tok); err != nil {
		s.log.Warn("persisting session", err)
	}
}

// tokenExpiry prefers the `exp` claim embedded in the token itself; the
// provider-reported expiry is the fallback for non-JWT opaque tokens.
// The signature is the provider's concern and is not verified here.
func tokenExpiry(tok Token) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.Value, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time.UTC()
		}
	}
	return tok.ExpiresAt.UTC()
}
