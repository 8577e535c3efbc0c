package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nurturehq/nurture/core"
	testutil "github.com/nurturehq/nurture/tests"
)

type fakeProvider struct {
	signInCalls  int
	refreshCalls int
	refreshErr   error
	tok          Token
}

func (p *fakeProvider) SignIn(_ context.Context, email, _ string) (Account, Token, error) {
	p.signInCalls++
	return Account{ID: "parent-1", Email: email, Name: "Test Parent"}, p.tok, nil
}

func (p *fakeProvider) SignUp(_ context.Context, na NewAccount) (Account, Token, error) {
	return Account{ID: "parent-2", Email: na.Email, Name: na.Name}, p.tok, nil
}

func (p *fakeProvider) Refresh(_ context.Context, _ string) (Token, error) {
	p.refreshCalls++
	if p.refreshErr != nil {
		return Token{}, p.refreshErr
	}
	return p.tok, nil
}

type fakeStore struct {
	acct      Account
	tok       Token
	saved     bool
	cleared   bool
	loadErr   error
	saveCalls int
}

func (s *fakeStore) SaveSession(acct Account, tok Token) error {
	s.acct, s.tok, s.saved = acct, tok, true
	s.saveCalls++
	return nil
}

func (s *fakeStore) LoadSession() (Account, Token, error) {
	if s.loadErr != nil {
		return Account{}, Token{}, s.loadErr
	}
	return s.acct, s.tok, nil
}

func (s *fakeStore) ClearSession() error {
	s.acct, s.tok, s.cleared = Account{}, Token{}, true
	return nil
}

func setup(t *testing.T, tok Token) (*Session, *fakeProvider, *fakeStore) {
	t.Helper()
	provider := &fakeProvider{tok: tok}
	store := &fakeStore{}
	sess := NewSession(testutil.Config(), provider, store, testutil.Logger{})
	return sess, provider, store
}

func TestSessionSignIn(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	defer testutil.FreezeTime(now)()

	sess, _, store := setup(t, Token{Value: "tok", RefreshToken: "ref", ExpiresAt: now.Add(time.Hour)})
	events := sess.Subscribe()

	acct, err := sess.SignIn(context.Background(), Credentials{Email: " Parent@Example.COM ", Password: "secret12"})
	assert.NoError(t, err)
	assert.Equal(t, "parent-1", acct.ID)
	assert.Equal(t, "parent@example.com", acct.Email)
	assert.True(t, store.saved)
	assert.Equal(t, EventSignedIn, <-events)

	got, err := sess.Token(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestSessionSignInValidation(t *testing.T) {
	sess, provider, _ := setup(t, Token{})
	_, err := sess.SignIn(context.Background(), Credentials{Email: "nope", Password: ""})
	assert.Error(t, err)
	assert.Zero(t, provider.signInCalls, "invalid credentials must not reach the provider")
}

func TestSessionTokenGuard(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	defer testutil.FreezeTime(now)()

	tests := []struct {
		name        string
		remaining   time.Duration
		wantRefresh bool
	}{
		{"plenty of lifetime left", time.Hour, false},
		{"exactly at the minimum", 5 * time.Minute, false},
		{"below the minimum", 4 * time.Minute, true},
		{"already expired", -time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, provider, _ := setup(t, Token{Value: "tok", RefreshToken: "ref", ExpiresAt: now.Add(tt.remaining)})
			provider.tok = Token{Value: "tok2", RefreshToken: "ref2", ExpiresAt: now.Add(time.Hour)}
			if _, err := sess.SignIn(context.Background(), Credentials{Email: "p@example.com", Password: "x"}); err != nil {
				t.Fatalf("SignIn() failed: %v", err)
			}
			// SignIn installed the provider token; put the aged token back.
			sess.tok = Token{Value: "tok", RefreshToken: "ref", ExpiresAt: now.Add(tt.remaining)}
			provider.refreshCalls = 0

			got, err := sess.Token(context.Background())
			assert.NoError(t, err)
			if tt.wantRefresh {
				assert.Equal(t, 1, provider.refreshCalls)
				assert.Equal(t, "tok2", got)
			} else {
				assert.Zero(t, provider.refreshCalls)
				assert.Equal(t, "tok", got)
			}
		})
	}
}

func TestSessionRefreshFailureExpires(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	defer testutil.FreezeTime(now)()

	sess, provider, store := setup(t, Token{Value: "tok", RefreshToken: "ref", ExpiresAt: now.Add(time.Minute)})
	if _, err := sess.SignIn(context.Background(), Credentials{Email: "p@example.com", Password: "x"}); err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	events := sess.Subscribe()
	provider.refreshErr = errors.New("provider down")

	_, err := sess.Token(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.True(t, store.cleared, "persisted session must be cleared on failed refresh")
	assert.Equal(t, EventExpired, <-events)

	_, err = sess.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestSessionTokenExpiryFromJWT(t *testing.T) {
	// HS256 JWT with exp=4102444800 (2100-01-01T00:00:00Z); signature is not verified.
	jwtTok := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
		"eyJleHAiOjQxMDI0NDQ4MDB9." +
		"signature-is-not-checked"
	exp := tokenExpiry(Token{Value: jwtTok})
	assert.Equal(t, time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC), exp)

	// opaque token falls back to the provider-reported expiry
	fallback := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	exp = tokenExpiry(Token{Value: "opaque", ExpiresAt: fallback})
	assert.Equal(t, fallback, exp)
}

func TestSessionRestoreAndSignOut(t *testing.T) {
	sess, _, store := setup(t, Token{})
	store.acct = Account{ID: "parent-1", Email: "p@example.com"}
	store.tok = Token{Value: "tok", ExpiresAt: core.NowFunc().Add(time.Hour)}

	acct, err := sess.Restore()
	assert.NoError(t, err)
	assert.Equal(t, "parent-1", acct.ID)

	assert.NoError(t, sess.SignOut())
	assert.True(t, store.cleared)
	_, err = sess.Account()
	assert.ErrorIs(t, err, ErrNotSignedIn)
}
