package sessionstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nurturehq/nurture/core/onboarding"
	"github.com/nurturehq/nurture/core/session"
	testutil "github.com/nurturehq/nurture/tests"
)

func setup(t *testing.T) *Store {
	t.Helper()
	conf := testutil.Config()
	conf.CachePath = filepath.Join(t.TempDir(), "session.db")
	db, err := Open(conf)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = Migrate(db); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	return NewStore(db)
}

func TestSessionRoundTrip(t *testing.T) {
	store := setup(t)

	_, _, err := store.LoadSession()
	assert.ErrorIs(t, err, session.ErrNoSession)

	acct := session.Account{ID: "parent-1", Email: "p@example.com", Name: "Test Parent"}
	tok := session.Token{
		Value:        "tok",
		RefreshToken: "ref",
		ExpiresAt:    time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, store.SaveSession(acct, tok))

	gotAcct, gotTok, err := store.LoadSession()
	assert.NoError(t, err)
	assert.Equal(t, acct, gotAcct)
	assert.Equal(t, tok.Value, gotTok.Value)
	assert.Equal(t, tok.RefreshToken, gotTok.RefreshToken)
	assert.True(t, tok.ExpiresAt.Equal(gotTok.ExpiresAt))

	// replacing the session keeps a single row
	acct2 := session.Account{ID: "parent-2", Email: "q@example.com"}
	assert.NoError(t, store.SaveSession(acct2, tok))
	gotAcct, _, err = store.LoadSession()
	assert.NoError(t, err)
	assert.Equal(t, "parent-2", gotAcct.ID)

	assert.NoError(t, store.ClearSession())
	_, _, err = store.LoadSession()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := setup(t)

	_, ok, err := store.LoadSnapshot("child-1")
	assert.NoError(t, err)
	assert.False(t, ok)

	qn := onboarding.Questionnaire{
		ID:      "qn-1",
		ChildID: "child-1",
		Status:  onboarding.StatusInProgress,
		Questions: []onboarding.Question{
			{ID: "q1", Text: "First?", Type: onboarding.TypeText, Required: true},
		},
		Responses: []onboarding.Response{{QuestionID: "q1"}},
	}
	assert.NoError(t, store.SaveSnapshot("child-1", qn))

	got, ok, err := store.LoadSnapshot("child-1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, qn.ID, got.ID)
	assert.Equal(t, qn.Questions, got.Questions)

	// snapshots are cleared with the session
	assert.NoError(t, store.ClearSession())
	_, ok, err = store.LoadSnapshot("child-1")
	assert.NoError(t, err)
	assert.False(t, ok)
}
