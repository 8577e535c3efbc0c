package sessionstore

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"

	"github.com/nurturehq/nurture/core"
	"github.com/nurturehq/nurture/core/onboarding"
	"github.com/nurturehq/nurture/core/session"
)

type Store struct {
	db *sqlx.DB
}

var _ session.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type sessionRow struct {
	AccountID    string    `db:"account_id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	Token        string    `db:"token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// SaveSession persists the single local session, replacing any previous one.
func (s *Store) SaveSession(acct session.Account, tok session.Token) error {
	_, err := s.db.Exec(
		`INSERT INTO session (id, account_id, email, name, token, refresh_token, expires_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   account_id = excluded.account_id,
		   email = excluded.email,
		   name = excluded.name,
		   token = excluded.token,
		   refresh_token = excluded.refresh_token,
		   expires_at = excluded.expires_at`,
		acct.ID, acct.Email, acct.Name, tok.Value, tok.RefreshToken, tok.ExpiresAt.UTC(),
	)
	return errors.Wrap(err, "saving session")
}

func (s *Store) LoadSession() (session.Account, session.Token, error) {
	var row sessionRow
	if err := s.db.Get(&row, `SELECT account_id, email, name, token, refresh_token, expires_at FROM session WHERE id = 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Account{}, session.Token{}, session.ErrNoSession
		}
		return session.Account{}, session.Token{}, errors.Wrap(err, "loading session")
	}
	acct := session.Account{ID: row.AccountID, Email: row.Email, Name: row.Name}
	tok := session.Token{Value: row.Token, RefreshToken: row.RefreshToken, ExpiresAt: row.ExpiresAt.UTC()}
	return acct, tok, nil
}

// ClearSession wipes the session and all cached snapshots.
func (s *Store) ClearSession() error {
	if _, err := s.db.Exec(`DELETE FROM session`); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	_, err := s.db.Exec(`DELETE FROM snapshot_cache`)
	return errors.Wrap(err, "clearing snapshot cache")
}

// SaveSnapshot caches a child's questionnaire snapshot for resume display.
func (s *Store) SaveSnapshot(childID string, qn onboarding.Questionnaire) error {
	payload, err := json.Marshal(qn)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	_, err = s.db.Exec(
		`INSERT INTO snapshot_cache (child_id, fetched_at, payload) VALUES (?, ?, ?)
		 ON CONFLICT (child_id) DO UPDATE SET fetched_at = excluded.fetched_at, payload = excluded.payload`,
		childID, core.NowFunc(), string(payload),
	)
	return errors.Wrap(err, "saving snapshot")
}

// LoadSnapshot returns the cached snapshot and whether one exists.
func (s *Store) LoadSnapshot(childID string) (onboarding.Questionnaire, bool, error) {
	var payload string
	if err := s.db.Get(&payload, `SELECT payload FROM snapshot_cache WHERE child_id = ?`, childID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return onboarding.Questionnaire{}, false, nil
		}
		return onboarding.Questionnaire{}, false, errors.Wrap(err, "loading snapshot")
	}
	var qn onboarding.Questionnaire
	if err := json.Unmarshal([]byte(payload), &qn); err != nil {
		return onboarding.Questionnaire{}, false, errors.Wrap(err, "decoding snapshot")
	}
	return qn, true, nil
}
