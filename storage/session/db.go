// Package sessionstore is the local sqlite cache: the persisted session and
// the last questionnaire snapshot per child. It exists so the app can resume
// after a restart without a fresh sign-in or fetch.
package sessionstore

import (
	"os"
	"path/filepath"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/trezcool/goose"

	"github.com/nurturehq/nurture/core"
	appfs "github.com/nurturehq/nurture/fs"
)

func Open(conf *core.Config) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(conf.CachePath), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating cache directory")
	}
	db, err := sqlx.Open("sqlite3", conf.CachePath+"?_fk=1")
	if err != nil {
		return nil, errors.Wrap(err, "opening cache")
	}
	if err = ping(db); err != nil {
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 5
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "cache ping timeout")
	}
	return nil
}

func Migrate(db *sqlx.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.RunFS("up", db.DB, appfs.FS, "migrations"); err != nil {
		return errors.Wrap(err, "migrating cache")
	}
	return nil
}
