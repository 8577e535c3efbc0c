package testutil

import (
	"time"

	"github.com/nurturehq/nurture/core"
)

// Logger is a no-op core.Logger for tests.
type Logger struct{}

var _ core.Logger = (*Logger)(nil)

func (Logger) Debug(msg string, args ...interface{}) {}
func (Logger) Info(msg string, args ...interface{})  {}
func (Logger) Warn(msg string, args ...interface{})  {}
func (Logger) Error(msg string, args ...interface{}) {}
func (Logger) Fatal(msg string, args ...interface{}) {}

// Config returns a Config with fast poll timings for tests.
func Config() *core.Config {
	return &core.Config{
		AppName:             "Nurture",
		Env:                 "TEST",
		APIBaseURL:          "http://127.0.0.1",
		APITimeout:          time.Second,
		IdentityBaseURL:     "http://127.0.0.1",
		TokenMinRemaining:   5 * time.Minute,
		PollBaseDelay:       time.Millisecond,
		PollGrowth:          1.3,
		PollCapDelay:        4 * time.Millisecond,
		PollMaxAttempts:     12,
		QuestionnaireTarget: 10,
		MaxChildren:         5,
	}
}

// FreezeTime pins core.NowFunc to `t` and returns a restore func.
func FreezeTime(t time.Time) func() {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return t.UTC() }
	return func() { core.NowFunc = orig }
}
