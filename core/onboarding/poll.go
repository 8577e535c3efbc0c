package onboarding

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/nurturehq/nurture/core"
)

// ErrNoNewQuestion is the terminal failure of one turn's advancement poll:
// the attempt budget ran out without observing server progress. The user may
// retry by resubmitting or refreshing; it is not a crash.
var ErrNoNewQuestion = core.NewBusinessError("no new question was generated, please retry or refresh")

// PollConfig tunes the advancement poll.
type PollConfig struct {
	BaseDelay   time.Duration
	Growth      float64
	CapDelay    time.Duration
	MaxAttempts int
}

// newPollBackOff builds the retry schedule:
// delay(attempt) = min(BaseDelay * Growth^attempt, CapDelay), no jitter.
func newPollBackOff(conf PollConfig) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = conf.BaseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = conf.Growth
	bo.MaxInterval = conf.CapDelay
	bo.MaxElapsedTime = 0 // attempts are bounded by count, not wall time
	bo.Reset()
	return bo
}

// Advance is the successful outcome of an advancement poll.
type Advance struct {
	Completed bool
	Index     int      // displayed question index, when not completed
	Question  Question // the question to display, when not completed
	Attempts  int      // fetch attempts used
}

// advance re-fetches the questionnaire until the server's reaction to the
// submitted answer becomes visible. Per attempt, in order: terminal
// completion (always wins), question-count growth (jump to the newest
// question), an unanswered question ahead of the displayed one. Otherwise it
// sleeps with bounded exponential backoff and retries, up to MaxAttempts.
// A submission failure delivered on `submitted` aborts the poll; local state
// is not rolled back since the write may still land out of band.
func (f *Flow) advance(ctx context.Context, submitted <-chan error) (Advance, error) {
	f.mu.Lock()
	lastCount := len(f.snap.Questions)
	f.mu.Unlock()

	bo := newPollBackOff(f.conf)
	for attempt := 0; attempt < f.conf.MaxAttempts; attempt++ {
		select {
		case err := <-submitted:
			if err != nil {
				return Advance{}, errors.Wrap(err, "submitting answer")
			}
			submitted = nil
		default:
		}

		snap, err := f.repo.GetQuestionnaire(ctx, f.childID)
		if err != nil {
			if ctx.Err() != nil {
				return Advance{}, ctx.Err()
			}
			if attempt == f.conf.MaxAttempts-1 {
				return Advance{}, errors.Wrap(err, "fetching questionnaire")
			}
			f.log.Warn("advancement poll: fetch failed, retrying", err)
		} else {
			if adv, ok := f.apply(snap, lastCount, attempt+1); ok {
				return adv, nil
			}
		}

		if attempt == f.conf.MaxAttempts-1 {
			break
		}
		if err := f.wait(ctx, bo.NextBackOff(), &submitted); err != nil {
			return Advance{}, err
		}
	}
	return Advance{}, ErrNoNewQuestion
}

// apply replaces the snapshot wholesale and decides whether the poll is done.
func (f *Flow) apply(snap Questionnaire, lastCount, attempts int) (Advance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap

	// a completion signal always wins over any in-flight polling state
	if snap.IsTerminal(f.target) {
		return Advance{Completed: true, Attempts: attempts}, true
	}

	// question count grew: jump to the newest question
	if len(snap.Questions) > lastCount {
		f.currentIndex = len(snap.Questions) - 1
		return Advance{
			Index:    f.currentIndex,
			Question: snap.Questions[f.currentIndex],
			Attempts: attempts,
		}, true
	}

	// an unanswered question the client had not advanced to. The poll only
	// ever moves the display forward.
	if idx := snap.FirstUnansweredIndex(); idx < len(snap.Questions) && idx > f.currentIndex {
		f.currentIndex = idx
		return Advance{
			Index:    idx,
			Question: snap.Questions[idx],
			Attempts: attempts,
		}, true
	}
	return Advance{}, false
}

// wait sleeps for `delay`, aborting on cancellation or a failed submission.
func (f *Flow) wait(ctx context.Context, delay time.Duration, submitted *<-chan error) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-*submitted:
			*submitted = nil
			if err != nil {
				return errors.Wrap(err, "submitting answer")
			}
		case <-timer.C:
			return nil
		}
	}
}
