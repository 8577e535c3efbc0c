package onboarding

import (
	"context"
	"errors"
	"sync"

	"github.com/nurturehq/nurture/core"
)

var (
	// errors
	ErrTurnInProgress = errors.New("previous answer is still being processed")
	ErrCompleted      = errors.New("onboarding is already completed")
	ErrWaiting        = errors.New("waiting for the next question")
	ErrAtFirst        = errors.New("already at the first question")
	ErrSkipRequired   = core.NewBusinessError("this question is required and cannot be skipped")
	ErrSkipFinal      = core.NewBusinessError("the final question cannot be skipped")
)

type (
	// Repository is the server-side questionnaire surface. The snapshot is
	// the only communication channel between submission and advancement.
	Repository interface {
		GetQuestionnaire(ctx context.Context, childID string) (Questionnaire, error)
		SubmitAnswer(ctx context.Context, childID string, ans Answer) error
	}

	// Flow drives one child's onboarding questionnaire: it submits answers
	// and tracks which question is displayed. The snapshot it holds is
	// replaced wholesale on every successful fetch.
	Flow struct {
		repo   Repository
		log    core.Logger
		conf   PollConfig
		target int

		childID string

		mu           sync.Mutex
		snap         Questionnaire
		currentIndex int
		busy         bool
	}
)

func NewFlow(conf *core.Config, repo Repository, log core.Logger, childID string) *Flow {
	return &Flow{
		repo: repo,
		log:  log,
		conf: PollConfig{
			BaseDelay:   conf.PollBaseDelay,
			Growth:      conf.PollGrowth,
			CapDelay:    conf.PollCapDelay,
			MaxAttempts: conf.PollMaxAttempts,
		},
		target:  conf.QuestionnaireTarget,
		childID: childID,
	}
}

// Load fetches the questionnaire and resolves the displayed question to the
// first unanswered one.
func (f *Flow) Load(ctx context.Context) error {
	snap, err := f.repo.GetQuestionnaire(ctx, f.childID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.snap = snap
	f.currentIndex = snap.FirstUnansweredIndex()
	f.mu.Unlock()
	return nil
}

// Snapshot returns the last fetched questionnaire state.
func (f *Flow) Snapshot() Questionnaire {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

// CurrentIndex returns the index of the displayed question.
func (f *Flow) CurrentIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentIndex
}

// Current returns the displayed question. ok is false while the client has
// shown everything it knows and is awaiting new server content.
func (f *Flow) Current() (q Question, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.currentIndex >= len(f.snap.Questions) {
		return Question{}, false
	}
	return f.snap.Questions[f.currentIndex], true
}

// IsTerminal reports whether onboarding is finished.
func (f *Flow) IsTerminal() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap.IsTerminal(f.target)
}

// Progress returns answered count and the enforced target.
func (f *Flow) Progress() (answered, target int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snap.Responses), f.target
}

// SubmitAnswer validates the answer against the displayed question, fires
// the submission without blocking on its result, and runs the advancement
// poll until the server-produced next question (or completion) is observed.
func (f *Flow) SubmitAnswer(ctx context.Context, ans Answer) (Advance, error) {
	q, err := f.beginTurn()
	if err != nil {
		return Advance{}, err
	}
	if err := ans.Validate(q); err != nil {
		f.endTurn()
		return Advance{}, err
	}
	return f.runTurn(ctx, ans)
}

// Skip records an empty answer for a non-required question and advances.
// The final question (the one whose answer reaches the target) cannot be
// skipped.
func (f *Flow) Skip(ctx context.Context) (Advance, error) {
	q, err := f.beginTurn()
	if err != nil {
		return Advance{}, err
	}
	f.mu.Lock()
	answered := len(f.snap.Responses)
	f.mu.Unlock()
	if q.Required {
		f.endTurn()
		return Advance{}, ErrSkipRequired
	}
	if answered >= f.target-1 {
		f.endTurn()
		return Advance{}, ErrSkipFinal
	}
	return f.runTurn(ctx, Answer{QuestionID: q.ID})
}

// Previous moves the display back one question. It never mutates server
// state and never clears recorded responses.
func (f *Flow) Previous() (Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.currentIndex == 0 {
		return Question{}, ErrAtFirst
	}
	f.currentIndex--
	return f.snap.Questions[f.currentIndex], nil
}

func (f *Flow) beginTurn() (Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return Question{}, ErrTurnInProgress
	}
	if f.snap.IsTerminal(f.target) {
		return Question{}, ErrCompleted
	}
	if f.currentIndex >= len(f.snap.Questions) {
		return Question{}, ErrWaiting
	}
	f.busy = true
	return f.snap.Questions[f.currentIndex], nil
}

func (f *Flow) endTurn() {
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
}

func (f *Flow) runTurn(ctx context.Context, ans Answer) (Advance, error) {
	defer f.endTurn()

	// Fire the submission; the turn does not block on its result. The call
	// deliberately outlives ctx: a cancelled poll discards results but lets
	// the write complete out of band.
	submitted := make(chan error, 1)
	go func() {
		submitted <- f.repo.SubmitAnswer(context.Background(), f.childID, ans)
	}()

	return f.advance(ctx, submitted)
}
