package onboarding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nurturehq/nurture/core"
	testutil "github.com/nurturehq/nurture/tests"
)

type fakeRepo struct {
	mu          sync.Mutex
	snaps       []Questionnaire // served in order; the last one repeats
	getErrs     map[int]error   // 1-based fetch attempt -> error
	getCalls    int
	submitCalls int
	submitErr   error
	submitDelay time.Duration
}

func (r *fakeRepo) GetQuestionnaire(_ context.Context, _ string) (Questionnaire, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	if err := r.getErrs[r.getCalls]; err != nil {
		return Questionnaire{}, err
	}
	i := r.getCalls - 1
	if i >= len(r.snaps) {
		i = len(r.snaps) - 1
	}
	return r.snaps[i], nil
}

func (r *fakeRepo) SubmitAnswer(_ context.Context, _ string, _ Answer) error {
	if r.submitDelay > 0 {
		time.Sleep(r.submitDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitCalls++
	return r.submitErr
}

func (r *fakeRepo) gets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls
}

// questionnaire builds a snapshot with `nq` questions and responses for the
// first `nr` of them.
func questionnaire(nq, nr int) Questionnaire {
	qn := Questionnaire{ID: "qn-1", ParentID: "parent-1", ChildID: "child-1", Status: StatusInProgress}
	for i := 1; i <= nq; i++ {
		qn.Questions = append(qn.Questions, Question{
			ID:       fmt.Sprintf("q%d", i),
			Text:     fmt.Sprintf("Question %d?", i),
			Type:     TypeText,
			Required: true,
		})
	}
	for i := 1; i <= nr && i <= nq; i++ {
		qn.Responses = append(qn.Responses, Response{QuestionID: fmt.Sprintf("q%d", i)})
	}
	return qn
}

func newTestFlow(t *testing.T, repo *fakeRepo) *Flow {
	t.Helper()
	f := NewFlow(testutil.Config(), repo, testutil.Logger{}, "child-1")
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return f
}

func TestPollBackOffSchedule(t *testing.T) {
	conf := PollConfig{BaseDelay: 2 * time.Second, Growth: 1.3, CapDelay: 8 * time.Second, MaxAttempts: 12}
	bo := newPollBackOff(conf)

	var prev time.Duration
	for attempt := 0; attempt < conf.MaxAttempts; attempt++ {
		got := bo.NextBackOff()
		want := time.Duration(math.Min(float64(conf.BaseDelay)*math.Pow(conf.Growth, float64(attempt)), float64(conf.CapDelay)))
		assert.InDelta(t, float64(want), float64(got), float64(time.Microsecond), "attempt %d", attempt)
		assert.GreaterOrEqual(t, got, prev, "delays must be non-decreasing")
		assert.LessOrEqual(t, got, conf.CapDelay, "delays must be capped")
		prev = got
	}
}

func TestAdvanceBoundedRetries(t *testing.T) {
	// the server never reacts: exactly MaxAttempts fetches, then a terminal
	// business failure for the turn, not a hang
	repo := &fakeRepo{snaps: []Questionnaire{questionnaire(3, 2)}}
	f := newTestFlow(t, repo)

	_, err := f.SubmitAnswer(context.Background(), Answer{QuestionID: "q3", Text: "answer"})
	assert.ErrorIs(t, err, ErrNoNewQuestion)
	assert.True(t, core.IsBusiness(err))
	// Load used one fetch; the poll must not exceed its own budget of 12
	assert.Equal(t, 1+12, repo.gets())
	assert.Equal(t, 2, f.CurrentIndex(), "failed poll must not move the display")
}

func TestAdvanceCompletionWinsOverGrowth(t *testing.T) {
	// the fetched snapshot satisfies both "responses reached the target" and
	// "question count grew": completion must win
	done := questionnaire(11, 10)
	repo := &fakeRepo{snaps: []Questionnaire{questionnaire(10, 9), done}}
	f := newTestFlow(t, repo)

	adv, err := f.SubmitAnswer(context.Background(), Answer{QuestionID: "q10", Text: "answer"})
	assert.NoError(t, err)
	assert.True(t, adv.Completed)
	assert.Equal(t, 1, adv.Attempts)
	assert.True(t, f.IsTerminal())
}

func TestAdvanceCompletedStatusAlone(t *testing.T) {
	// server-reported status is equivalent to the response-count signal
	done := questionnaire(5, 4)
	done.Status = StatusCompleted
	repo := &fakeRepo{snaps: []Questionnaire{questionnaire(5, 4), done}}
	f := newTestFlow(t, repo)

	adv, err := f.SubmitAnswer(context.Background(), Answer{QuestionID: "q5", Text: "answer"})
	assert.NoError(t, err)
	assert.True(t, adv.Completed)
}

func TestAdvanceQuestionAppended(t *testing.T) {
	// starts with 3 questions / 2 responses; the server appends question 4
	// on the 3rd poll attempt: the flow must jump to it and stop, not burn
	// attempts 4..12
	before := questionnaire(3, 2)
	after := questionnaire(4, 3)
	repo := &fakeRepo{snaps: []Questionnaire{
		before,                   // Load
		questionnaire(3, 2),      // attempt 1: submission not visible yet
		questionnaire(3, 3),      // attempt 2: response landed, no new question
		after,                    // attempt 3: question appended
	}}
	f := newTestFlow(t, repo)
	assert.Equal(t, 2, f.CurrentIndex(), "initial index resolves to the first unanswered question")

	adv, err := f.SubmitAnswer(context.Background(), Answer{QuestionID: "q3", Text: "answer"})
	assert.NoError(t, err)
	assert.False(t, adv.Completed)
	assert.Equal(t, 3, adv.Index)
	assert.Equal(t, "q4", adv.Question.ID)
	assert.Equal(t, 3, adv.Attempts)
	assert.Equal(t, 1+3, repo.gets(), "polling must stop at the attempt that observed progress")
}

func TestAdvanceCompletionMidPoll(t *testing.T) {
	// responses reach the target on attempt 5 of 12: halt immediately with
	// completed, regardless of question count
	snaps := []Questionnaire{questionnaire(10, 9)} // Load
	for i := 0; i < 4; i++ {
		snaps = append(snaps, questionnaire(10, 9))
	}
	snaps = append(snaps, questionnaire(10, 10))
	repo := &fakeRepo{snaps: snaps}
	f := newTestFlow(t, repo)

	adv, err := f.SubmitAnswer(context.Background(), Answer{QuestionID: "q10", Text: "answer"})
	assert.NoError(t, err)
	assert.True(t, adv.Completed)
	assert.Equal(t, 5, adv.Attempts)
	assert.Equal(t, 1+5, repo.gets())
}

func TestAdvanceJumpsToExistingUnanswered(t *testing.T) {
	// the next question already existed but the client had not advanced to
	// it: the poll jumps there without waiting for growth
	repo := &fakeRepo{snaps: []Questionnaire{
		questionnaire(4, 2),
		questionnaire(4, 3), // q3 answered; q4 is pending at a later index
	}}
	f := newTestFlow(t, repo)
	assert.Equal(t, 2, f.CurrentIndex())

	adv, err := f.SubmitAnswer(context.Background(), Answer{QuestionID: "q3", Text: "answer"})
	assert.NoError(t, err)
	assert.Equal(t, 3, adv.Index)
	assert.Equal(t, "q4", adv.Question.ID)
}

func TestAdvanceNeverDecreasesIndex(t *testing.T) {
	// a server answer ordering quirk leaves an earlier question unanswered:
	// the poll must not move the display backwards
	before := questionnaire(4, 3)
	odd := questionnaire(4, 3)
	odd.Responses = []Response{
		{QuestionID: "q1"},
		{QuestionID: "q3"},
		{QuestionID: "q4"},
	} // q2 unanswered, index 1 < currentIndex
	repo := &fakeRepo{snaps: []Questionnaire{before, odd}}
	f := newTestFlow(t, repo)
	assert.Equal(t, 3, f.CurrentIndex())

	_, err := f.SubmitAnswer(context.Background(), Answer{QuestionID: "q4", Text: "answer"})
	assert.ErrorIs(t, err, ErrNoNewQuestion)
	assert.Equal(t, 3, f.CurrentIndex(), "advancement may only move the display forward")
}

func TestAdvanceRetriesFetchErrors(t *testing.T) {
	// transient fetch errors mid-poll are retried silently
	repo := &fakeRepo{
		snaps:   []Questionnaire{questionnaire(3, 2), questionnaire(3, 2), questionnaire(3, 2), questionnaire(4, 3)},
		getErrs: map[int]error{2: errors.New("boom"), 3: errors.New("boom")},
	}
	f := newTestFlow(t, repo)

	adv, err := f.SubmitAnswer(context.Background(), Answer{QuestionID: "q3", Text: "answer"})
	assert.NoError(t, err)
	assert.Equal(t, 3, adv.Index)
}

func TestAdvanceSurfacesFinalFetchError(t *testing.T) {
	repo := &fakeRepo{snaps: []Questionnaire{questionnaire(3, 2)}, getErrs: map[int]error{}}
	for i := 2; i <= 13; i++ { // every poll attempt fails
		repo.getErrs[i] = errors.New("boom")
	}
	f := newTestFlow(t, repo)

	_, err := f.SubmitAnswer(context.Background(), Answer{QuestionID: "q3", Text: "answer"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoNewQuestion)
	assert.Equal(t, 1+12, repo.gets())
}

func TestAdvanceSubmissionFailureAborts(t *testing.T) {
	repo := &fakeRepo{
		snaps:       []Questionnaire{questionnaire(3, 2)},
		submitErr:   errors.New("network down"),
		submitDelay: 2 * time.Millisecond,
	}
	f := newTestFlow(t, repo)

	_, err := f.SubmitAnswer(context.Background(), Answer{QuestionID: "q3", Text: "answer"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
	assert.Less(t, repo.gets(), 1+12, "a failed submission must stop the waiting loop early")
	assert.Equal(t, 2, f.CurrentIndex(), "local state is not rolled back")
}

func TestAdvanceCancellation(t *testing.T) {
	repo := &fakeRepo{snaps: []Questionnaire{questionnaire(3, 2)}}
	f := newTestFlow(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(2 * time.Millisecond)
		cancel()
	}()
	_, err := f.SubmitAnswer(ctx, Answer{QuestionID: "q3", Text: "answer"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, repo.gets(), 1+12)
}

func TestIdempotentRefetch(t *testing.T) {
	// re-fetching with no server-side change yields identical arrays and
	// leaves the displayed question alone
	repo := &fakeRepo{snaps: []Questionnaire{questionnaire(3, 2)}}
	f := newTestFlow(t, repo)
	first := f.Snapshot()
	idx := f.CurrentIndex()

	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	second := f.Snapshot()
	assert.Equal(t, first.Questions, second.Questions)
	assert.Equal(t, first.Responses, second.Responses)
	assert.Equal(t, idx, f.CurrentIndex())
}
