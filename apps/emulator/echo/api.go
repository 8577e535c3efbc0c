package emulatorapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nurturehq/nurture/core"
	"github.com/nurturehq/nurture/core/activity"
	"github.com/nurturehq/nurture/core/child"
	"github.com/nurturehq/nurture/core/onboarding"
)

// contextParent returns the signed-in parent's profile; callers must hold mu.
func (s *server) contextParent(ctx echo.Context) (*child.Parent, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, err
	}
	parent, exists := s.store.parents[claims.Subject]
	if !exists {
		return nil, errHTTPNotFound
	}
	return parent, nil
}

// Profile

func (s *server) profileRetrieve(ctx echo.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	parent, err := s.contextParent(ctx)
	if err != nil {
		return err
	}
	return ok(ctx, parent)
}

func (s *server) profileUpdate(ctx echo.Context) error {
	data := new(child.ProfilePatch)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	parent, err := s.contextParent(ctx)
	if err != nil {
		return err
	}

	now := core.NewTimestamp(core.NowFunc())
	if data.Name != nil {
		parent.Name = *data.Name
	}
	if data.Phone != nil {
		parent.Phone.SetValid(*data.Phone)
	}
	if data.Children != nil {
		if len(data.Children) > s.opts.MaxChildren {
			return fail(ctx, "maximum number of children exceeded")
		}
		for i := range data.Children {
			c := &data.Children[i]
			if c.ID == "" {
				c.ID = uuid.NewString()
				c.CreatedAt = now
			}
			c.UpdatedAt = now
		}
		parent.Children = data.Children
	}
	parent.UpdatedAt = now
	return ok(ctx, parent)
}

// Onboarding

func (s *server) onboardingRetrieve(ctx echo.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	parent, err := s.contextParent(ctx)
	if err != nil {
		return err
	}
	childID := ctx.Param("id")
	if _, exists := parent.ChildByID(childID); !exists {
		return errHTTPNotFound
	}
	return ok(ctx, s.store.questionnaireFor(parent.ID, childID, s.opts.Target))
}

func (s *server) onboardingAnswer(ctx echo.Context) error {
	data := new(onboarding.Answer)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	parent, err := s.contextParent(ctx)
	if err != nil {
		return err
	}
	childID := ctx.Param("id")
	if _, exists := parent.ChildByID(childID); !exists {
		return errHTTPNotFound
	}

	qn := s.store.questionnaireFor(parent.ID, childID, s.opts.Target)
	if qn.Status == onboarding.StatusCompleted {
		return fail(ctx, "the questionnaire is already completed")
	}
	known := false
	for _, q := range qn.Questions {
		if q.ID == data.QuestionID {
			known = true
			break
		}
	}
	if !known {
		return fail(ctx, "unknown question")
	}

	// at most one response per question; a re-submission replaces it
	resp := onboarding.Response{
		QuestionID: data.QuestionID,
		AnsweredAt: core.NewTimestamp(core.NowFunc()),
	}
	if data.Text != "" {
		resp.Answer.SetValid(data.Text)
	}
	if data.OptionID != "" {
		resp.OptionID.SetValid(data.OptionID)
	}
	replaced := false
	for i := range qn.Responses {
		if qn.Responses[i].QuestionID == resp.QuestionID {
			qn.Responses[i] = resp
			replaced = true
			break
		}
	}
	if !replaced {
		qn.Responses = append(qn.Responses, resp)
	}

	if len(qn.Responses) >= s.opts.Target {
		qn.Status = onboarding.StatusCompleted
		s.setChildOnboardingStatus(parent, childID, onboarding.StatusCompleted)
		return ok(ctx, nil)
	}
	qn.Status = onboarding.StatusInProgress
	s.setChildOnboardingStatus(parent, childID, onboarding.StatusInProgress)

	// "generate" the next question asynchronously; the client polls for it
	s.generateLater(qn)
	return ok(ctx, nil)
}

func (s *server) generateLater(qn *onboarding.Questionnaire) {
	time.AfterFunc(s.opts.GenerationDelay, func() {
		s.store.mu.Lock()
		defer s.store.mu.Unlock()
		if qn.Status != onboarding.StatusCompleted {
			s.store.appendQuestion(qn)
		}
	})
}

func (s *server) setChildOnboardingStatus(parent *child.Parent, childID, status string) {
	for i := range parent.Children {
		if parent.Children[i].ID == childID {
			parent.Children[i].QuestionnaireStatus.SetValid(status)
			return
		}
	}
}

// Activities

func (s *server) activityRetrieve(ctx echo.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	act, err := s.childActivity(ctx)
	if err != nil {
		return err
	}
	return ok(ctx, act)
}

func (s *server) activityStart(ctx echo.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	act, err := s.childActivity(ctx)
	if err != nil {
		return err
	}
	switch act.Status {
	case activity.StatusCompleted:
		return fail(ctx, "the activity is already completed")
	case activity.StatusPending:
		act.Status = activity.StatusInProgress
		act.StartedAt = core.NewTimestamp(core.NowFunc())
	}
	return ok(ctx, act)
}

func (s *server) activityComplete(ctx echo.Context) error {
	data := new(activity.Submission)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	act, err := s.childActivity(ctx)
	if err != nil {
		return err
	}
	switch act.Status {
	case activity.StatusCompleted:
		return fail(ctx, "the activity is already completed")
	case activity.StatusPending:
		return fail(ctx, "the activity has not been started")
	}
	if data.Text == "" && len(data.Answers) == 0 {
		return fail(ctx, "a submission needs answers or a text entry")
	}
	act.Status = activity.StatusCompleted
	act.CompletedAt = core.NewTimestamp(core.NowFunc())
	return ok(ctx, act)
}

// childActivity resolves the :id/:feature pair; callers must hold mu.
func (s *server) childActivity(ctx echo.Context) (*activity.Activity, error) {
	parent, err := s.contextParent(ctx)
	if err != nil {
		return nil, err
	}
	childID := ctx.Param("id")
	if _, exists := parent.ChildByID(childID); !exists {
		return nil, errHTTPNotFound
	}
	feature := ctx.Param("feature")
	if !activity.KnownFeature(feature) {
		return nil, errHTTPNotFound
	}
	return s.store.activityFor(childID, feature), nil
}

// Chat

type chatRequest struct {
	Message string `json:"message"`
}

func (s *server) chatSend(ctx echo.Context) error {
	data := new(chatRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if data.Message == "" {
		return fail(ctx, "a message is required")
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	parent, err := s.contextParent(ctx)
	if err != nil {
		return err
	}
	childID := ctx.Param("id")
	if _, exists := parent.ChildByID(childID); !exists {
		return errHTTPNotFound
	}

	reply := cannedReply(data.Message)
	s.store.chats[childID] = append(s.store.chats[childID],
		activity.ChatMessage{Role: "parent", Content: data.Message, SentAt: core.NewTimestamp(core.NowFunc())},
		reply,
	)
	return ok(ctx, reply)
}

func (s *server) chatHistory(ctx echo.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	parent, err := s.contextParent(ctx)
	if err != nil {
		return err
	}
	childID := ctx.Param("id")
	if _, exists := parent.ChildByID(childID); !exists {
		return errHTTPNotFound
	}
	return ok(ctx, s.store.chats[childID])
}
