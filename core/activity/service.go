package activity

import (
	"context"

	"github.com/nurturehq/nurture/core"
)

type (
	Repository interface {
		GetActivity(ctx context.Context, childID, feature string) (Activity, error)
		StartActivity(ctx context.Context, childID, feature string) (Activity, error)
		CompleteActivity(ctx context.Context, childID, feature string, sub Submission) (Activity, error)
		SendChatMessage(ctx context.Context, childID, message string) (ChatMessage, error)
		ChatHistory(ctx context.Context, childID string) ([]ChatMessage, error)
	}

	// Service runs the fetch → start → complete cycle shared by every
	// activity feature. Business failures come back on the response
	// envelope and are surfaced without retry.
	Service struct {
		repo Repository
		log  core.Logger
	}
)

func NewService(repo Repository, log core.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (svc *Service) Get(ctx context.Context, childID, feature string) (Activity, error) {
	if !KnownFeature(feature) {
		return Activity{}, ErrUnknownFeature
	}
	return svc.repo.GetActivity(ctx, childID, feature)
}

// Start moves a pending activity to in_progress. Starting an activity that
// is already running is a no-op server-side; completed ones are refused
// locally.
func (svc *Service) Start(ctx context.Context, childID, feature string) (Activity, error) {
	act, err := svc.Get(ctx, childID, feature)
	if err != nil {
		return Activity{}, err
	}
	if act.Status == StatusCompleted {
		return Activity{}, ErrAlreadyCompleted
	}
	if act.Status == StatusInProgress {
		return act, nil
	}
	return svc.repo.StartActivity(ctx, childID, feature)
}

// Complete submits the activity's payload. The input is validated before
// dispatch; the remote decides scoring and the resulting state.
func (svc *Service) Complete(ctx context.Context, childID, feature string, sub Submission) (Activity, error) {
	if !KnownFeature(feature) {
		return Activity{}, ErrUnknownFeature
	}
	if err := sub.Validate(); err != nil {
		return Activity{}, err
	}
	act, err := svc.repo.GetActivity(ctx, childID, feature)
	if err != nil {
		return Activity{}, err
	}
	switch act.Status {
	case StatusCompleted:
		return Activity{}, ErrAlreadyCompleted
	case StatusPending:
		return Activity{}, ErrNotStarted
	}
	return svc.repo.CompleteActivity(ctx, childID, feature, sub)
}

// Chat sends one parent message and returns the assistant reply.
func (svc *Service) Chat(ctx context.Context, childID, message string) (ChatMessage, error) {
	message = core.CleanString(message)
	if message == "" {
		return ChatMessage{}, core.NewValidationError(ErrEmptySubmission,
			core.FieldError{Field: "message", Error: "a message is required"})
	}
	return svc.repo.SendChatMessage(ctx, childID, message)
}

func (svc *Service) ChatHistory(ctx context.Context, childID string) ([]ChatMessage, error) {
	return svc.repo.ChatHistory(ctx, childID)
}
