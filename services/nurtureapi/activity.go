package nurtureapi

import (
	"context"
	"fmt"

	"github.com/nurturehq/nurture/core/activity"
)

// ActivityRepository serves the per-child, per-feature activity endpoints.
type ActivityRepository struct {
	client *Client
}

var _ activity.Repository = (*ActivityRepository)(nil)

func NewActivityRepository(client *Client) *ActivityRepository {
	return &ActivityRepository{client: client}
}

func (r *ActivityRepository) GetActivity(ctx context.Context, childID, feature string) (activity.Activity, error) {
	var act activity.Activity
	err := r.client.get(ctx, fmt.Sprintf("/v1/children/%s/activities/%s", childID, feature), &act)
	return act, err
}

func (r *ActivityRepository) StartActivity(ctx context.Context, childID, feature string) (activity.Activity, error) {
	var act activity.Activity
	err := r.client.patch(ctx, fmt.Sprintf("/v1/children/%s/activities/%s", childID, feature),
		map[string]string{"status": activity.StatusInProgress}, &act)
	return act, err
}

func (r *ActivityRepository) CompleteActivity(ctx context.Context, childID, feature string, sub activity.Submission) (activity.Activity, error) {
	var act activity.Activity
	err := r.client.post(ctx, fmt.Sprintf("/v1/children/%s/activities/%s/complete", childID, feature), sub, &act)
	return act, err
}

func (r *ActivityRepository) SendChatMessage(ctx context.Context, childID, message string) (activity.ChatMessage, error) {
	var reply activity.ChatMessage
	err := r.client.post(ctx, fmt.Sprintf("/v1/children/%s/chat", childID),
		map[string]string{"message": message}, &reply)
	return reply, err
}

func (r *ActivityRepository) ChatHistory(ctx context.Context, childID string) ([]activity.ChatMessage, error) {
	var history []activity.ChatMessage
	err := r.client.get(ctx, fmt.Sprintf("/v1/children/%s/chat", childID), &history)
	return history, err
}
