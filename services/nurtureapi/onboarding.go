package nurtureapi

import (
	"context"
	"fmt"

	"github.com/nurturehq/nurture/core/onboarding"
)

// OnboardingRepository serves the questionnaire endpoints.
type OnboardingRepository struct {
	client *Client
}

var _ onboarding.Repository = (*OnboardingRepository)(nil)

func NewOnboardingRepository(client *Client) *OnboardingRepository {
	return &OnboardingRepository{client: client}
}

func (r *OnboardingRepository) GetQuestionnaire(ctx context.Context, childID string) (onboarding.Questionnaire, error) {
	var qn onboarding.Questionnaire
	err := r.client.get(ctx, fmt.Sprintf("/v1/children/%s/onboarding", childID), &qn)
	return qn, err
}

func (r *OnboardingRepository) SubmitAnswer(ctx context.Context, childID string, ans onboarding.Answer) error {
	return r.client.post(ctx, fmt.Sprintf("/v1/children/%s/onboarding/answers", childID), ans, nil)
}
