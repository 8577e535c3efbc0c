package nurtureapi

import (
	"context"

	"github.com/nurturehq/nurture/core/child"
)

// ChildRepository serves the parent profile endpoints; children ride along
// on the profile resource.
type ChildRepository struct {
	client *Client
}

var _ child.Repository = (*ChildRepository)(nil)

func NewChildRepository(client *Client) *ChildRepository {
	return &ChildRepository{client: client}
}

func (r *ChildRepository) GetProfile(ctx context.Context) (child.Parent, error) {
	var profile child.Parent
	err := r.client.get(ctx, "/v1/profile", &profile)
	return profile, err
}

func (r *ChildRepository) UpdateProfile(ctx context.Context, patch child.ProfilePatch) (child.Parent, error) {
	var profile child.Parent
	err := r.client.patch(ctx, "/v1/profile", patch, &profile)
	return profile, err
}
