package child

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nurturehq/nurture/core"
	testutil "github.com/nurturehq/nurture/tests"
)

type fakeRepo struct {
	profile     Parent
	lastPatch   *ProfilePatch
	updateCalls int
}

func (r *fakeRepo) GetProfile(_ context.Context) (Parent, error) {
	return r.profile, nil
}

func (r *fakeRepo) UpdateProfile(_ context.Context, patch ProfilePatch) (Parent, error) {
	r.lastPatch = &patch
	r.updateCalls++
	if patch.Name != nil {
		r.profile.Name = *patch.Name
	}
	if patch.Children != nil {
		r.profile.Children = patch.Children
	}
	return r.profile, nil
}

func setup(nChildren int) (*Service, *fakeRepo) {
	repo := &fakeRepo{profile: Parent{ID: "parent-1", Email: "p@example.com", Name: "Test Parent"}}
	for i := 1; i <= nChildren; i++ {
		repo.profile.Children = append(repo.profile.Children, Child{
			ID:     fmt.Sprintf("child-%d", i),
			Name:   fmt.Sprintf("Child %d", i),
			Gender: GenderFemale,
		})
	}
	return NewService(testutil.Config(), repo), repo
}

func validNewChild() NewChild {
	return NewChild{
		Name:      "Sam",
		BirthDate: core.NowFunc().AddDate(-4, 0, 0),
		Gender:    GenderOther,
	}
}

func TestAddChild(t *testing.T) {
	svc, repo := setup(2)

	profile, err := svc.AddChild(context.Background(), validNewChild())
	assert.NoError(t, err)
	assert.Len(t, profile.Children, 3)
	assert.Equal(t, "Sam", profile.Children[2].Name)
	assert.Len(t, repo.lastPatch.Children, 3, "the whole children array is rewritten")
}

func TestAddChildCapEnforcedLocally(t *testing.T) {
	// a sixth child is rejected before any network write
	svc, repo := setup(5)

	_, err := svc.AddChild(context.Background(), validNewChild())
	assert.ErrorIs(t, err, ErrMaxChildren)
	assert.True(t, core.IsBusiness(err))
	assert.Zero(t, repo.updateCalls, "no write may be issued")
}

func TestAddChildValidation(t *testing.T) {
	svc, repo := setup(0)

	tests := []struct {
		name string
		nc   NewChild
	}{
		{"missing name", NewChild{BirthDate: core.NowFunc().AddDate(-2, 0, 0), Gender: GenderMale}},
		{"blank name", NewChild{Name: "   ", BirthDate: core.NowFunc().AddDate(-2, 0, 0), Gender: GenderMale}},
		{"future birth date", NewChild{Name: "Sam", BirthDate: core.NowFunc().AddDate(1, 0, 0), Gender: GenderMale}},
		{"too old", NewChild{Name: "Sam", BirthDate: core.NowFunc().AddDate(-20, 0, 0), Gender: GenderMale}},
		{"bad gender", NewChild{Name: "Sam", BirthDate: core.NowFunc().AddDate(-2, 0, 0), Gender: "unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddChild(context.Background(), tt.nc)
			assert.Error(t, err)
			assert.Zero(t, repo.updateCalls)
		})
	}
}

func TestUpdateChildRewritesArray(t *testing.T) {
	svc, repo := setup(3)

	profile, err := svc.UpdateChild(context.Background(), "child-2", UpdateChild{Name: "Renamed"})
	assert.NoError(t, err)
	assert.Len(t, repo.lastPatch.Children, 3, "edit-in-place falls back to rewriting the whole array")
	got, ok := profile.ChildByID("child-2")
	assert.True(t, ok)
	assert.Equal(t, "Renamed", got.Name)
	// untouched siblings survive the rewrite
	other, _ := profile.ChildByID("child-1")
	assert.Equal(t, "Child 1", other.Name)
}

func TestUpdateChildNotFound(t *testing.T) {
	svc, repo := setup(1)
	_, err := svc.UpdateChild(context.Background(), "child-9", UpdateChild{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, repo.updateCalls)
}

func TestUpdateProfile(t *testing.T) {
	svc, repo := setup(1)
	profile, err := svc.UpdateProfile(context.Background(), UpdateParent{Name: " New Name "})
	assert.NoError(t, err)
	assert.Equal(t, "New Name", profile.Name)
	assert.Nil(t, repo.lastPatch.Children, "profile edits must not touch the children array")
}
