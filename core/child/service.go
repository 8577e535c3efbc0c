package child

import (
	"context"
	"errors"

	"github.com/volatiletech/null/v8"

	"github.com/nurturehq/nurture/core"
)

var (
	// errors
	ErrNotFound    = errors.New("child not found")
	ErrMaxChildren = core.NewBusinessError("maximum number of children reached")
)

type (
	Repository interface {
		GetProfile(ctx context.Context) (Parent, error)
		UpdateProfile(ctx context.Context, patch ProfilePatch) (Parent, error)
	}

	Service struct {
		repo Repository
		max  int
	}
)

func NewService(conf *core.Config, repo Repository) *Service {
	return &Service{repo: repo, max: conf.MaxChildren}
}

func (svc *Service) Profile(ctx context.Context) (Parent, error) {
	return svc.repo.GetProfile(ctx)
}

func (svc *Service) UpdateProfile(ctx context.Context, up UpdateParent) (Parent, error) {
	if err := up.Validate(); err != nil {
		return Parent{}, err
	}
	patch := ProfilePatch{}
	if up.Name != "" {
		patch.Name = &up.Name
	}
	if up.Phone != "" {
		patch.Phone = &up.Phone
	}
	return svc.repo.UpdateProfile(ctx, patch)
}

func (svc *Service) Children(ctx context.Context) ([]Child, error) {
	profile, err := svc.repo.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	return profile.Children, nil
}

// AddChild appends a child to the profile. The children cap is enforced
// here, before any network write.
func (svc *Service) AddChild(ctx context.Context, nc NewChild) (Parent, error) {
	if err := nc.Validate(); err != nil {
		return Parent{}, err
	}
	profile, err := svc.repo.GetProfile(ctx)
	if err != nil {
		return Parent{}, err
	}
	if len(profile.Children) >= svc.max {
		return Parent{}, ErrMaxChildren
	}

	now := core.NowFunc()
	children := append(profile.Children, Child{
		Name:      nc.Name,
		BirthDate: core.NewTimestamp(nc.BirthDate),
		Gender:    nc.Gender,
		Notes:     null.NewString(nc.Notes, nc.Notes != ""),
		CreatedAt: core.NewTimestamp(now),
		UpdatedAt: core.NewTimestamp(now),
	})
	return svc.repo.UpdateProfile(ctx, ProfilePatch{Children: children})
}

// UpdateChild edits one child. The profile API has no per-child endpoint,
// so the whole children array is rewritten with the edit applied in place.
func (svc *Service) UpdateChild(ctx context.Context, id string, uc UpdateChild) (Parent, error) {
	if err := uc.Validate(); err != nil {
		return Parent{}, err
	}
	profile, err := svc.repo.GetProfile(ctx)
	if err != nil {
		return Parent{}, err
	}

	children := make([]Child, len(profile.Children))
	copy(children, profile.Children)
	var found bool
	for i := range children {
		if children[i].ID != id {
			continue
		}
		found = true
		if uc.Name != "" {
			children[i].Name = uc.Name
		}
		if !uc.BirthDate.IsZero() {
			children[i].BirthDate = core.NewTimestamp(uc.BirthDate)
		}
		if uc.Gender != "" {
			children[i].Gender = uc.Gender
		}
		if uc.Notes != nil {
			children[i].Notes = null.NewString(*uc.Notes, *uc.Notes != "")
		}
		children[i].UpdatedAt = core.NewTimestamp(core.NowFunc())
		break
	}
	if !found {
		return Parent{}, ErrNotFound
	}
	return svc.repo.UpdateProfile(ctx, ProfilePatch{Children: children})
}
