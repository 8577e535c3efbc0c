package child

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/nurturehq/nurture/core"
)

// Genders accepted by the profile forms.
const (
	GenderFemale = "female"
	GenderMale   = "male"
	GenderOther  = "other"
)

type (
	// Child is one entry of the parent profile's children array.
	Child struct {
		ID                  string         `json:"id"`
		Name                string         `json:"name"`
		BirthDate           core.Timestamp `json:"birth_date"`
		Gender              string         `json:"gender"`
		Notes               null.String    `json:"notes,omitempty"`
		QuestionnaireStatus null.String    `json:"questionnaire_status,omitempty"`
		CreatedAt           core.Timestamp `json:"created_at"`
		UpdatedAt           core.Timestamp `json:"updated_at"`
	}

	// Parent is the profile resource; children are embedded, there is no
	// standalone child resource on the wire.
	Parent struct {
		ID        string         `json:"id"`
		Email     string         `json:"email"`
		Name      string         `json:"name"`
		Phone     null.String    `json:"phone,omitempty"`
		Children  []Child        `json:"children"`
		CreatedAt core.Timestamp `json:"created_at"`
		UpdatedAt core.Timestamp `json:"updated_at"`
	}

	// NewChild contains information needed to add a child.
	NewChild struct {
		Name      string    `json:"name" validate:"required,notblank"`
		BirthDate time.Time `json:"birth_date" validate:"required,birthdate"`
		Gender    string    `json:"gender" validate:"required,oneof=female male other"`
		Notes     string    `json:"notes"`
	}

	// UpdateChild defines what may be changed on an existing child; empty
	// fields keep their current value.
	UpdateChild struct {
		Name      string    `json:"name" validate:"omitempty,notblank"`
		BirthDate time.Time `json:"birth_date" validate:"omitempty,birthdate"`
		Gender    string    `json:"gender" validate:"omitempty,oneof=female male other"`
		Notes     *string   `json:"notes"`
	}

	// UpdateParent defines what may be changed on the parent profile.
	UpdateParent struct {
		Name  string `json:"name" validate:"omitempty,notblank"`
		Phone string `json:"phone" validate:"omitempty,e164"`
	}

	// ProfilePatch is the PATCH payload for the profile resource. Children
	// edits rewrite the whole array; there is no per-child endpoint.
	ProfilePatch struct {
		Name     *string `json:"name,omitempty"`
		Phone    *string `json:"phone,omitempty"`
		Children []Child `json:"children,omitempty"`
	}
)

func (nc *NewChild) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	return core.Validate.Struct(nc)
}

func (uc *UpdateChild) Validate() error {
	uc.Name = core.CleanString(uc.Name)
	return core.Validate.Struct(uc)
}

func (up *UpdateParent) Validate() error {
	up.Name = core.CleanString(up.Name)
	up.Phone = core.CleanString(up.Phone)
	return core.Validate.Struct(up)
}

// ChildByID returns the child and true when present.
func (p *Parent) ChildByID(id string) (Child, bool) {
	for _, c := range p.Children {
		if c.ID == id {
			return c, true
		}
	}
	return Child{}, false
}
