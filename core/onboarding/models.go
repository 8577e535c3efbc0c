package onboarding

import (
	"errors"

	"github.com/volatiletech/null/v8"

	"github.com/nurturehq/nurture/core"
)

// Statuses reported by the server for a questionnaire.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Question types.
const (
	TypeText    = "text"
	TypeChoice  = "multiple_choice"
	TypeRating  = "rating"
	TypeBoolean = "boolean"
)

var (
	// errors
	ErrAnswerRequired   = errors.New("an answer is required for this question")
	ErrQuestionMismatch = errors.New("answer does not match the current question")
	ErrUnknownOption    = errors.New("selected option does not belong to this question")
)

type (
	// Option is one selectable choice of a choice-like question.
	Option struct {
		ID    string      `json:"id"`
		Text  string      `json:"text"`
		Value null.String `json:"value"`
	}

	// Question is server-produced; the client never invents question content.
	Question struct {
		ID       string   `json:"id"`
		Text     string   `json:"text"`
		Type     string   `json:"type"`
		Required bool     `json:"required"`
		Options  []Option `json:"options,omitempty"`
	}

	// Response records the answer to one question.
	Response struct {
		QuestionID string         `json:"question_id"`
		Answer     null.String    `json:"answer"`
		OptionID   null.String    `json:"option_id"`
		AnsweredAt core.Timestamp `json:"answered_at"`
	}

	// Questionnaire is the full onboarding state for one child as last
	// fetched from the server. Questions are appended by the server, never
	// removed or reordered; at most one response exists per question.
	Questionnaire struct {
		ID        string     `json:"id"`
		ParentID  string     `json:"parent_id"`
		ChildID   string     `json:"child_id"`
		Status    string     `json:"status"`
		Target    int        `json:"target_questions"` // metadata; the enforced target comes from config
		Questions []Question `json:"questions"`
		Responses []Response `json:"responses"`
	}

	// Answer is the submission payload for one question.
	Answer struct {
		QuestionID string `json:"questionId"`
		Text       string `json:"answer,omitempty"`
		OptionID   string `json:"optionId,omitempty"`
	}
)

// IsChoice reports whether answers select one of the question's options.
func (q Question) IsChoice() bool {
	switch q.Type {
	case TypeChoice, TypeRating, TypeBoolean:
		return true
	}
	return false
}

func (q Question) hasOption(id string) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// Validate gates an answer before any network dispatch.
func (a *Answer) Validate(q Question) error {
	a.Text = core.CleanString(a.Text)
	if a.QuestionID != q.ID {
		return ErrQuestionMismatch
	}
	if q.Required && a.Text == "" && a.OptionID == "" {
		return core.NewValidationError(ErrAnswerRequired,
			core.FieldError{Field: "answer", Error: ErrAnswerRequired.Error()})
	}
	if a.OptionID != "" && !q.hasOption(a.OptionID) {
		return core.NewValidationError(ErrUnknownOption,
			core.FieldError{Field: "optionId", Error: ErrUnknownOption.Error()})
	}
	return nil
}

// IsTerminal reports completion: target responses recorded or the server
// says completed. The two signals are equivalent.
func (qn *Questionnaire) IsTerminal(target int) bool {
	return len(qn.Responses) >= target || qn.Status == StatusCompleted
}

// AnsweredIDs returns the set of question ids that have a response.
func (qn *Questionnaire) AnsweredIDs() map[string]bool {
	ids := make(map[string]bool, len(qn.Responses))
	for _, r := range qn.Responses {
		ids[r.QuestionID] = true
	}
	return ids
}

// FirstUnansweredIndex returns the index of the first question without a
// response, or len(Questions) when everything known is answered.
func (qn *Questionnaire) FirstUnansweredIndex() int {
	answered := qn.AnsweredIDs()
	for i, q := range qn.Questions {
		if !answered[q.ID] {
			return i
		}
	}
	return len(qn.Questions)
}
