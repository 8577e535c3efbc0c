package activity

import (
	"errors"

	"github.com/volatiletech/null/v8"

	"github.com/nurturehq/nurture/core"
)

// Features are the per-child activity resources.
const (
	FeatureDailyTask      = "daily-task"
	FeatureWeeklyQuiz     = "weekly-quiz"
	FeatureWeeklyInterest = "weekly-interest"
	FeatureWeeklyPotential = "weekly-potential"
	FeatureSparkInterest  = "spark-interest"
	FeatureCareerInsights = "career-insights"
	FeatureMoralStory     = "moral-story"
)

// Statuses of an activity instance.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusSkipped    = "skipped"
)

var (
	// errors
	ErrUnknownFeature   = errors.New("unknown activity feature")
	ErrAlreadyCompleted = errors.New("activity already completed")
	ErrNotStarted       = errors.New("activity has not been started")
	ErrEmptySubmission  = errors.New("a submission needs answers or a text entry")
)

// Features lists every activity feature, in display order.
var Features = []string{
	FeatureDailyTask,
	FeatureWeeklyQuiz,
	FeatureWeeklyInterest,
	FeatureWeeklyPotential,
	FeatureSparkInterest,
	FeatureCareerInsights,
	FeatureMoralStory,
}

type (
	// ActivityQuestion is one prompt of a quiz/survey-style activity.
	ActivityQuestion struct {
		ID      string   `json:"id"`
		Text    string   `json:"text"`
		Choices []string `json:"choices,omitempty"`
	}

	// Activity is the current instance of one feature for one child.
	Activity struct {
		ID          string             `json:"id"`
		ChildID     string             `json:"child_id"`
		Feature     string             `json:"feature"`
		Status      string             `json:"status"`
		Title       string             `json:"title"`
		Description null.String        `json:"description,omitempty"`
		Content     null.String        `json:"content,omitempty"` // story text, career insight body, ...
		Questions   []ActivityQuestion `json:"questions,omitempty"`
		StartedAt   core.Timestamp     `json:"started_at"`
		CompletedAt core.Timestamp     `json:"completed_at"`
	}

	// AnswerSelection is one answered quiz/survey question.
	AnswerSelection struct {
		QuestionID     string `json:"questionId"`
		SelectedAnswer string `json:"selectedAnswer"`
		SelectedIndex  int    `json:"selectedIndex"`
	}

	// Submission completes an activity: free text, answer selections, or
	// both, depending on the feature.
	Submission struct {
		Text    string            `json:"text,omitempty"`
		Answers []AnswerSelection `json:"answers,omitempty"`
	}

	// ChatMessage is one turn of the chatbot conversation.
	ChatMessage struct {
		Role    string         `json:"role"` // "parent" or "assistant"
		Content string         `json:"content"`
		SentAt  core.Timestamp `json:"sent_at"`
	}
)

// KnownFeature reports whether f names an activity resource.
func KnownFeature(f string) bool {
	for _, known := range Features {
		if known == f {
			return true
		}
	}
	return false
}

func (s *Submission) Validate() error {
	s.Text = core.CleanString(s.Text)
	if s.Text == "" && len(s.Answers) == 0 {
		return core.NewValidationError(ErrEmptySubmission,
			core.FieldError{Field: "text", Error: ErrEmptySubmission.Error()})
	}
	return nil
}
