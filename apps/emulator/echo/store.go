package emulatorapi

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/nurturehq/nurture/core"
	"github.com/nurturehq/nurture/core/activity"
	"github.com/nurturehq/nurture/core/child"
	"github.com/nurturehq/nurture/core/onboarding"
)

type (
	account struct {
		ID           string
		Email        string
		Name         string
		PasswordHash []byte
	}

	refreshGrant struct {
		email   string
		expires time.Time
	}

	// store holds the whole emulator state in memory, guarded by one mutex.
	store struct {
		mu             sync.Mutex
		accounts       map[string]*account      // email -> account
		refresh        map[string]refreshGrant  // refresh token -> grant
		parents        map[string]*child.Parent // account id -> profile
		questionnaires map[string]*onboarding.Questionnaire // child id
		activities     map[string]*activity.Activity        // child id + "/" + feature
		chats          map[string][]activity.ChatMessage    // child id
	}
)

func newStore() *store {
	return &store{
		accounts:       make(map[string]*account),
		refresh:        make(map[string]refreshGrant),
		parents:        make(map[string]*child.Parent),
		questionnaires: make(map[string]*onboarding.Questionnaire),
		activities:     make(map[string]*activity.Activity),
		chats:          make(map[string][]activity.ChatMessage),
	}
}

// questionBank is the pool the emulator "generates" onboarding questions
// from, in order.
var questionBank = []onboarding.Question{
	{Text: "What does a typical weekday look like for your child?", Type: onboarding.TypeText, Required: true},
	{Text: "Which of these best describes your child's temperament?", Type: onboarding.TypeChoice, Required: true,
		Options: bankOptions("Easy-going", "Spirited", "Cautious", "A mix")},
	{Text: "How does your child usually react to new situations?", Type: onboarding.TypeChoice, Required: true,
		Options: bankOptions("Dives right in", "Watches first, then joins", "Needs encouragement", "Avoids them")},
	{Text: "Does your child have a regular bedtime routine?", Type: onboarding.TypeBoolean, Required: true,
		Options: bankOptions("Yes", "No")},
	{Text: "How interested is your child in drawing, music or other arts?", Type: onboarding.TypeRating, Required: true,
		Options: bankOptions("1", "2", "3", "4", "5")},
	{Text: "What activities make your child lose track of time?", Type: onboarding.TypeText, Required: true},
	{Text: "How often does your child play with other children?", Type: onboarding.TypeChoice, Required: true,
		Options: bankOptions("Daily", "A few times a week", "Weekly", "Rarely")},
	{Text: "Is there anything your child is currently struggling with?", Type: onboarding.TypeText, Required: false},
	{Text: "How curious is your child about how things work?", Type: onboarding.TypeRating, Required: true,
		Options: bankOptions("1", "2", "3", "4", "5")},
	{Text: "Does your child prefer playing indoors or outdoors?", Type: onboarding.TypeChoice, Required: true,
		Options: bankOptions("Indoors", "Outdoors", "Both equally")},
	{Text: "What is one thing you hope your child learns this year?", Type: onboarding.TypeText, Required: true},
	{Text: "Does your child ask a lot of questions?", Type: onboarding.TypeBoolean, Required: true,
		Options: bankOptions("Yes", "No")},
}

func bankOptions(texts ...string) []onboarding.Option {
	opts := make([]onboarding.Option, 0, len(texts))
	for _, t := range texts {
		opts = append(opts, onboarding.Option{ID: uuid.NewString(), Text: t, Value: null.StringFrom(t)})
	}
	return opts
}

// questionnaireFor returns the child's questionnaire, creating it with the
// first question when first asked for. Callers must hold mu.
func (st *store) questionnaireFor(parentID, childID string, target int) *onboarding.Questionnaire {
	qn, exists := st.questionnaires[childID]
	if !exists {
		qn = &onboarding.Questionnaire{
			ID:       uuid.NewString(),
			ParentID: parentID,
			ChildID:  childID,
			Status:   onboarding.StatusPending,
			Target:   target,
		}
		st.appendQuestion(qn)
		st.questionnaires[childID] = qn
	}
	return qn
}

// appendQuestion reveals the next bank question. Callers must hold mu.
func (st *store) appendQuestion(qn *onboarding.Questionnaire) {
	next := len(qn.Questions)
	if next >= len(questionBank) {
		return
	}
	q := questionBank[next]
	q.ID = fmt.Sprintf("%s-q%d", qn.ID, next+1)
	qn.Questions = append(qn.Questions, q)
}

// canned activity content, by feature

func (st *store) activityFor(childID, feature string) *activity.Activity {
	key := childID + "/" + feature
	act, exists := st.activities[key]
	if !exists {
		act = seedActivity(childID, feature)
		st.activities[key] = act
	}
	return act
}

func seedActivity(childID, feature string) *activity.Activity {
	act := &activity.Activity{
		ID:      uuid.NewString(),
		ChildID: childID,
		Feature: feature,
		Status:  activity.StatusPending,
	}
	switch feature {
	case activity.FeatureDailyTask:
		act.Title = "Build a paper boat together"
		act.Description = null.StringFrom("A 15-minute hands-on activity to practice following steps.")
	case activity.FeatureWeeklyQuiz:
		act.Title = "This week's parenting quiz"
		act.Questions = []activity.ActivityQuestion{
			{ID: uuid.NewString(), Text: "Your child refuses dinner. What do you try first?",
				Choices: []string{"Offer an alternative", "Keep calm and wait", "Explain why eating matters"}},
			{ID: uuid.NewString(), Text: "How much screen time is recommended for a 5-year-old per day?",
				Choices: []string{"Up to 1 hour", "2-3 hours", "No limit"}},
		}
	case activity.FeatureWeeklyInterest:
		act.Title = "Interest check-in"
		act.Questions = []activity.ActivityQuestion{
			{ID: uuid.NewString(), Text: "Which new activity caught your child's attention this week?",
				Choices: []string{"Building things", "Storytelling", "Sports", "Music"}},
		}
	case activity.FeatureWeeklyPotential:
		act.Title = "Potential spotlight"
		act.Description = null.StringFrom("Observe one moment where your child solved a problem on their own and note it down.")
	case activity.FeatureSparkInterest:
		act.Title = "Spark: kitchen science"
		act.Content = null.StringFrom("Mix baking soda and vinegar in a bottle and watch the balloon inflate. Ask your child what they think is happening.")
	case activity.FeatureCareerInsights:
		act.Title = "Careers for curious builders"
		act.Content = null.StringFrom("Children who love taking things apart often thrive in engineering, architecture and product design. Feed that curiosity with construction sets and 'how it works' books.")
	case activity.FeatureMoralStory:
		act.Title = "The honest woodcutter"
		act.Content = null.StringFrom("A woodcutter drops his axe into the river. When a spirit offers him a golden axe instead, he refuses: it is not his. His honesty is rewarded with all three axes.")
	}
	return act
}

// assistant reply for the chat surface; keyed on nothing, the emulator is
// not very bright.
func cannedReply(message string) activity.ChatMessage {
	return activity.ChatMessage{
		Role:    "assistant",
		Content: fmt.Sprintf("That's a great question! Regarding %q: every child develops at their own pace. Keep observing, keep encouraging.", message),
		SentAt:  core.NewTimestamp(core.NowFunc()),
	}
}
