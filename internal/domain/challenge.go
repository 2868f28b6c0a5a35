package domain

import (
	"fmt"
	"time"
)

// Difficulty tiers a challenge can be published under.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Cialdini persuasion principles used to tag challenge content.
const (
	PrincipleAuthority   = "authority"
	PrincipleReciprocity = "reciprocity"
	PrincipleScarcity    = "scarcity"
	PrincipleSocialProof = "social_proof"
	PrincipleLiking      = "liking"
	PrincipleCommitment  = "commitment"
)

// OptionsPerQuestion is the fixed number of choices every question carries.
const OptionsPerQuestion = 4

var (
	validDifficulties = map[string]bool{
		DifficultyBeginner:     true,
		DifficultyIntermediate: true,
		DifficultyAdvanced:     true,
	}
	validPrinciples = map[string]bool{
		PrincipleAuthority:   true,
		PrincipleReciprocity: true,
		PrincipleScarcity:    true,
		PrincipleSocialProof: true,
		PrincipleLiking:      true,
		PrincipleCommitment:  true,
	}
)

// Question is a single multiple-choice item with exactly one correct option.
type Question struct {
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correct_answer" yaml:"correct_answer"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
}

// Challenge is an immutable scenario owned by the content store.
type Challenge struct {
	ID                string     `json:"id" yaml:"id"`
	Title             string     `json:"title" yaml:"title"`
	Description       string     `json:"description" yaml:"description"`
	Scenario          string     `json:"scenario" yaml:"scenario"`
	Category          string     `json:"category" yaml:"category"`
	Difficulty        string     `json:"difficulty" yaml:"difficulty"`
	CialdiniPrinciple string     `json:"cialdini_principle" yaml:"cialdini_principle"`
	Questions         []Question `json:"questions" yaml:"questions"`
	Points            int        `json:"points" yaml:"points"`
	TimeLimitSeconds  *int       `json:"time_limit_seconds,omitempty" yaml:"time_limit_seconds,omitempty"`
	Tips              []string   `json:"tips" yaml:"tips"`
	RealCaseReference string     `json:"real_case_reference,omitempty" yaml:"real_case_reference,omitempty"`
	CreatedAt         time.Time  `json:"created_at" yaml:"created_at,omitempty"`
}

// Validate checks the publishing constraints of a challenge definition.
func (c Challenge) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: challenge id is required", ErrValidation)
	}
	if !validDifficulties[c.Difficulty] {
		return fmt.Errorf("%w: challenge %s: unknown difficulty %q", ErrValidation, c.ID, c.Difficulty)
	}
	if !validPrinciples[c.CialdiniPrinciple] {
		return fmt.Errorf("%w: challenge %s: unknown cialdini principle %q", ErrValidation, c.ID, c.CialdiniPrinciple)
	}
	if c.Points <= 0 {
		return fmt.Errorf("%w: challenge %s: points must be positive", ErrValidation, c.ID)
	}
	if c.TimeLimitSeconds != nil && *c.TimeLimitSeconds <= 0 {
		return fmt.Errorf("%w: challenge %s: time limit must be positive", ErrValidation, c.ID)
	}
	if len(c.Questions) == 0 {
		return fmt.Errorf("%w: challenge %s: at least one question is required", ErrValidation, c.ID)
	}
	for i, q := range c.Questions {
		if len(q.Options) != OptionsPerQuestion {
			return fmt.Errorf("%w: challenge %s question %d: expected %d options, got %d", ErrValidation, c.ID, i, OptionsPerQuestion, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: challenge %s question %d: correct answer out of range", ErrValidation, c.ID, i)
		}
	}
	return nil
}

// PublicQuestion is a question without its answer key.
type PublicQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// PublicChallenge is the view of a challenge that is safe to send before grading.
type PublicChallenge struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Scenario          string           `json:"scenario"`
	Category          string           `json:"category"`
	Difficulty        string           `json:"difficulty"`
	CialdiniPrinciple string           `json:"cialdini_principle"`
	Questions         []PublicQuestion `json:"questions"`
	Points            int              `json:"points"`
	TimeLimitSeconds  *int             `json:"time_limit_seconds,omitempty"`
	RealCaseReference string           `json:"real_case_reference,omitempty"`
}

// Public strips answer keys and explanations.
func (c Challenge) Public() PublicChallenge {
	questions := make([]PublicQuestion, len(c.Questions))
	for i, q := range c.Questions {
		questions[i] = PublicQuestion{Question: q.Question, Options: append([]string(nil), q.Options...)}
	}
	return PublicChallenge{
		ID:                c.ID,
		Title:             c.Title,
		Description:       c.Description,
		Scenario:          c.Scenario,
		Category:          c.Category,
		Difficulty:        c.Difficulty,
		CialdiniPrinciple: c.CialdiniPrinciple,
		Questions:         questions,
		Points:            c.Points,
		TimeLimitSeconds:  c.TimeLimitSeconds,
		RealCaseReference: c.RealCaseReference,
	}
}
