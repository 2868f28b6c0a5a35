// Package grading compares submitted answers against question answer keys.
package grading

import (
	"fmt"

	"tegalsec-progression/internal/domain"
)

// Mode selects how unanswered questions are treated.
type Mode int

const (
	// Strict rejects any unanswered question (challenge attempts).
	Strict Mode = iota
	// AllowUnanswered grades unanswered questions as incorrect (timed quiz auto-submit).
	AllowUnanswered
)

// Result is the ordered correctness vector of a submission.
type Result struct {
	Questions    []domain.QuestionResult
	CorrectCount int
}

// Total returns the number of graded questions.
func (r Result) Total() int { return len(r.Questions) }

// AllCorrect reports whether every question was answered correctly.
func (r Result) AllCorrect() bool { return r.Total() > 0 && r.CorrectCount == r.Total() }

// Correctness returns the per-question flags in order.
func (r Result) Correctness() []bool {
	out := make([]bool, len(r.Questions))
	for i, q := range r.Questions {
		out[i] = q.IsCorrect
	}
	return out
}

// Grade is pure: the same questions and answers always produce the same result.
func Grade(questions []domain.Question, answers []*int, mode Mode) (Result, error) {
	if len(answers) != len(questions) {
		return Result{}, fmt.Errorf("%w: expected %d answers, got %d", domain.ErrValidation, len(questions), len(answers))
	}

	unanswered := 0
	for i, answer := range answers {
		if answer == nil {
			unanswered++
			continue
		}
		if *answer < 0 || *answer >= len(questions[i].Options) {
			return Result{}, fmt.Errorf("%w: answer %d for question %d is out of range", domain.ErrValidation, *answer, i)
		}
	}
	if unanswered > 0 && mode == Strict {
		return Result{}, fmt.Errorf("%w: %d of %d questions unanswered", domain.ErrIncompleteSubmission, unanswered, len(questions))
	}

	res := Result{Questions: make([]domain.QuestionResult, len(questions))}
	for i, q := range questions {
		correct := answers[i] != nil && *answers[i] == q.CorrectAnswer
		if correct {
			res.CorrectCount++
		}
		res.Questions[i] = domain.QuestionResult{
			QuestionIndex: i,
			IsCorrect:     correct,
			Explanation:   q.Explanation,
		}
	}
	return res, nil
}
