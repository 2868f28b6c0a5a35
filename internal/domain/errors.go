package domain

import "errors"

var (
	// ErrValidation is returned for malformed submissions (wrong shape, out of range values, implausible timings).
	ErrValidation = errors.New("validation failed")
	// ErrIncompleteSubmission is returned when unanswered questions reach challenge grading.
	ErrIncompleteSubmission = errors.New("submission has unanswered questions")
	// ErrNotFound is the umbrella for unknown challenges, quizzes and records.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates a missing identity or an identity without a progression record.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDuplicateCompletion is returned when a one-shot game or quiz is submitted again.
	ErrDuplicateCompletion = errors.New("already completed")
	// ErrConflict is surfaced after concurrent writes to the same record exhausted retries.
	ErrConflict = errors.New("concurrent update conflict, retry")

	// ErrVersionConflict is returned by stores when a compare-and-swap commit lost a race.
	ErrVersionConflict = errors.New("progression record version changed")
	// ErrRecordNotFound is returned by stores when no progression record exists for a user.
	ErrRecordNotFound = errors.New("progression record not found")
)

var (
	// ErrChallengeNotFound indicates the challenge content could not be loaded.
	ErrChallengeNotFound = wrapNotFound("challenge not found")
	// ErrQuizNotFound indicates the quiz session expired, never existed or belongs to someone else.
	ErrQuizNotFound = wrapNotFound("quiz not found")
)

type notFoundError struct{ msg string }

func wrapNotFound(msg string) error { return &notFoundError{msg: msg} }

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Unwrap() error { return ErrNotFound }
