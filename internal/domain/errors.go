package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Specific errors wrap one of these so callers can branch with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateKey is returned by stores when a unique constraint rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
)

var (
	ErrQuizNotFound     = fmt.Errorf("quiz %w", ErrNotFound)
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrAnswerNotFound   = fmt.Errorf("answer %w", ErrNotFound)

	// ErrAlreadySubmitted means the user already answered the current activation.
	ErrAlreadySubmitted = fmt.Errorf("answer already submitted: %w", ErrConflict)

	ErrQuestionNotLive     = fmt.Errorf("question is not live: %w", ErrInvalidState)
	ErrQuestionAlreadyLive = fmt.Errorf("question is live: %w", ErrInvalidState)
	ErrQuizDraft           = fmt.Errorf("quiz is still a draft: %w", ErrInvalidState)
)
