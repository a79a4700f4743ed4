package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/logger"
)

// SubmitRequest is one participant answer as received at the boundary.
type SubmitRequest struct {
	Identity    domain.Identity
	QuizID      string
	QuestionID  string
	Answer      string
	SubmittedAt time.Time
}

// Submissions validates, scores and persists answers.
type Submissions struct {
	questions  QuestionStore
	answers    AnswerStore
	identities *Identities
	log        *logger.Logger
	newID      func() string
}

func NewSubmissions(questions QuestionStore, answers AnswerStore, identities *Identities, log *logger.Logger) *Submissions {
	return &Submissions{
		questions:  questions,
		answers:    answers,
		identities: identities,
		log:        logger.OrNop(log).With("component", "submissions"),
		newID:      func() string { return uuid.NewString() },
	}
}

// Submit records req and returns the stored answer with server-computed
// correctness, response time and score. One answer is kept per user and
// question; an answer from an earlier activation is overwritten once the
// question has been reactivated.
func (s *Submissions) Submit(ctx context.Context, req SubmitRequest) (domain.Answer, error) {
	if strings.TrimSpace(req.QuestionID) == "" {
		return domain.Answer{}, fmt.Errorf("question id required: %w", domain.ErrInvalidInput)
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now()
	}

	question, err := s.questions.GetQuestion(ctx, req.QuestionID)
	if err != nil {
		return domain.Answer{}, err
	}
	if req.QuizID != "" && question.QuizID != req.QuizID {
		return domain.Answer{}, domain.ErrQuestionNotFound
	}
	if !question.IsLive() {
		return domain.Answer{}, domain.ErrQuestionNotLive
	}

	user, err := s.identities.Ensure(ctx, req.Identity)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("ensure user: %w", err)
	}

	result := Score(question.StartedAt, question.TimeLimitSeconds, req.SubmittedAt, req.Answer, question.CorrectAnswerHero)
	answer := domain.Answer{
		UserID:         user.ID,
		QuizID:         question.QuizID,
		QuestionID:     question.ID,
		Answer:         req.Answer,
		IsCorrect:      result.IsCorrect,
		ResponseTimeMs: result.ResponseTimeMs,
		Score:          result.Score,
		SubmittedAt:    req.SubmittedAt,
	}

	existing, err := s.answers.GetAnswer(ctx, user.ID, question.ID)
	switch {
	case err == nil:
		if !answeredBefore(existing, question) {
			return domain.Answer{}, domain.ErrAlreadySubmitted
		}
		answer.ID = existing.ID
		if err := s.answers.UpdateAnswer(ctx, answer, *question.StartedAt); err != nil {
			if errors.Is(err, domain.ErrAlreadySubmitted) {
				return domain.Answer{}, domain.ErrAlreadySubmitted
			}
			return domain.Answer{}, fmt.Errorf("update answer: %w", err)
		}
		s.log.Debug("answer replaced after reactivation", "question_id", question.ID, "user_id", user.ID)
		return answer, nil
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Answer{}, err
	}

	answer.ID = s.newID()
	if err := s.answers.InsertAnswer(ctx, answer); err != nil {
		if !errors.Is(err, domain.ErrDuplicateKey) {
			return domain.Answer{}, fmt.Errorf("insert answer: %w", err)
		}
		return s.reconcile(ctx, answer)
	}
	return answer, nil
}

// reconcile resolves a lost insert race: the row the winner wrote is returned
// when it carries the same answer, otherwise the submission is a duplicate.
func (s *Submissions) reconcile(ctx context.Context, attempted domain.Answer) (domain.Answer, error) {
	stored, err := s.answers.GetAnswer(ctx, attempted.UserID, attempted.QuestionID)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("reconcile answer: %w", err)
	}
	if normalize(stored.Answer) == normalize(attempted.Answer) {
		return stored, nil
	}
	return domain.Answer{}, domain.ErrAlreadySubmitted
}

// answeredBefore reports whether a belongs to an activation of q that is
// older than the current one.
func answeredBefore(a domain.Answer, q domain.Question) bool {
	return q.StartedAt != nil && a.SubmittedAt.Before(*q.StartedAt)
}
