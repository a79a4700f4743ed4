package app

import (
	"context"
	"fmt"
	"time"

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/logger"
)

// Lifecycle owns the pending -> live -> completed state machine of questions.
// It only mutates stored state; broadcasting is the caller's job.
type Lifecycle struct {
	questions QuestionStore
	log       *logger.Logger
	now       func() time.Time
}

func NewLifecycle(questions QuestionStore, log *logger.Logger) *Lifecycle {
	return NewLifecycleWithClock(questions, log, time.Now)
}

// NewLifecycleWithClock allows deterministic timestamps in tests.
func NewLifecycleWithClock(questions QuestionStore, log *logger.Logger, now func() time.Time) *Lifecycle {
	return &Lifecycle{questions: questions, log: logger.OrNop(log).With("component", "lifecycle"), now: now}
}

// Activate makes questionID the only live question of its quiz. Siblings are
// reset to pending, which also ends any question left live by a crash.
func (l *Lifecycle) Activate(ctx context.Context, questionID string) (domain.Question, error) {
	q, err := l.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	updated, err := l.questions.ActivateExclusive(ctx, q.QuizID, q.ID, l.now())
	if err != nil {
		return domain.Question{}, fmt.Errorf("activate question %s: %w", questionID, err)
	}
	l.log.Info("question activated", "quiz_id", q.QuizID, "question_id", q.ID, "time_limit", q.TimeLimitSeconds)
	return updated, nil
}

// End completes questionID. ended is false when the question was already
// completed, in which case nothing is written.
func (l *Lifecycle) End(ctx context.Context, questionID string) (q domain.Question, ended bool, err error) {
	q, ended, err = l.questions.EndQuestion(ctx, questionID, nil, l.now())
	if err != nil {
		return domain.Question{}, false, fmt.Errorf("end question %s: %w", questionID, err)
	}
	if ended {
		l.log.Info("question ended", "quiz_id", q.QuizID, "question_id", q.ID)
	}
	return q, ended, nil
}

// EndActivation completes q only if it is still live from the same start.
// A question restarted after q was read is left running and ended is false.
func (l *Lifecycle) EndActivation(ctx context.Context, q domain.Question) (domain.Question, bool, error) {
	if q.StartedAt == nil {
		return q, false, nil
	}
	updated, ended, err := l.questions.EndQuestion(ctx, q.ID, q.StartedAt, l.now())
	if err != nil {
		return domain.Question{}, false, fmt.Errorf("end question %s: %w", q.ID, err)
	}
	if ended {
		l.log.Info("question ended", "quiz_id", q.QuizID, "question_id", q.ID)
	}
	return updated, ended, nil
}

// Current returns the live question of quizID, or nil when none is live.
func (l *Lifecycle) Current(ctx context.Context, quizID string) (*domain.Question, error) {
	questions, err := l.questions.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if questions[i].IsLive() {
			q := questions[i]
			return &q, nil
		}
	}
	return nil, nil
}

// Expired lists live questions whose time budget has elapsed at now.
func (l *Lifecycle) Expired(ctx context.Context, now time.Time) ([]domain.Question, error) {
	live, err := l.questions.ListLiveQuestions(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Question
	for _, q := range live {
		if q.Expired(now) {
			out = append(out, q)
		}
	}
	return out, nil
}

// Now exposes the lifecycle clock so collaborators agree on time.
func (l *Lifecycle) Now() time.Time {
	return l.now()
}
