package app

import (
	"context"
	"time"

	"live-trivia-service/internal/domain"
)

// QuizStore persists quizzes.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	UpdateQuizStatus(ctx context.Context, quizID string, status domain.QuizStatus, now time.Time) (domain.Quiz, error)
}

// QuestionStore persists questions and their lifecycle columns.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, question domain.Question) error
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	// ListQuestions returns a quiz's questions ordered by order_index.
	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	// ListLiveQuestions returns every question with is_active and status=live.
	ListLiveQuestions(ctx context.Context) ([]domain.Question, error)
	// ActivateExclusive deactivates every sibling of questionID (pending,
	// ended now) and makes questionID the live question, started now.
	ActivateExclusive(ctx context.Context, quizID, questionID string, now time.Time) (domain.Question, error)
	// EndQuestion completes questionID and reports whether the row changed. A
	// non-nil startedAt restricts the write to the live activation that began
	// then, so a restart in between is left alone.
	EndQuestion(ctx context.Context, questionID string, startedAt *time.Time, now time.Time) (domain.Question, bool, error)
	DeleteQuestion(ctx context.Context, questionID string) error
}

// AnswerStore persists answers. (user_id, question_id) is unique; InsertAnswer
// returns domain.ErrDuplicateKey when that constraint rejects the row.
type AnswerStore interface {
	InsertAnswer(ctx context.Context, answer domain.Answer) error
	// UpdateAnswer replaces the stored row only while it was submitted before
	// activeSince; otherwise it returns domain.ErrAlreadySubmitted.
	UpdateAnswer(ctx context.Context, answer domain.Answer, activeSince time.Time) error
	GetAnswer(ctx context.Context, userID, questionID string) (domain.Answer, error)
	// ListAnswersByQuiz and ListAnswersByQuestion order by submitted_at.
	ListAnswersByQuiz(ctx context.Context, quizID string) ([]domain.Answer, error)
	ListAnswersByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error)
}

// UserStore persists participant profiles. Id and email are both unique.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUsers(ctx context.Context, userIDs []string) (map[string]domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
	// MigrateUser replaces staleID by canonical: answers move to canonical.ID,
	// the stale row is removed and canonical is inserted, as one unit.
	MigrateUser(ctx context.Context, staleID string, canonical domain.User) error
}

// Store is the full record store the engine runs against.
type Store interface {
	QuizStore
	QuestionStore
	AnswerStore
	UserStore
}

// LeaderboardCache is a short-lived read-through cache for aggregated rows.
type LeaderboardCache interface {
	Get(ctx context.Context, quizID string) ([]domain.LeaderboardRow, bool)
	Set(ctx context.Context, quizID string, rows []domain.LeaderboardRow, ttl time.Duration)
	Invalidate(ctx context.Context, quizID string)
}

// MediaResolver turns a stored media reference into a fetchable URL.
type MediaResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// MediaCache keeps proxied media bytes for a short time.
type MediaCache interface {
	Get(ctx context.Context, key string) (MediaObject, bool)
	Set(ctx context.Context, key string, obj MediaObject, ttl time.Duration)
}

// Notifier receives lifecycle events after the state change has been stored.
type Notifier interface {
	QuestionLive(ctx context.Context, question domain.Question)
	QuestionEnded(ctx context.Context, question domain.Question)
	QuizWinners(ctx context.Context, quiz domain.Quiz, winners []domain.LeaderboardRow)
}
