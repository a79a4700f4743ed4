package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/logger"
)

// WinnerCount is how many rows a finalized quiz announces.
const WinnerCount = 3

// Controller is the admin entry point. It guards transitions and broadcasts
// through the Notifier once the store has accepted them.
type Controller struct {
	store       Store
	lifecycle   *Lifecycle
	leaderboard *Leaderboard
	notifier    Notifier
	log         *logger.Logger
	newID       func() string
}

func NewController(store Store, lifecycle *Lifecycle, leaderboard *Leaderboard, notifier Notifier, log *logger.Logger) *Controller {
	return &Controller{
		store:       store,
		lifecycle:   lifecycle,
		leaderboard: leaderboard,
		notifier:    notifier,
		log:         logger.OrNop(log).With("component", "controller"),
		newID:       func() string { return uuid.NewString() },
	}
}

// SetNotifier swaps the broadcast sink; the gateway is built after the controller.
func (c *Controller) SetNotifier(n Notifier) {
	c.notifier = n
}

// NewQuiz carries the admin-editable quiz fields.
type NewQuiz struct {
	Name        string
	Description string
	ScheduledAt *time.Time
	Status      domain.QuizStatus
}

func (c *Controller) CreateQuiz(ctx context.Context, in NewQuiz) (domain.Quiz, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Quiz{}, fmt.Errorf("quiz name required: %w", domain.ErrInvalidInput)
	}
	if in.Status == "" {
		in.Status = domain.QuizDraft
	}
	if !in.Status.Valid() {
		return domain.Quiz{}, fmt.Errorf("quiz status %q: %w", in.Status, domain.ErrInvalidInput)
	}
	now := c.lifecycle.Now()
	quiz := domain.Quiz{
		ID:          c.newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ScheduledAt: in.ScheduledAt,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (c *Controller) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return c.store.GetQuiz(ctx, quizID)
}

func (c *Controller) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return c.store.ListQuizzes(ctx)
}

func (c *Controller) SetQuizStatus(ctx context.Context, quizID string, status domain.QuizStatus) (domain.Quiz, error) {
	if !status.Valid() {
		return domain.Quiz{}, fmt.Errorf("quiz status %q: %w", status, domain.ErrInvalidInput)
	}
	return c.store.UpdateQuizStatus(ctx, quizID, status, c.lifecycle.Now())
}

// NewQuestion carries the admin-editable question fields.
type NewQuestion struct {
	Type              domain.QuestionType
	Content           string
	ContentMetadata   map[string]any
	CorrectAnswerHero string
	AnswerImageURL    string
	TimeLimitSeconds  int
	OrderIndex        int
}

func (c *Controller) CreateQuestion(ctx context.Context, quizID string, in NewQuestion) (domain.Question, error) {
	if _, err := c.store.GetQuiz(ctx, quizID); err != nil {
		return domain.Question{}, err
	}
	switch {
	case !in.Type.Valid():
		return domain.Question{}, fmt.Errorf("question type %q: %w", in.Type, domain.ErrInvalidInput)
	case strings.TrimSpace(in.CorrectAnswerHero) == "":
		return domain.Question{}, fmt.Errorf("correct answer required: %w", domain.ErrInvalidInput)
	case in.TimeLimitSeconds <= 0:
		return domain.Question{}, fmt.Errorf("time limit must be positive: %w", domain.ErrInvalidInput)
	}
	q := domain.Question{
		ID:                c.newID(),
		QuizID:            quizID,
		Type:              in.Type,
		Content:           in.Content,
		ContentMetadata:   in.ContentMetadata,
		CorrectAnswerHero: strings.TrimSpace(in.CorrectAnswerHero),
		AnswerImageURL:    in.AnswerImageURL,
		TimeLimitSeconds:  in.TimeLimitSeconds,
		OrderIndex:        in.OrderIndex,
		Status:            domain.QuestionPending,
		CreatedAt:         c.lifecycle.Now(),
	}
	if err := c.store.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (c *Controller) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	return c.store.GetQuestion(ctx, questionID)
}

func (c *Controller) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	if _, err := c.store.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return c.store.ListQuestions(ctx, quizID)
}

// ActiveQuestion returns the live question of quizID or nil.
func (c *Controller) ActiveQuestion(ctx context.Context, quizID string) (*domain.Question, error) {
	return c.lifecycle.Current(ctx, quizID)
}

// DeleteQuestion refuses to remove a question while it is live.
func (c *Controller) DeleteQuestion(ctx context.Context, questionID string) error {
	q, err := c.store.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if q.IsLive() {
		return domain.ErrQuestionAlreadyLive
	}
	return c.store.DeleteQuestion(ctx, questionID)
}

// ActivateQuestion starts questionID and broadcasts it. Draft quizzes and
// questions that are already live are rejected.
func (c *Controller) ActivateQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	q, err := c.store.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	quiz, err := c.store.GetQuiz(ctx, q.QuizID)
	if err != nil {
		return domain.Question{}, err
	}
	if quiz.Status == domain.QuizDraft {
		return domain.Question{}, domain.ErrQuizDraft
	}
	if q.IsLive() {
		return domain.Question{}, domain.ErrQuestionAlreadyLive
	}

	updated, err := c.lifecycle.Activate(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if c.notifier != nil {
		c.notifier.QuestionLive(ctx, updated)
	}
	return updated, nil
}

// EndQuestion completes questionID and broadcasts the reveal. Ending a
// completed question returns it without a second broadcast.
func (c *Controller) EndQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	updated, ended, err := c.lifecycle.End(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if ended && c.notifier != nil {
		c.notifier.QuestionEnded(ctx, updated)
	}
	return updated, nil
}

// FinalizeQuiz ends whatever is live, completes the quiz and announces the
// top finishers.
func (c *Controller) FinalizeQuiz(ctx context.Context, quizID string) (domain.Quiz, []domain.LeaderboardRow, error) {
	if _, err := c.store.GetQuiz(ctx, quizID); err != nil {
		return domain.Quiz{}, nil, err
	}
	live, err := c.lifecycle.Current(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	if live != nil {
		if _, err := c.EndQuestion(ctx, live.ID); err != nil {
			return domain.Quiz{}, nil, err
		}
	}

	quiz, err := c.store.UpdateQuizStatus(ctx, quizID, domain.QuizCompleted, c.lifecycle.Now())
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	c.leaderboard.Invalidate(ctx, quizID)
	winners, err := c.leaderboard.Top(ctx, quizID, WinnerCount)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	c.log.Info("quiz finalized", "quiz_id", quizID, "winners", len(winners))
	if c.notifier != nil {
		c.notifier.QuizWinners(ctx, quiz, winners)
	}
	return quiz, winners, nil
}
