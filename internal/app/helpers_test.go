package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/infra/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu      sync.Mutex
	live    []domain.Question
	ended   []domain.Question
	winners [][]domain.LeaderboardRow
}

func (n *recordingNotifier) QuestionLive(_ context.Context, q domain.Question) {
	n.mu.Lock()
	n.live = append(n.live, q)
	n.mu.Unlock()
}

func (n *recordingNotifier) QuestionEnded(_ context.Context, q domain.Question) {
	n.mu.Lock()
	n.ended = append(n.ended, q)
	n.mu.Unlock()
}

func (n *recordingNotifier) QuizWinners(_ context.Context, _ domain.Quiz, rows []domain.LeaderboardRow) {
	n.mu.Lock()
	n.winners = append(n.winners, rows)
	n.mu.Unlock()
}

type fixture struct {
	store       *memory.Store
	clock       *fakeClock
	notifier    *recordingNotifier
	lifecycle   *app.Lifecycle
	submissions *app.Submissions
	leaderboard *app.Leaderboard
	controller  *app.Controller
	watchdog    *app.Watchdog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		clock:    newFakeClock(),
		notifier: &recordingNotifier{},
	}
	f.lifecycle = app.NewLifecycleWithClock(f.store, nil, f.clock.Now)
	f.submissions = app.NewSubmissions(f.store, f.store, app.NewIdentities(f.store, nil), nil)
	f.leaderboard = app.NewLeaderboard(f.store, f.store, nil, 0, nil)
	f.controller = app.NewController(f.store, f.lifecycle, f.leaderboard, f.notifier, nil)
	f.watchdog = app.NewWatchdog(f.lifecycle, f.notifier, time.Second, nil)

	ctx := context.Background()
	if err := f.store.CreateQuiz(ctx, domain.Quiz{ID: "quiz-1", Name: "Heroes", Status: domain.QuizLive}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i, id := range []string{"p1", "p2"} {
		q := domain.Question{
			ID:                id,
			QuizID:            "quiz-1",
			Type:              domain.QuestionVoiceLine,
			Content:           "https://cdn.example.com/voice/" + id + ".mp3",
			CorrectAnswerHero: "Kez",
			TimeLimitSeconds:  10,
			OrderIndex:        i,
			Status:            domain.QuestionPending,
		}
		if err := f.store.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	return f
}

func (f *fixture) submit(t *testing.T, userID, questionID, answer string) (domain.Answer, error) {
	t.Helper()
	return f.submissions.Submit(context.Background(), app.SubmitRequest{
		Identity:    domain.Identity{UserID: userID, DisplayName: "player-" + userID},
		QuizID:      "quiz-1",
		QuestionID:  questionID,
		Answer:      answer,
		SubmittedAt: f.clock.Now(),
	})
}
