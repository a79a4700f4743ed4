package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/infra/memory"
)

// gatedAnswers parks every GetAnswer caller until gate is closed so the
// read-then-update path can be raced deterministically.
type gatedAnswers struct {
	*memory.Store
	arrived chan struct{}
	gate    chan struct{}
}

func (g *gatedAnswers) GetAnswer(ctx context.Context, userID, questionID string) (domain.Answer, error) {
	a, err := g.Store.GetAnswer(ctx, userID, questionID)
	g.arrived <- struct{}{}
	<-g.gate
	return a, err
}

func TestSubmitScoresOnServer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.lifecycle.Activate(ctx, "p1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	f.clock.Advance(3 * time.Second)

	answer, err := f.submit(t, "userA", "p1", "Kez")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !answer.IsCorrect || answer.Score != 730 {
		t.Fatalf("expected correct answer scoring 730, got %+v", answer)
	}
	if _, err := f.store.GetUser(ctx, "userA"); err != nil {
		t.Fatalf("expected user to be provisioned: %v", err)
	}
}

func TestSubmitRejectsMissingAndInactiveQuestions(t *testing.T) {
	f := newFixture(t)

	if _, err := f.submit(t, "userA", "nope", "Kez"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.submit(t, "userA", "p1", "Kez"); !errors.Is(err, domain.ErrQuestionNotLive) {
		t.Fatalf("expected not live, got %v", err)
	}
	if _, err := f.submissions.Submit(context.Background(), app.SubmitRequest{
		Identity:   domain.Identity{UserID: "userA"},
		QuizID:     "other-quiz",
		QuestionID: "p1",
	}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign quiz, got %v", err)
	}
}

func TestSubmitConflictThenReactivationReplaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.lifecycle.Activate(ctx, "p1"); err != nil {
		t.Fatalf("activate: %v", err)
	}

	f.clock.Advance(time.Second)
	first, err := f.submit(t, "userA", "p1", "Mei")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.Score != 0 {
		t.Fatalf("expected wrong answer to score 0, got %d", first.Score)
	}

	f.clock.Advance(time.Second)
	if _, err := f.submit(t, "userA", "p1", "Kez"); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, _, err := f.lifecycle.End(ctx, "p1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	f.clock.Advance(time.Second)
	if _, err := f.lifecycle.Activate(ctx, "p1"); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	f.clock.Advance(time.Second)

	third, err := f.submit(t, "userA", "p1", "Kez")
	if err != nil {
		t.Fatalf("third submit: %v", err)
	}
	if third.ID != first.ID {
		t.Fatalf("expected the stored row to be replaced in place")
	}
	if !third.IsCorrect || third.Score != 910 {
		t.Fatalf("expected rescored answer 910, got %+v", third)
	}

	answers, _ := f.store.ListAnswersByQuestion(ctx, "p1")
	if len(answers) != 1 || answers[0].Answer != "Kez" {
		t.Fatalf("expected a single replaced answer, got %+v", answers)
	}

	if _, err := f.submit(t, "userA", "p1", "Kez"); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected conflict within the new activation, got %v", err)
	}
}

func TestSubmitConcurrentDuplicatesStoreOneRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.lifecycle.Activate(ctx, "p1"); err != nil {
		t.Fatalf("activate: %v", err)
	}

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := f.submit(t, "userA", "p1", "Kez")
			errs <- err
		}()
	}
	for i := 0; i < workers; i++ {
		if err := <-errs; err != nil && !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	answers, _ := f.store.ListAnswersByQuestion(ctx, "p1")
	if len(answers) != 1 {
		t.Fatalf("expected exactly one stored answer, got %d", len(answers))
	}
}

func TestSubmitReactivationAllowsOneUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.lifecycle.Activate(ctx, "p1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	f.clock.Advance(time.Second)
	if _, err := f.submit(t, "userA", "p1", "Mei"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	f.clock.Advance(time.Second)
	if _, err := f.lifecycle.Activate(ctx, "p2"); err != nil {
		t.Fatalf("activate p2: %v", err)
	}
	if _, err := f.lifecycle.Activate(ctx, "p1"); err != nil {
		t.Fatalf("reactivate p1: %v", err)
	}
	f.clock.Advance(time.Second)

	const workers = 2
	answers := &gatedAnswers{Store: f.store, arrived: make(chan struct{}, workers), gate: make(chan struct{})}
	submissions := app.NewSubmissions(f.store, answers, app.NewIdentities(f.store, nil), nil)

	errs := make(chan error, workers)
	for _, hero := range []string{"Kez", "Ana"} {
		go func() {
			_, err := submissions.Submit(ctx, app.SubmitRequest{
				Identity:    domain.Identity{UserID: "userA", DisplayName: "player-userA"},
				QuizID:      "quiz-1",
				QuestionID:  "p1",
				Answer:      hero,
				SubmittedAt: f.clock.Now(),
			})
			errs <- err
		}()
	}
	for i := 0; i < workers; i++ {
		<-answers.arrived
	}
	close(answers.gate)

	accepted := 0
	for i := 0; i < workers; i++ {
		err := <-errs
		switch {
		case err == nil:
			accepted++
		case !errors.Is(err, domain.ErrAlreadySubmitted):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one update per reactivation, got %d", accepted)
	}
}
