package gateway_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/gateway"
)

func TestSanitizeMasksVoiceLine(t *testing.T) {
	started := time.Now()
	q := domain.Question{
		ID:                "q1",
		QuizID:            "quiz-1",
		Type:              domain.QuestionVoiceLine,
		Content:           "https://cdn.example.com/secret/kez.mp3",
		CorrectAnswerHero: "Kez",
		AnswerImageURL:    "https://cdn.example.com/kez.png",
		TimeLimitSeconds:  30,
		Status:            domain.QuestionLive,
		IsActive:          true,
		StartedAt:         &started,
	}

	public := gateway.Sanitize(q, "")
	if public.Content != "/api/media/questions/q1" {
		t.Fatalf("expected proxied content, got %q", public.Content)
	}
	raw, err := json.Marshal(public)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, leak := range []string{"Kez", "kez.png", "secret"} {
		if strings.Contains(string(raw), leak) {
			t.Fatalf("sanitized question leaks %q: %s", leak, raw)
		}
	}

	if _, ok := gateway.Reveal(q, ""); ok {
		t.Fatalf("expected live question to stay hidden")
	}
}

func TestSanitizeKeepsImageContent(t *testing.T) {
	q := domain.Question{ID: "q2", Type: domain.QuestionImage, Content: "https://cdn.example.com/silhouette.png"}
	if got := gateway.Sanitize(q, "/media/").Content; got != q.Content {
		t.Fatalf("expected image content untouched, got %q", got)
	}
}

func TestRevealCompletedQuestion(t *testing.T) {
	q := domain.Question{
		ID:                "q3",
		Type:              domain.QuestionVoiceLine,
		Content:           "https://cdn.example.com/secret/kez.mp3",
		CorrectAnswerHero: "Kez",
		AnswerImageURL:    "https://cdn.example.com/kez.png",
		Status:            domain.QuestionCompleted,
	}
	revealed, ok := gateway.Reveal(q, "/media")
	if !ok {
		t.Fatalf("expected completed question to be revealed")
	}
	if revealed.CorrectAnswerHero != "Kez" || revealed.AnswerImageURL == "" {
		t.Fatalf("expected answer key, got %+v", revealed)
	}
	if revealed.Content != "/media/q3" {
		t.Fatalf("expected voice url to stay masked, got %q", revealed.Content)
	}
}
