package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/infra/memory"
	"live-trivia-service/internal/infra/storage"
)

func TestMediaFetchCachesUpstream(t *testing.T) {
	ctx := context.Background()
	var hits int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-voice"))
	}))
	defer upstream.Close()

	store := memory.NewStore()
	_ = store.CreateQuiz(ctx, domain.Quiz{ID: "quiz-1"})
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q1", QuizID: "quiz-1", Type: domain.QuestionVoiceLine, Content: upstream.URL + "/kez.mp3"})

	media := app.NewMedia(store, storage.PassthroughResolver{}, memory.NewMediaCache(), upstream.Client(), time.Minute, 0, nil)
	for i := 0; i < 3; i++ {
		obj, err := media.Fetch(ctx, "q1")
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if obj.ContentType != "audio/mpeg" || string(obj.Body) != "ID3-voice" {
			t.Fatalf("unexpected media: %+v", obj)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected upstream hit once, got %d", hits)
	}
}

func TestMediaFetchErrors(t *testing.T) {
	ctx := context.Background()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer upstream.Close()

	store := memory.NewStore()
	_ = store.CreateQuiz(ctx, domain.Quiz{ID: "quiz-1"})
	_ = store.CreateQuestion(ctx, domain.Question{ID: "big", QuizID: "quiz-1", Content: upstream.URL})
	_ = store.CreateQuestion(ctx, domain.Question{ID: "empty", QuizID: "quiz-1"})
	media := app.NewMedia(store, storage.PassthroughResolver{}, nil, upstream.Client(), time.Minute, 16, nil)

	if _, err := media.Fetch(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := media.Fetch(ctx, "empty"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for empty content, got %v", err)
	}
	if _, err := media.Fetch(ctx, "big"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected size limit error, got %v", err)
	}
}
