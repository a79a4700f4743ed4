package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/gateway"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestLeaderboardCacheRoundTripAndExpiry(t *testing.T) {
	mr, client := newClient(t)
	cache := NewLeaderboardCache(client, nil)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "quiz-1"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	rows := []domain.LeaderboardRow{{UserID: "u1", UserName: "Ana", TotalScore: 910, TotalAnswers: 1, CorrectAnswers: 1}}
	cache.Set(ctx, "quiz-1", rows, time.Second)

	got, ok := cache.Get(ctx, "quiz-1")
	if !ok || len(got) != 1 || got[0].TotalScore != 910 || got[0].UserName != "Ana" {
		t.Fatalf("unexpected cached rows %+v (hit=%v)", got, ok)
	}
	if !mr.Exists("quiz:quiz-1:leaderboard") {
		t.Fatalf("expected key quiz:quiz-1:leaderboard")
	}

	mr.FastForward(2 * time.Second)
	if _, ok := cache.Get(ctx, "quiz-1"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestLeaderboardCacheInvalidate(t *testing.T) {
	_, client := newClient(t)
	cache := NewLeaderboardCache(client, nil)
	ctx := context.Background()

	cache.Set(ctx, "quiz-1", []domain.LeaderboardRow{{UserID: "u1"}}, time.Minute)
	cache.Invalidate(ctx, "quiz-1")
	if _, ok := cache.Get(ctx, "quiz-1"); ok {
		t.Fatalf("expected invalidated entry to miss")
	}
}

func TestMediaCacheStoresBinary(t *testing.T) {
	mr, client := newClient(t)
	cache := NewMediaCache(client, nil)
	ctx := context.Background()

	body := []byte{0x49, 0x44, 0x33, 0x00, 0xff}
	cache.Set(ctx, "q1", app.MediaObject{ContentType: "audio/mpeg", Body: body}, time.Minute)

	got, ok := cache.Get(ctx, "q1")
	if !ok || got.ContentType != "audio/mpeg" || string(got.Body) != string(body) {
		t.Fatalf("unexpected media %+v (hit=%v)", got, ok)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := cache.Get(ctx, "q1"); ok {
		t.Fatalf("expected media entry to expire")
	}
}

func TestBusForwardsEvents(t *testing.T) {
	_, client := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(client, "", nil)
	received := make(chan gateway.Event, 1)
	if err := bus.Start(ctx, func(ev gateway.Event) { received <- ev }); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer bus.Close()

	payload, _ := json.Marshal(map[string]string{"quizId": "quiz-1"})
	if err := bus.Publish(ctx, gateway.Event{Room: "quiz-1", Global: true, Type: gateway.EventQuestionLive, Payload: payload}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case ev := <-received:
		if ev.Room != "quiz-1" || !ev.Global || ev.Type != gateway.EventQuestionLive {
			t.Fatalf("unexpected event %+v", ev)
		}
		if string(ev.Payload) != string(payload) {
			t.Fatalf("payload mismatch: %s", ev.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event not forwarded")
	}
}

func TestBusStartRequiresCallback(t *testing.T) {
	_, client := newClient(t)
	if err := NewBus(client, "x", nil).Start(context.Background(), nil); err == nil {
		t.Fatalf("expected error without callback")
	}
}
