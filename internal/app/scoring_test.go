package app_test

import (
	"testing"
	"time"

	"live-trivia-service/internal/app"
)

func TestScoreBoundaries(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		elapsed time.Duration
		answer  string
		want    int
	}{
		{"instant", 0, "Kez", 1000},
		{"at limit", 120 * time.Second, "Kez", 100},
		{"past limit", 200 * time.Second, "Kez", 100},
		{"halfway", 60 * time.Second, "kez", 550},
		{"wrong fast", 0, "Mei", 0},
		{"wrong late", 119 * time.Second, "Mei", 0},
	}
	for _, tc := range cases {
		res := app.Score(&start, 120, start.Add(tc.elapsed), tc.answer, "Kez")
		if res.Score != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, res.Score)
		}
	}
}

func TestScoreScenarioThreeSecondsOfTen(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	res := app.Score(&start, 10, start.Add(3*time.Second), "  kEz ", "Kez")
	if !res.IsCorrect {
		t.Fatalf("expected normalized answer to be correct")
	}
	if res.Score != 730 {
		t.Fatalf("expected 730, got %d", res.Score)
	}
	if res.ResponseTimeMs == nil || *res.ResponseTimeMs != 3000 {
		t.Fatalf("expected 3000ms response time, got %v", res.ResponseTimeMs)
	}
}

func TestScoreWithoutTiming(t *testing.T) {
	res := app.Score(nil, 10, time.Now(), "Kez", "Kez")
	if res.Score != app.BaseScore || res.ResponseTimeMs != nil {
		t.Fatalf("expected base score without timing, got %+v", res)
	}
}

func TestScoreClampsNegativeResponseTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	res := app.Score(&start, 10, start.Add(-time.Second), "Kez", "Kez")
	if res.ResponseTimeMs == nil || *res.ResponseTimeMs != 0 {
		t.Fatalf("expected clamped response time, got %v", res.ResponseTimeMs)
	}
	if res.Score != 1000 {
		t.Fatalf("expected 1000, got %d", res.Score)
	}
}
