package app

import (
	"context"
	"time"

	"live-trivia-service/internal/logger"
)

// DefaultWatchdogInterval is the polling period for expired questions.
const DefaultWatchdogInterval = 5 * time.Second

// Watchdog ends live questions whose time limit has passed. Expiry is detected
// by polling, so a question may overrun by up to one interval.
type Watchdog struct {
	lifecycle *Lifecycle
	notifier  Notifier
	interval  time.Duration
	log       *logger.Logger
}

func NewWatchdog(lifecycle *Lifecycle, notifier Notifier, interval time.Duration, log *logger.Logger) *Watchdog {
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	return &Watchdog{
		lifecycle: lifecycle,
		notifier:  notifier,
		interval:  interval,
		log:       logger.OrNop(log).With("component", "watchdog"),
	}
}

// Run ticks until ctx is canceled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.Info("watchdog started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.log.Info("watchdog stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick ends every expired question once and reports how many it ended.
// Failures are logged; they never stop later questions or later ticks.
func (w *Watchdog) Tick(ctx context.Context) int {
	expired, err := w.lifecycle.Expired(ctx, w.lifecycle.Now())
	if err != nil {
		w.log.Error("list expired questions", "error", err)
		return 0
	}
	ended := 0
	for _, q := range expired {
		updated, ok, err := w.lifecycle.EndActivation(ctx, q)
		if err != nil {
			w.log.Error("auto-end question", "question_id", q.ID, "error", err)
			continue
		}
		if !ok {
			w.log.Debug("question changed since scan", "question_id", q.ID)
			continue
		}
		ended++
		w.log.Info("question auto-ended", "quiz_id", q.QuizID, "question_id", q.ID)
		if w.notifier != nil {
			w.notifier.QuestionEnded(ctx, updated)
		}
	}
	return ended
}
