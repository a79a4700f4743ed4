package gateway

import (
	"sync"
	"time"
)

// DefaultThrottleWindow bounds leaderboard broadcasts per quiz.
const DefaultThrottleWindow = 2 * time.Second

// throttle coalesces bursts of requests per key into one call of fire at the
// end of the window opened by the first request.
type throttle struct {
	window  time.Duration
	fire    func(key string)
	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
}

func newThrottle(window time.Duration, fire func(key string)) *throttle {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	return &throttle{window: window, fire: fire, pending: make(map[string]*time.Timer)}
}

// Schedule reports whether it armed a new timer for key.
func (t *throttle) Schedule(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	if _, ok := t.pending[key]; ok {
		return false
	}
	t.pending[key] = time.AfterFunc(t.window, func() {
		t.mu.Lock()
		delete(t.pending, key)
		stopped := t.stopped
		t.mu.Unlock()
		if !stopped {
			t.fire(key)
		}
	})
	return true
}

func (t *throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for key, timer := range t.pending {
		timer.Stop()
		delete(t.pending, key)
	}
}
