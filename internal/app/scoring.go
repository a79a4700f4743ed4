package app

import (
	"math"
	"strings"
	"time"
)

const (
	// BaseScore is awarded for any correct answer.
	BaseScore = 100
	// MaxSpeedBonus is added for an instant correct answer and decays
	// linearly to zero at the time limit.
	MaxSpeedBonus = 900
)

// ScoreResult is the server-side verdict for one submission.
type ScoreResult struct {
	IsCorrect      bool
	ResponseTimeMs *int64
	Score          int
}

// Score grades answer against hero. startedAt may be nil when the question has
// no timing information, in which case a correct answer earns BaseScore.
func Score(startedAt *time.Time, timeLimitSeconds int, submittedAt time.Time, answer, hero string) ScoreResult {
	res := ScoreResult{IsCorrect: normalize(answer) == normalize(hero)}

	if startedAt != nil {
		rt := submittedAt.Sub(*startedAt).Milliseconds()
		if rt < 0 {
			rt = 0
		}
		res.ResponseTimeMs = &rt
	}

	if !res.IsCorrect {
		return res
	}
	if res.ResponseTimeMs == nil || timeLimitSeconds <= 0 {
		res.Score = BaseScore
		return res
	}

	limitMs := float64(timeLimitSeconds) * 1000
	elapsed := math.Min(float64(*res.ResponseTimeMs), limitMs)
	ratio := math.Max(0, 1-elapsed/limitMs)
	res.Score = BaseScore + int(math.Round(ratio*MaxSpeedBonus))
	return res
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
