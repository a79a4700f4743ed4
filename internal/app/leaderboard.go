package app

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/logger"
)

// DefaultLeaderboardTTL is how long aggregated rows are reused.
const DefaultLeaderboardTTL = time.Second

// Leaderboard aggregates answers into per-user rows.
type Leaderboard struct {
	answers AnswerStore
	users   UserStore
	cache   LeaderboardCache
	ttl     time.Duration
	sf      singleflight.Group
	log     *logger.Logger
}

// NewLeaderboard builds an aggregator; cache may be nil to always hit the store.
func NewLeaderboard(answers AnswerStore, users UserStore, cache LeaderboardCache, ttl time.Duration, log *logger.Logger) *Leaderboard {
	if ttl <= 0 {
		ttl = DefaultLeaderboardTTL
	}
	return &Leaderboard{
		answers: answers,
		users:   users,
		cache:   cache,
		ttl:     ttl,
		log:     logger.OrNop(log).With("component", "leaderboard"),
	}
}

// Rows returns the ordered leaderboard of quizID.
func (l *Leaderboard) Rows(ctx context.Context, quizID string) ([]domain.LeaderboardRow, error) {
	if l.cache != nil {
		if rows, ok := l.cache.Get(ctx, quizID); ok {
			return rows, nil
		}
	}

	result, err, _ := l.sf.Do(quizID, func() (interface{}, error) {
		answers, err := l.answers.ListAnswersByQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		users, err := l.users.GetUsers(ctx, userIDs(answers))
		if err != nil {
			return nil, err
		}
		rows := Aggregate(answers, users)
		if l.cache != nil {
			l.cache.Set(ctx, quizID, rows, l.ttl)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardRow), nil
}

// Top returns at most n leading rows.
func (l *Leaderboard) Top(ctx context.Context, quizID string, n int) ([]domain.LeaderboardRow, error) {
	rows, err := l.Rows(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

// Invalidate drops cached rows so the next read sees fresh answers.
func (l *Leaderboard) Invalidate(ctx context.Context, quizID string) {
	if l.cache != nil {
		l.cache.Invalidate(ctx, quizID)
	}
}

// FastestCorrect ranks the correct answers of questionID by response time.
// Equal times keep submission order.
func (l *Leaderboard) FastestCorrect(ctx context.Context, questionID string, n int) ([]domain.FastAnswer, error) {
	answers, err := l.answers.ListAnswersByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	correct := make([]domain.Answer, 0, len(answers))
	for _, a := range answers {
		if a.IsCorrect && a.ResponseTimeMs != nil {
			correct = append(correct, a)
		}
	}
	sort.SliceStable(correct, func(i, j int) bool {
		return *correct[i].ResponseTimeMs < *correct[j].ResponseTimeMs
	})
	if n >= 0 && len(correct) > n {
		correct = correct[:n]
	}

	users, err := l.users.GetUsers(ctx, userIDs(correct))
	if err != nil {
		return nil, err
	}
	out := make([]domain.FastAnswer, 0, len(correct))
	for i, a := range correct {
		out = append(out, domain.FastAnswer{
			Position:       i + 1,
			UserID:         a.UserID,
			UserName:       displayName(users, a.UserID),
			ResponseTimeMs: *a.ResponseTimeMs,
			Score:          a.Score,
		})
	}
	return out, nil
}

// Aggregate groups answers by user. Rows are ordered by total score, highest
// first, then by who submitted first.
func Aggregate(answers []domain.Answer, users map[string]domain.User) []domain.LeaderboardRow {
	type acc struct {
		row     domain.LeaderboardRow
		rtSum   int64
		rtCount int
	}
	byUser := make(map[string]*acc)
	for _, a := range answers {
		entry, ok := byUser[a.UserID]
		if !ok {
			entry = &acc{row: domain.LeaderboardRow{
				UserID:           a.UserID,
				UserName:         displayName(users, a.UserID),
				FirstSubmittedAt: a.SubmittedAt,
			}}
			byUser[a.UserID] = entry
		}
		entry.row.TotalScore += a.Score
		entry.row.TotalAnswers++
		if a.IsCorrect {
			entry.row.CorrectAnswers++
		}
		if a.ResponseTimeMs != nil {
			entry.rtSum += *a.ResponseTimeMs
			entry.rtCount++
		}
		if a.SubmittedAt.Before(entry.row.FirstSubmittedAt) {
			entry.row.FirstSubmittedAt = a.SubmittedAt
		}
	}

	rows := make([]domain.LeaderboardRow, 0, len(byUser))
	for _, entry := range byUser {
		if entry.rtCount > 0 {
			avg := float64(entry.rtSum) / float64(entry.rtCount)
			entry.row.AverageResponseTimeMs = &avg
		}
		rows = append(rows, entry.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalScore != rows[j].TotalScore {
			return rows[i].TotalScore > rows[j].TotalScore
		}
		if !rows[i].FirstSubmittedAt.Equal(rows[j].FirstSubmittedAt) {
			return rows[i].FirstSubmittedAt.Before(rows[j].FirstSubmittedAt)
		}
		return rows[i].UserID < rows[j].UserID
	})
	return rows
}

func displayName(users map[string]domain.User, id string) string {
	if u, ok := users[id]; ok {
		return u.DisplayName()
	}
	return id
}

func userIDs(answers []domain.Answer) []string {
	seen := make(map[string]struct{}, len(answers))
	ids := make([]string, 0, len(answers))
	for _, a := range answers {
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		ids = append(ids, a.UserID)
	}
	return ids
}
