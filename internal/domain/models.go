package domain

import (
	"strings"
	"time"
)

// QuizStatus is the admin-controlled status of a quiz.
type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizLive      QuizStatus = "live"
	QuizPaused    QuizStatus = "paused"
	QuizCompleted QuizStatus = "completed"
)

// Valid reports whether s is one of the known quiz statuses.
func (s QuizStatus) Valid() bool {
	switch s {
	case QuizDraft, QuizLive, QuizPaused, QuizCompleted:
		return true
	}
	return false
}

// QuestionType selects how the question content is presented.
type QuestionType string

const (
	QuestionVoiceLine QuestionType = "voice_line"
	QuestionImage     QuestionType = "image"
)

func (t QuestionType) Valid() bool {
	return t == QuestionVoiceLine || t == QuestionImage
}

// QuestionStatus is the lifecycle state of a question.
type QuestionStatus string

const (
	QuestionPending   QuestionStatus = "pending"
	QuestionLive      QuestionStatus = "live"
	QuestionCompleted QuestionStatus = "completed"
)

// Quiz is a named, ordered collection of questions.
type Quiz struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	Status      QuizStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Question is a single timed prompt. CorrectAnswerHero is the answer key and
// must never reach participants while the question is live.
type Question struct {
	ID                string         `json:"id"`
	QuizID            string         `json:"quizId"`
	Type              QuestionType   `json:"questionType"`
	Content           string         `json:"questionContent"`
	ContentMetadata   map[string]any `json:"questionContentMetadata,omitempty"`
	CorrectAnswerHero string         `json:"correctAnswerHero"`
	AnswerImageURL    string         `json:"answerImageUrl,omitempty"`
	TimeLimitSeconds  int            `json:"timeLimitSeconds"`
	OrderIndex        int            `json:"orderIndex"`
	Status            QuestionStatus `json:"status"`
	IsActive          bool           `json:"isActive"`
	StartedAt         *time.Time     `json:"startedAt,omitempty"`
	EndedAt           *time.Time     `json:"endedAt,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// IsLive reports whether the question currently accepts answers.
func (q Question) IsLive() bool {
	return q.IsActive && q.Status == QuestionLive
}

// TimeLimit returns the configured answer window.
func (q Question) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitSeconds) * time.Second
}

// Expired reports whether a live question has used up its time budget at now.
func (q Question) Expired(now time.Time) bool {
	if !q.IsLive() || q.StartedAt == nil || q.TimeLimitSeconds <= 0 {
		return false
	}
	return now.Sub(*q.StartedAt) >= q.TimeLimit()
}

// RemainingSeconds is the whole number of seconds left to answer, rounded up
// and never negative.
func (q Question) RemainingSeconds(now time.Time) int {
	if q.StartedAt == nil || q.TimeLimitSeconds <= 0 {
		return q.TimeLimitSeconds
	}
	left := q.TimeLimit() - now.Sub(*q.StartedAt)
	if left <= 0 {
		return 0
	}
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

// Answer is a participant's recorded answer for one question. IsCorrect,
// ResponseTimeMs and Score are always computed by the server.
type Answer struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	QuizID         string    `json:"quizId"`
	QuestionID     string    `json:"questionId"`
	Answer         string    `json:"answer"`
	IsCorrect      bool      `json:"isCorrect"`
	ResponseTimeMs *int64    `json:"responseTime,omitempty"`
	Score          int       `json:"score"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// User is a participant profile.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email,omitempty"`
	InGameName string    `json:"inGameName,omitempty"`
	FullName   string    `json:"fullName,omitempty"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DisplayName picks the most specific name the user has.
func (u User) DisplayName() string {
	switch {
	case strings.TrimSpace(u.InGameName) != "":
		return strings.TrimSpace(u.InGameName)
	case strings.TrimSpace(u.FullName) != "":
		return strings.TrimSpace(u.FullName)
	case u.Email != "":
		if at := strings.IndexByte(u.Email, '@'); at > 0 {
			return u.Email[:at]
		}
		return u.Email
	}
	return u.ID
}

// Identity is what the upstream auth layer vouches for on a connection.
type Identity struct {
	UserID      string `json:"userId"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// LeaderboardRow is a per-user total within one quiz. Derived, never stored.
type LeaderboardRow struct {
	UserID                string    `json:"userId"`
	UserName              string    `json:"userName"`
	TotalScore            int       `json:"totalScore"`
	TotalAnswers          int       `json:"totalAnswers"`
	CorrectAnswers        int       `json:"correctAnswers"`
	AverageResponseTimeMs *float64  `json:"averageResponseTime,omitempty"`
	FirstSubmittedAt      time.Time `json:"firstSubmittedAt"`
}

// FastAnswer ranks a correct answer by response time.
type FastAnswer struct {
	Position       int    `json:"position"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	ResponseTimeMs int64  `json:"responseTime"`
	Score          int    `json:"score"`
}
