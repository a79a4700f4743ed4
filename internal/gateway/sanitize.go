package gateway

import (
	"strings"
	"time"

	"live-trivia-service/internal/domain"
)

// DefaultMediaPrefix is where the media proxy is mounted.
const DefaultMediaPrefix = "/api/media/questions"

// PublicQuestion is the participant view of a question: no answer key, no
// reveal image and, for voice lines, no original media URL.
type PublicQuestion struct {
	ID               string                `json:"id"`
	QuizID           string                `json:"quizId"`
	Type             domain.QuestionType   `json:"questionType"`
	Content          string                `json:"questionContent"`
	ContentMetadata  map[string]any        `json:"questionContentMetadata,omitempty"`
	TimeLimitSeconds int                   `json:"timeLimitSeconds"`
	OrderIndex       int                   `json:"orderIndex"`
	Status           domain.QuestionStatus `json:"status"`
	IsActive         bool                  `json:"isActive"`
	StartedAt        *time.Time            `json:"startedAt,omitempty"`
	EndedAt          *time.Time            `json:"endedAt,omitempty"`
}

// RevealedQuestion adds the answer key back once a question is completed.
type RevealedQuestion struct {
	PublicQuestion
	CorrectAnswerHero string `json:"correctAnswerHero"`
	AnswerImageURL    string `json:"answerImageUrl,omitempty"`
}

// MediaPath is the proxy path that stands in for a question's media URL.
func MediaPath(prefix, questionID string) string {
	if prefix == "" {
		prefix = DefaultMediaPrefix
	}
	return strings.TrimRight(prefix, "/") + "/" + questionID
}

// Sanitize builds the participant view of q.
func Sanitize(q domain.Question, mediaPrefix string) PublicQuestion {
	content := q.Content
	if q.Type == domain.QuestionVoiceLine {
		content = MediaPath(mediaPrefix, q.ID)
	}
	return PublicQuestion{
		ID:               q.ID,
		QuizID:           q.QuizID,
		Type:             q.Type,
		Content:          content,
		ContentMetadata:  q.ContentMetadata,
		TimeLimitSeconds: q.TimeLimitSeconds,
		OrderIndex:       q.OrderIndex,
		Status:           q.Status,
		IsActive:         q.IsActive,
		StartedAt:        q.StartedAt,
		EndedAt:          q.EndedAt,
	}
}

// SanitizeAll maps Sanitize over qs.
func SanitizeAll(qs []domain.Question, mediaPrefix string) []PublicQuestion {
	out := make([]PublicQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, Sanitize(q, mediaPrefix))
	}
	return out
}

// Reveal returns the answer-bearing view. ok is false unless q is completed.
func Reveal(q domain.Question, mediaPrefix string) (RevealedQuestion, bool) {
	if q.Status != domain.QuestionCompleted || q.IsActive {
		return RevealedQuestion{}, false
	}
	return RevealedQuestion{
		PublicQuestion:    Sanitize(q, mediaPrefix),
		CorrectAnswerHero: q.CorrectAnswerHero,
		AnswerImageURL:    q.AnswerImageURL,
	}, true
}
