package gateway

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"live-trivia-service/internal/domain"
)

// Client -> server commands.
const (
	CommandJoin         = "join"
	CommandLeave        = "leave"
	CommandSubmitAnswer = "submit_answer"
	CommandPing         = "ping"
)

// Server -> client events.
const (
	EventConnected          = "connected"
	EventJoined             = "joined"
	EventLeft               = "left"
	EventQuestionLive       = "question_live"
	EventQuestionEnded      = "question_ended"
	EventQuestionWinner     = "question_winner"
	EventAnswerResult       = "answer_result"
	EventAnswerRejected     = "answer_rejected"
	EventNewAnswer          = "new_answer"
	EventLeaderboardUpdated = "leaderboard_updated"
	EventQuizWinners        = "quiz_winners"
	EventError              = "error"
	EventPong               = "pong"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type command interface {
	validate() error
}

type JoinPayload struct {
	QuizID string `json:"quizId"`
	UserID string `json:"userId,omitempty"`
}

func (p *JoinPayload) validate() error {
	if strings.TrimSpace(p.QuizID) == "" {
		return errors.New("quizId is required")
	}
	return nil
}

type LeavePayload struct {
	QuizID string `json:"quizId"`
}

func (p *LeavePayload) validate() error {
	if strings.TrimSpace(p.QuizID) == "" {
		return errors.New("quizId is required")
	}
	return nil
}

type SubmitAnswerPayload struct {
	QuizID     string `json:"quizId"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
	UserID     string `json:"userId,omitempty"`
}

func (p *SubmitAnswerPayload) validate() error {
	switch {
	case strings.TrimSpace(p.QuizID) == "":
		return errors.New("quizId is required")
	case strings.TrimSpace(p.QuestionID) == "":
		return errors.New("questionId is required")
	case strings.TrimSpace(p.Answer) == "":
		return errors.New("answer is required")
	}
	return nil
}

// decodeCommand unmarshals raw into dst and validates it.
func decodeCommand(raw json.RawMessage, dst command) error {
	if len(raw) == 0 {
		return errors.New("payload is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.New("invalid payload")
	}
	return dst.validate()
}

type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId,omitempty"`
}

type RoomPayload struct {
	QuizID string `json:"quizId"`
}

type QuestionLivePayload struct {
	Question      PublicQuestion `json:"question"`
	TimeRemaining int            `json:"timeRemaining"`
}

type QuestionEndedPayload struct {
	Question RevealedQuestion `json:"question"`
}

type QuestionWinnerPayload struct {
	QuizID     string            `json:"quizId"`
	QuestionID string            `json:"questionId"`
	Winner     domain.FastAnswer `json:"winner"`
}

type AnswerResultPayload struct {
	QuestionID     string    `json:"questionId"`
	Answer         string    `json:"answer"`
	IsCorrect      bool      `json:"isCorrect"`
	Score          int       `json:"score"`
	ResponseTimeMs *int64    `json:"responseTime,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

type AnswerRejectedPayload struct {
	QuestionID string `json:"questionId,omitempty"`
	Reason     string `json:"reason"`
}

// NewAnswerPayload tells the room that someone answered. Answer text,
// correctness and score stay with the submitter while the question is live.
type NewAnswerPayload struct {
	QuizID         string    `json:"quizId"`
	QuestionID     string    `json:"questionId"`
	UserID         string    `json:"userId"`
	UserName       string    `json:"userName"`
	ResponseTimeMs *int64    `json:"responseTime,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

type LeaderboardPayload struct {
	QuizID string                  `json:"quizId"`
	Rows   []domain.LeaderboardRow `json:"rows"`
}

type QuizWinnersPayload struct {
	QuizID   string                  `json:"quizId"`
	QuizName string                  `json:"quizName"`
	Winners  []domain.LeaderboardRow `json:"winners"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
