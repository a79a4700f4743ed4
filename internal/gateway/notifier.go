package gateway

import (
	"context"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
)

var _ app.Notifier = (*Hub)(nil)

// QuestionLive announces q to its room and to every connection.
func (h *Hub) QuestionLive(ctx context.Context, q domain.Question) {
	h.publish(ctx, q.QuizID, true, EventQuestionLive, QuestionLivePayload{
		Question:      Sanitize(q, h.opts.MediaPrefix),
		TimeRemaining: q.RemainingSeconds(h.opts.Now()),
	})
}

// QuestionEnded reveals q to its room, then names the fastest correct
// answer globally.
func (h *Hub) QuestionEnded(ctx context.Context, q domain.Question) {
	revealed, ok := Reveal(q, h.opts.MediaPrefix)
	if !ok {
		h.log.Warn("refusing to reveal question that is not completed", "question_id", q.ID, "status", q.Status)
		return
	}
	h.publish(ctx, q.QuizID, false, EventQuestionEnded, QuestionEndedPayload{Question: revealed})

	winners, err := h.leaderboard.FastestCorrect(ctx, q.ID, 1)
	if err != nil {
		h.log.Error("fastest answer lookup failed", "question_id", q.ID, "error", err)
		return
	}
	if len(winners) == 0 {
		return
	}
	h.publish(ctx, q.QuizID, true, EventQuestionWinner, QuestionWinnerPayload{
		QuizID:     q.QuizID,
		QuestionID: q.ID,
		Winner:     winners[0],
	})
}

// QuizWinners announces the final podium of quiz.
func (h *Hub) QuizWinners(ctx context.Context, quiz domain.Quiz, winners []domain.LeaderboardRow) {
	if winners == nil {
		winners = []domain.LeaderboardRow{}
	}
	h.publish(ctx, quiz.ID, true, EventQuizWinners, QuizWinnersPayload{
		QuizID:   quiz.ID,
		QuizName: quiz.Name,
		Winners:  winners,
	})
}
