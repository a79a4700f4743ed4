package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/gateway"
	"live-trivia-service/internal/infra/memory"
)

type harness struct {
	store      *memory.Store
	hub        *gateway.Hub
	controller *app.Controller
	server     *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	lifecycle := app.NewLifecycle(store, nil)
	submissions := app.NewSubmissions(store, store, app.NewIdentities(store, nil), nil)
	leaderboard := app.NewLeaderboard(store, store, memory.NewLeaderboardCache(), time.Second, nil)
	hub := gateway.NewHub(lifecycle, submissions, leaderboard, gateway.NewLocalBus(), nil, gateway.Options{
		ThrottleWindow: 50 * time.Millisecond,
	})
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("start hub: %v", err)
	}
	controller := app.NewController(store, lifecycle, leaderboard, hub, nil)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, domain.Identity{
			UserID:      r.URL.Query().Get("userId"),
			DisplayName: r.URL.Query().Get("name"),
		})
	}))
	t.Cleanup(func() {
		server.Close()
		_ = hub.Close()
	})

	ctx := context.Background()
	if err := store.CreateQuiz(ctx, domain.Quiz{ID: "quiz-1", Name: "Heroes", Status: domain.QuizLive}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if err := store.CreateQuestion(ctx, domain.Question{
		ID:                "q1",
		QuizID:            "quiz-1",
		Type:              domain.QuestionVoiceLine,
		Content:           "https://cdn.example.com/voice/q1.mp3",
		CorrectAnswerHero: "Kez",
		AnswerImageURL:    "https://cdn.example.com/kez.png",
		TimeLimitSeconds:  30,
		Status:            domain.QuestionPending,
	}); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return &harness{store: store, hub: hub, controller: controller, server: server}
}

func (h *harness) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "?userId=" + userID + "&name=player-" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	expect(t, conn, gateway.EventConnected)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteJSON(gateway.Envelope{Type: msgType, Payload: raw}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// expect reads until a message of msgType arrives, skipping others.
func expect(t *testing.T, conn *websocket.Conn, msgType string) gateway.Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var env gateway.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		if env.Type == msgType {
			return env
		}
	}
}

func join(t *testing.T, h *harness, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, gateway.CommandJoin, gateway.JoinPayload{QuizID: "quiz-1"})
	expect(t, conn, gateway.EventJoined)
}

func TestQuestionLiveIsSanitized(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "u1")
	join(t, h, conn)

	if _, err := h.controller.ActivateQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	env := expect(t, conn, gateway.EventQuestionLive)
	raw := string(env.Payload)
	if strings.Contains(raw, "Kez") || strings.Contains(raw, "voice/q1.mp3") {
		t.Fatalf("question_live leaks the answer: %s", raw)
	}
	var payload gateway.QuestionLivePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Question.Content != "/api/media/questions/q1" {
		t.Fatalf("expected proxy path, got %q", payload.Question.Content)
	}
	if payload.TimeRemaining < 29 || payload.TimeRemaining > 30 {
		t.Fatalf("unexpected time remaining %d", payload.TimeRemaining)
	}
}

func TestLateJoinerReceivesLiveQuestion(t *testing.T) {
	h := newHarness(t)
	if _, err := h.controller.ActivateQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	conn := h.dial(t, "u1")
	send(t, conn, gateway.CommandJoin, gateway.JoinPayload{QuizID: "quiz-1"})
	expect(t, conn, gateway.EventQuestionLive)
}

func TestSubmitAnswerFlow(t *testing.T) {
	h := newHarness(t)
	player := h.dial(t, "u1")
	observer := h.dial(t, "admin")
	join(t, h, player)
	join(t, h, observer)

	if _, err := h.controller.ActivateQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	expect(t, player, gateway.EventQuestionLive)

	send(t, player, gateway.CommandSubmitAnswer, gateway.SubmitAnswerPayload{QuizID: "quiz-1", QuestionID: "q1", Answer: " kez "})
	var result gateway.AnswerResultPayload
	if err := json.Unmarshal(expect(t, player, gateway.EventAnswerResult).Payload, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.IsCorrect || result.Score <= 100 {
		t.Fatalf("expected correct fast answer, got %+v", result)
	}

	newAnswer := expect(t, observer, gateway.EventNewAnswer)
	if body := string(newAnswer.Payload); strings.Contains(body, "kez") || strings.Contains(body, "isCorrect") || strings.Contains(body, "score") {
		t.Fatalf("new_answer leaks the outcome: %s", newAnswer.Payload)
	}

	var board gateway.LeaderboardPayload
	if err := json.Unmarshal(expect(t, observer, gateway.EventLeaderboardUpdated).Payload, &board); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(board.Rows) != 1 || board.Rows[0].UserID != "u1" || board.Rows[0].TotalScore != result.Score {
		t.Fatalf("unexpected leaderboard %+v", board.Rows)
	}

	send(t, player, gateway.CommandSubmitAnswer, gateway.SubmitAnswerPayload{QuizID: "quiz-1", QuestionID: "q1", Answer: "Other"})
	expect(t, player, gateway.EventAnswerRejected)

	if _, err := h.controller.EndQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	var ended gateway.QuestionEndedPayload
	if err := json.Unmarshal(expect(t, player, gateway.EventQuestionEnded).Payload, &ended); err != nil {
		t.Fatalf("decode ended: %v", err)
	}
	if ended.Question.CorrectAnswerHero != "Kez" {
		t.Fatalf("expected reveal, got %+v", ended.Question)
	}
	var winner gateway.QuestionWinnerPayload
	if err := json.Unmarshal(expect(t, player, gateway.EventQuestionWinner).Payload, &winner); err != nil {
		t.Fatalf("decode winner: %v", err)
	}
	if winner.Winner.UserID != "u1" || winner.Winner.Position != 1 {
		t.Fatalf("unexpected winner %+v", winner.Winner)
	}
}

func TestSubmitToPendingQuestionIsRejected(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "u1")
	send(t, conn, gateway.CommandSubmitAnswer, gateway.SubmitAnswerPayload{QuizID: "quiz-1", QuestionID: "q1", Answer: "Kez"})
	var rejected gateway.AnswerRejectedPayload
	if err := json.Unmarshal(expect(t, conn, gateway.EventAnswerRejected).Payload, &rejected); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rejected.QuestionID != "q1" || rejected.Reason == "" {
		t.Fatalf("unexpected rejection %+v", rejected)
	}
}

func TestMalformedCommandsKeepConnection(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "u1")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	expect(t, conn, gateway.EventError)

	send(t, conn, "dance", map[string]string{})
	expect(t, conn, gateway.EventError)

	send(t, conn, gateway.CommandJoin, gateway.JoinPayload{})
	expect(t, conn, gateway.EventError)

	send(t, conn, gateway.CommandPing, struct{}{})
	expect(t, conn, gateway.EventPong)
}

func TestQuizWinnersReachEveryConnection(t *testing.T) {
	h := newHarness(t)
	outsider := h.dial(t, "lurker")
	player := h.dial(t, "u1")
	join(t, h, player)

	if _, err := h.controller.ActivateQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	expect(t, player, gateway.EventQuestionLive)
	send(t, player, gateway.CommandSubmitAnswer, gateway.SubmitAnswerPayload{QuizID: "quiz-1", QuestionID: "q1", Answer: "Kez"})
	expect(t, player, gateway.EventAnswerResult)

	if _, _, err := h.controller.FinalizeQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	var winners gateway.QuizWinnersPayload
	if err := json.Unmarshal(expect(t, outsider, gateway.EventQuizWinners).Payload, &winners); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if winners.QuizName != "Heroes" || len(winners.Winners) != 1 || winners.Winners[0].UserID != "u1" {
		t.Fatalf("unexpected winners %+v", winners)
	}
}

func TestLeaveAndDisconnectEmptyRoom(t *testing.T) {
	h := newHarness(t)
	a := h.dial(t, "a")
	b := h.dial(t, "b")
	join(t, h, a)
	join(t, h, b)
	if got := h.hub.RoomSize("quiz-1"); got != 2 {
		t.Fatalf("expected 2 in room, got %d", got)
	}

	send(t, a, gateway.CommandLeave, gateway.LeavePayload{QuizID: "quiz-1"})
	expect(t, a, gateway.EventLeft)
	if got := h.hub.RoomSize("quiz-1"); got != 1 {
		t.Fatalf("expected 1 in room, got %d", got)
	}

	b.Close()
	deadline := time.Now().Add(time.Second)
	for h.hub.RoomSize("quiz-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("room not emptied after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
