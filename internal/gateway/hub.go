package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/logger"
)

const commandTimeout = 10 * time.Second

// Options tune a Hub. Zero values pick defaults.
type Options struct {
	MediaPrefix    string
	ThrottleWindow time.Duration
	Now            func() time.Time
}

// Hub tracks connections and quiz rooms and turns lifecycle events into
// broadcasts. Outbound room and global traffic goes through the Bus so that
// several instances can share one audience.
type Hub struct {
	lifecycle   *app.Lifecycle
	submissions *app.Submissions
	leaderboard *app.Leaderboard
	bus         Bus
	log         *logger.Logger
	opts        Options
	throttle    *throttle

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
}

func NewHub(lifecycle *app.Lifecycle, submissions *app.Submissions, leaderboard *app.Leaderboard, bus Bus, log *logger.Logger, opts Options) *Hub {
	if bus == nil {
		bus = NewLocalBus()
	}
	if opts.MediaPrefix == "" {
		opts.MediaPrefix = DefaultMediaPrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		lifecycle:   lifecycle,
		submissions: submissions,
		leaderboard: leaderboard,
		bus:         bus,
		log:         logger.OrNop(log).With("component", "gateway"),
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		clients:     make(map[string]*Client),
		rooms:       make(map[string]map[string]*Client),
	}
	h.throttle = newThrottle(opts.ThrottleWindow, h.broadcastLeaderboard)
	return h
}

// Start subscribes the hub to its bus.
func (h *Hub) Start(ctx context.Context) error {
	return h.bus.Start(ctx, h.deliver)
}

// Close drops every connection and stops pending broadcasts.
func (h *Hub) Close() error {
	h.cancel()
	h.throttle.Stop()
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
	return h.bus.Close()
}

// Serve runs conn until it disconnects.
func (h *Hub) Serve(conn *websocket.Conn, identity domain.Identity) {
	c := newClient(h, conn, uuid.NewString(), identity)
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.log.Debug("client connected", "connection_id", c.ID, "user_id", identity.UserID)

	go c.writePump()
	c.emit(EventConnected, ConnectedPayload{ConnectionID: c.ID, UserID: identity.UserID})
	c.readPump()
}

// Connections reports the number of open connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize reports how many connections have joined quizID.
func (h *Hub) RoomSize(quizID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[quizID])
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		for _, quizID := range c.roomList() {
			h.leaveLocked(c, quizID)
		}
		h.log.Debug("client disconnected", "connection_id", c.ID)
	}
	h.mu.Unlock()
	c.close()
}

func (h *Hub) join(c *Client, quizID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	room, ok := h.rooms[quizID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[quizID] = room
	}
	room[c.ID] = c
	c.addRoom(quizID)
}

func (h *Hub) leave(c *Client, quizID string) {
	h.mu.Lock()
	h.leaveLocked(c, quizID)
	h.mu.Unlock()
}

func (h *Hub) leaveLocked(c *Client, quizID string) {
	if room, ok := h.rooms[quizID]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(h.rooms, quizID)
		}
	}
	c.removeRoom(quizID)
}

// deliver fans ev out to the local connections it addresses.
func (h *Hub) deliver(ev Event) {
	data, err := json.Marshal(Envelope{Type: ev.Type, Payload: ev.Payload})
	if err != nil {
		h.log.Error("encode event failed", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	var targets []*Client
	if ev.Global {
		targets = make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			targets = append(targets, c)
		}
	} else {
		room := h.rooms[ev.Room]
		targets = make([]*Client, 0, len(room))
		for _, c := range room {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

func (h *Hub) publish(ctx context.Context, room string, global bool, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("encode event failed", "type", eventType, "error", err)
		return
	}
	ev := Event{Room: room, Global: global, Type: eventType, Payload: raw}
	if err := h.bus.Publish(ctx, ev); err != nil {
		h.log.Error("publish event failed", "type", eventType, "room", room, "error", err)
	}
}

// handle runs one inbound command. A failing command never takes the
// connection down.
func (h *Hub) handle(c *Client, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("command panicked", "connection_id", c.ID, "type", env.Type, "panic", r)
			c.emitError("internal error")
		}
	}()

	ctx, cancel := context.WithTimeout(h.ctx, commandTimeout)
	defer cancel()

	switch env.Type {
	case CommandJoin:
		var p JoinPayload
		if err := decodeCommand(env.Payload, &p); err != nil {
			c.emitError(err.Error())
			return
		}
		h.handleJoin(ctx, c, p)
	case CommandLeave:
		var p LeavePayload
		if err := decodeCommand(env.Payload, &p); err != nil {
			c.emitError(err.Error())
			return
		}
		h.leave(c, p.QuizID)
		c.emit(EventLeft, RoomPayload{QuizID: p.QuizID})
	case CommandSubmitAnswer:
		var p SubmitAnswerPayload
		if err := decodeCommand(env.Payload, &p); err != nil {
			c.emit(EventAnswerRejected, AnswerRejectedPayload{Reason: err.Error()})
			return
		}
		h.handleSubmit(ctx, c, p)
	case CommandPing:
		c.emit(EventPong, struct {
			Time time.Time `json:"time"`
		}{Time: h.opts.Now()})
	default:
		c.emitError("unsupported message type")
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, p JoinPayload) {
	if p.UserID != "" {
		c.adoptUserID(p.UserID)
	}
	h.join(c, p.QuizID)
	c.emit(EventJoined, RoomPayload{QuizID: p.QuizID})

	current, err := h.lifecycle.Current(ctx, p.QuizID)
	if err != nil {
		h.log.Warn("lookup live question failed", "quiz_id", p.QuizID, "error", err)
		return
	}
	if current != nil {
		c.emit(EventQuestionLive, QuestionLivePayload{
			Question:      Sanitize(*current, h.opts.MediaPrefix),
			TimeRemaining: current.RemainingSeconds(h.opts.Now()),
		})
	}
}

func (h *Hub) handleSubmit(ctx context.Context, c *Client, p SubmitAnswerPayload) {
	identity := c.Identity()
	if identity.UserID == "" {
		identity.UserID = p.UserID
	}
	if identity.UserID == "" {
		c.emit(EventAnswerRejected, AnswerRejectedPayload{QuestionID: p.QuestionID, Reason: "userId is required"})
		return
	}

	answer, err := h.submissions.Submit(ctx, app.SubmitRequest{
		Identity:    identity,
		QuizID:      p.QuizID,
		QuestionID:  p.QuestionID,
		Answer:      p.Answer,
		SubmittedAt: h.opts.Now(),
	})
	if err != nil {
		if rejection(err) {
			c.emit(EventAnswerRejected, AnswerRejectedPayload{QuestionID: p.QuestionID, Reason: err.Error()})
			return
		}
		h.log.Error("submit answer failed", "question_id", p.QuestionID, "user_id", identity.UserID, "error", err)
		c.emitError("failed to submit answer")
		return
	}

	c.emit(EventAnswerResult, AnswerResultPayload{
		QuestionID:     answer.QuestionID,
		Answer:         answer.Answer,
		IsCorrect:      answer.IsCorrect,
		Score:          answer.Score,
		ResponseTimeMs: answer.ResponseTimeMs,
		SubmittedAt:    answer.SubmittedAt,
	})

	name := identity.DisplayName
	if name == "" {
		name = answer.UserID
	}
	h.publish(ctx, answer.QuizID, false, EventNewAnswer, NewAnswerPayload{
		QuizID:         answer.QuizID,
		QuestionID:     answer.QuestionID,
		UserID:         answer.UserID,
		UserName:       name,
		ResponseTimeMs: answer.ResponseTimeMs,
		SubmittedAt:    answer.SubmittedAt,
	})

	h.throttle.Schedule(answer.QuizID)
}

func rejection(err error) bool {
	return errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidInput)
}

func (h *Hub) broadcastLeaderboard(quizID string) {
	ctx, cancel := context.WithTimeout(h.ctx, commandTimeout)
	defer cancel()
	// Once per window; reads in between are served from the short cache.
	h.leaderboard.Invalidate(ctx, quizID)
	rows, err := h.leaderboard.Rows(ctx, quizID)
	if err != nil {
		h.log.Error("leaderboard aggregation failed", "quiz_id", quizID, "error", err)
		return
	}
	h.publish(ctx, quizID, false, EventLeaderboardUpdated, LeaderboardPayload{QuizID: quizID, Rows: rows})
}
