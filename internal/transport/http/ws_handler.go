package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/gateway"
	"live-trivia-service/internal/logger"
)

type WSHandler struct {
	hub      *gateway.Hub
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewWSHandler accepts upgrades from origins, or from anywhere when origins is empty.
func NewWSHandler(hub *gateway.Hub, origins []string, log *logger.Logger) *WSHandler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return &WSHandler{
		hub: hub,
		log: logger.OrNop(log).With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// ServeWS upgrades the request and hands the connection to the hub. The
// identity is whatever the upstream auth proxy put on the query string; a
// connection without one can still watch and join rooms.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	identity := domain.Identity{
		UserID:      strings.TrimSpace(q.Get("userId")),
		Email:       strings.TrimSpace(q.Get("email")),
		DisplayName: strings.TrimSpace(q.Get("name")),
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	h.hub.Serve(conn, identity)
}
