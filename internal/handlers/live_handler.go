package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"airjump/internal/events"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
)

// LiveHandler streams venue events to the staff dashboard over a websocket
type LiveHandler struct {
	upgrader websocket.Upgrader
	hub      *events.Hub
}

// NewLiveHandler creates a live feed handler. Browser origins must be listed in
// allowedOrigins; requests without an Origin header (native apps) are accepted.
func NewLiveHandler(hub *events.Hub, allowedOrigins []string) *LiveHandler {
	return &LiveHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
		hub: hub,
	}
}

// HandleWebSocket upgrades the request and forwards hub events until the client leaves
func (h *LiveHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketID := uuid.New().String()
	feed, unsubscribe := h.hub.Subscribe()
	log.WithField("socket", socketID).Info("Live feed connected")

	done := make(chan struct{})
	go h.readPump(conn, socketID, done)
	h.writePump(conn, socketID, feed, done)

	unsubscribe()
	conn.Close()
	log.WithField("socket", socketID).Info("Live feed closed")
}

// readPump discards client messages and notices when the connection goes away
func (h *LiveHandler) readPump(conn *websocket.Conn, socketID string, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("Live feed %s closed unexpectedly: %v", socketID, err)
			}
			return
		}
	}
}

func (h *LiveHandler) writePump(conn *websocket.Conn, socketID string, feed <-chan events.Event, done <-chan struct{}) {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-feed:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				log.Warnf("Failed to write to live feed %s: %v", socketID, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
