// File: internal/control/hub.go
// Description: Local websocket control channel. External tooling connects to
// pause/resume the loop and watch the session event stream. This is the
// "external signal" input; it renders nothing and stores nothing.

package control

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
)

// Command is one inbound control message.
type Command struct {
	// Op is "pause", "resume", "end" or "status".
	Op     string `json:"op"`
	Reason string `json:"reason,omitempty"`
}

// Status is the reply to a "status" command.
type Status struct {
	State       string  `json:"state"`
	SessionID   string  `json:"session_id"`
	ActionCount int     `json:"action_count"`
	Fatigue     float64 `json:"fatigue"`
	Confidence  float64 `json:"confidence"`
}

// StatusFunc supplies the current loop status on demand.
type StatusFunc func() Status

// subscriber pairs a connection with its write lock. The read loop replies
// to status queries while OnEvent broadcasts from the control loop, and
// gorilla allows at most one concurrent writer per connection.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *subscriber) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	return s.conn.WriteJSON(v)
}

// Hub accepts control connections, forwards commands to the loop and
// broadcasts session events to every subscriber.
type Hub struct {
	logger   *zap.Logger
	status   StatusFunc
	commands chan Command

	mu          sync.Mutex
	subscribers map[*websocket.Conn]*subscriber
	server      *http.Server
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local-only endpoint; the listener binds a loopback address.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates a hub. Commands are drained by the control loop via
// Commands(); the channel is buffered for interactive use, and a full buffer
// drops the command with a warning.
func NewHub(status StatusFunc, logger *zap.Logger) *Hub {
	return &Hub{
		logger:      logger.Named("control"),
		status:      status,
		commands:    make(chan Command, 16),
		subscribers: make(map[*websocket.Conn]*subscriber),
	}
}

// Commands exposes the inbound command stream.
func (h *Hub) Commands() <-chan Command { return h.commands }

// Start listens on addr until the context is cancelled.
func (h *Hub) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/control", h.handleWS)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	srv := h.server
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.logger.Info("Control channel listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Error("Control server failed", zap.Error(err))
		}
	}()
	return nil
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Control upgrade failed", zap.Error(err))
		return
	}

	sub := &subscriber{conn: conn}
	h.mu.Lock()
	h.subscribers[conn] = sub
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		if cmd.Op == "status" {
			reply := h.status()
			if err := sub.writeJSON(map[string]any{"status": reply}); err != nil {
				return
			}
			continue
		}
		select {
		case h.commands <- cmd:
		default:
			h.logger.Warn("Control command dropped; queue full", zap.String("op", cmd.Op))
		}
	}
}

// OnEvent implements schemas.SessionSink: every session event is broadcast
// to all attached observers. Slow or dead connections are closed rather than
// allowed to stall the loop.
func (h *Hub) OnEvent(ev schemas.SessionEvent) {
	payload, err := json.Marshal(map[string]any{"event": ev})
	if err != nil {
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		if err := s.write(payload); err != nil {
			h.mu.Lock()
			delete(h.subscribers, s.conn)
			h.mu.Unlock()
			s.conn.Close()
		}
	}
}
