// File: internal/sink/sink.go
// Description: Session event sinks. The core appends events; dashboards,
// relays and exporters are downstream consumers of whatever sink is wired.

package sink

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
)

// EventWriter is the slice of the checkpoint store a persisted sink needs.
type EventWriter interface {
	AppendEvent(ctx context.Context, ev schemas.SessionEvent) error
}

// Emitter stamps events with ULIDs and a session ID before fanning them out
// to the configured sinks. ULIDs keep the log lexicographically time-ordered
// for downstream consumers.
type Emitter struct {
	sessionID string
	sinks     []schemas.SessionSink

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewEmitter creates an emitter for one session.
func NewEmitter(sessionID string, sinks ...schemas.SessionSink) *Emitter {
	return &Emitter{
		sessionID: sessionID,
		sinks:     sinks,
		entropy:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Emit builds and delivers an event. Sinks must not block; delivery order is
// the call order within the loop goroutine.
func (e *Emitter) Emit(typ schemas.EventType, message string, fields map[string]any) {
	e.mu.Lock()
	id := ulid.MustNew(ulid.Now(), e.entropy).String()
	e.mu.Unlock()

	ev := schemas.SessionEvent{
		ID:        id,
		SessionID: e.sessionID,
		Type:      typ,
		At:        time.Now(),
		Message:   message,
		Fields:    fields,
	}
	for _, s := range e.sinks {
		s.OnEvent(ev)
	}
}

// -- Sink implementations --

// LogSink mirrors session events into the structured log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink over the given logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("session")}
}

// OnEvent implements schemas.SessionSink.
func (s *LogSink) OnEvent(ev schemas.SessionEvent) {
	fields := []zap.Field{
		zap.String("event", string(ev.Type)),
		zap.String("event_id", ev.ID),
	}
	for k, v := range ev.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch ev.Type {
	case schemas.EventActionFailed, schemas.EventSensingDegraded:
		s.logger.Warn(ev.Message, fields...)
	default:
		s.logger.Info(ev.Message, fields...)
	}
}

// StoreSink persists events through the checkpoint store. Write failures are
// logged and dropped; the session log is telemetry, not ground truth.
type StoreSink struct {
	writer EventWriter
	logger *zap.Logger
}

// NewStoreSink creates a persisting sink.
func NewStoreSink(writer EventWriter, logger *zap.Logger) *StoreSink {
	return &StoreSink{writer: writer, logger: logger.Named("sink")}
}

// OnEvent implements schemas.SessionSink.
func (s *StoreSink) OnEvent(ev schemas.SessionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.writer.AppendEvent(ctx, ev); err != nil {
		s.logger.Warn("Failed to persist session event",
			zap.String("event", string(ev.Type)),
			zap.Error(err),
		)
	}
}
