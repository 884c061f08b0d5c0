// File: internal/sink/sink_test.go
package sink

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
)

type captureSink struct {
	events []schemas.SessionEvent
}

func (c *captureSink) OnEvent(ev schemas.SessionEvent) {
	c.events = append(c.events, ev)
}

// -- Emitter Tests --

func TestEmitterStampsEvents(t *testing.T) {
	capture := &captureSink{}
	e := NewEmitter("sess-1", capture)

	e.Emit(schemas.EventSessionStart, "session started", map[string]any{"role": "tank"})
	e.Emit(schemas.EventActionDispatch, "taunt", nil)

	require.Len(t, capture.events, 2)
	first, second := capture.events[0], capture.events[1]

	assert.Equal(t, "sess-1", first.SessionID)
	assert.Equal(t, schemas.EventSessionStart, first.Type)
	assert.Equal(t, "session started", first.Message)
	assert.Equal(t, "tank", first.Fields["role"])
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.At.IsZero())
}

func TestEmitterIDsAreTimeOrdered(t *testing.T) {
	capture := &captureSink{}
	e := NewEmitter("sess-1", capture)

	for i := 0; i < 100; i++ {
		e.Emit(schemas.EventIdleAction, "fidget", nil)
	}

	ids := make([]string, len(capture.events))
	for i, ev := range capture.events {
		ids[i] = ev.ID
	}
	assert.True(t, sort.StringsAreSorted(ids), "ULIDs emitted in sequence must sort lexicographically")
}

func TestEmitterFansOutToAllSinks(t *testing.T) {
	a, b := &captureSink{}, &captureSink{}
	e := NewEmitter("sess-1", a, b)

	e.Emit(schemas.EventPause, "paused", nil)
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

// -- Store Sink Tests --

type fakeWriter struct {
	events []schemas.SessionEvent
	err    error
}

func (f *fakeWriter) AppendEvent(_ context.Context, ev schemas.SessionEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func TestStoreSinkPersists(t *testing.T) {
	w := &fakeWriter{}
	s := NewStoreSink(w, zap.NewNop())

	s.OnEvent(schemas.SessionEvent{ID: "01A", SessionID: "sess-1", Type: schemas.EventSessionEnd})
	require.Len(t, w.events, 1)
	assert.Equal(t, "01A", w.events[0].ID)
}

func TestStoreSinkSwallowsWriteFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("disk full")}
	s := NewStoreSink(w, zap.NewNop())

	// Must not panic or propagate; the session log is best-effort.
	s.OnEvent(schemas.SessionEvent{ID: "01A", Type: schemas.EventActionFailed})
	assert.Empty(t, w.events)
}
