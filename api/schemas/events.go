package schemas

import (
	"time"
)

// -- Session Event Schemas --

// EventType classifies session log events.
type EventType string

const (
	EventSessionStart    EventType = "SESSION_START"
	EventSessionEnd      EventType = "SESSION_END"
	EventActionDispatch  EventType = "ACTION_DISPATCH"
	EventActionFailed    EventType = "ACTION_FAILED"
	EventRoleSwitch      EventType = "ROLE_SWITCH"
	EventQuestDetected   EventType = "QUEST_DETECTED"
	EventSensingDegraded EventType = "SENSING_DEGRADED"
	EventBreakStart      EventType = "BREAK_START"
	EventPause           EventType = "PAUSE"
	EventResume          EventType = "RESUME"
	EventIdleAction      EventType = "IDLE_ACTION"
)

// SessionEvent is one append-only entry in the session log. IDs are ULIDs so
// downstream consumers can rely on lexicographic ordering.
type SessionEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"type"`
	At        time.Time      `json:"at"`
	Message   string         `json:"message,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// SessionSummary is the durable record written when a session ends.
type SessionSummary struct {
	SessionID   string        `json:"session_id"`
	Role        RoleID        `json:"role"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     time.Time     `json:"ended_at"`
	Duration    time.Duration `json:"duration"`
	ActionCount int           `json:"action_count"`
	EndReason   string        `json:"end_reason"`
}
