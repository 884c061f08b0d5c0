package schemas

import (
	"context"
)

// -- Collaborator Interfaces --
//
// These are the boundaries to subsystems the control loop consumes but does
// not implement: the OCR/vision backend, the input-injection backend, the
// static data loader and the session log consumer.

// VisionBackend is the OCR/template-matching capability a sensor wraps.
// Implementations must honor the context deadline; a recognition miss is a
// low-confidence result, not an error.
type VisionBackend interface {
	// Capture reads the given screen region and returns the recognized
	// signal with a confidence score in [0,1].
	Capture(ctx context.Context, region Region) (RawSignal, float64, error)
}

// Effector is the input-injection backend. Dispatch is the only way the
// agent acts on the game client; callers must serialize invocations.
type Effector interface {
	Dispatch(ctx context.Context, actionKey, target string) (DispatchResult, error)
}

// ProfileStore loads static configuration tables. Implementations validate
// at load time and return *ConfigError on malformed data.
type ProfileStore interface {
	LoadRole(id RoleID) (*RoleProfile, error)
	LoadWeapons() ([]WeaponSet, error)
	LoadQuests() ([]QuestDef, error)
}

// SessionSink consumes the append-only session event stream. Dashboards,
// relays and exporters hang off this; the core only ever appends.
type SessionSink interface {
	OnEvent(ev SessionEvent)
}

// Checkpointer persists cooldown windows and session summaries across
// restarts so anti-detection budgets survive within their hour window.
type Checkpointer interface {
	SaveCooldowns(ctx context.Context, entries []CooldownEntry) error
	LoadCooldowns(ctx context.Context) ([]CooldownEntry, error)
	SaveSummary(ctx context.Context, summary SessionSummary) error
}
