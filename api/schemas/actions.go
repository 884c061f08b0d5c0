package schemas

import (
	"time"
)

// -- Action Schemas --

// ActionCategory groups action keys for rate-limit configuration. The
// anti-detection budget is declared per category, then resolved to the
// individual key when a cooldown entry is created.
type ActionCategory string

const (
	CategoryCombat    ActionCategory = "combat"
	CategoryEmergency ActionCategory = "emergency"
	CategoryMovement  ActionCategory = "movement"
	CategoryIdle      ActionCategory = "idle"
	CategoryUtility   ActionCategory = "utility"
)

// ActionPlan is the decision engine's single chosen output for a tick.
// A nil *ActionPlan means "do nothing", which is a normal, frequent outcome.
type ActionPlan struct {
	ActionKey string         `json:"action_key"`
	Category  ActionCategory `json:"category"`
	Target    string         `json:"target,omitempty"`
	// Reason names the behavior or override that produced the plan,
	// for the session log.
	Reason   string `json:"reason"`
	Priority int    `json:"priority"`
	// EstimatedResult is a free-form expectation ("hp+30", "aggro") used
	// only for telemetry; the loop never branches on it.
	EstimatedResult string `json:"estimated_result,omitempty"`
	// Emergency plans bypass the anti-detection rate gate and the
	// humanizer's reaction delay.
	Emergency bool `json:"emergency,omitempty"`
}

// DispatchResult is what the effector reports back after injecting input.
type DispatchResult struct {
	Success bool          `json:"success"`
	Latency time.Duration `json:"latency"`
	Detail  string        `json:"detail,omitempty"`
}

// -- Cooldown Schemas --

// RateWindow is the anti-detection budget state for one action key: a fixed
// one-hour window opened on first use. Count never decreases inside the
// window and resets exactly at WindowStart + 1h.
type RateWindow struct {
	MaxPerHour  int       `json:"max_per_hour"`
	WindowStart time.Time `json:"window_start"`
	Count       int       `json:"count"`
}

// CooldownEntry tracks both gates for one distinct action key. Entries are
// created lazily on first dispatch attempt and persist across sessions so
// rate limits survive restarts within the same hour window.
type CooldownEntry struct {
	ActionKey       string     `json:"action_key"`
	LastUsedAt      time.Time  `json:"last_used_at"`
	CooldownSeconds float64    `json:"cooldown_seconds"`
	Rate            RateWindow `json:"rate"`
}
