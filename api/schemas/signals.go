package schemas

import (
	"time"
)

// -- Signal Schemas --

// SignalKind identifies one perception channel. It is a closed set: every
// sensor produces exactly one kind, and the belief store keys its per-field
// bookkeeping on it.
type SignalKind string

const (
	SignalHealth    SignalKind = "HEALTH"
	SignalCombat    SignalKind = "COMBAT_FLAG"
	SignalBuffs     SignalKind = "BUFFS"
	SignalDebuffs   SignalKind = "DEBUFFS"
	SignalProximity SignalKind = "PROXIMITY"
	SignalQuest     SignalKind = "QUEST"
)

// AllSignalKinds lists every defined kind in a stable order, used for
// config validation and belief-store initialization.
var AllSignalKinds = []SignalKind{
	SignalHealth,
	SignalCombat,
	SignalBuffs,
	SignalDebuffs,
	SignalProximity,
	SignalQuest,
}

// Region describes the screen rectangle a sensor reads from.
type Region struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// SignalValue is the typed payload of a Detection. Exactly one field is
// populated, selected by the Detection's Kind. This replaces string-keyed
// dynamic dispatch with a closed tagged variant.
type SignalValue struct {
	// HealthPct is set for SignalHealth, in [0,100].
	HealthPct float64 `json:"health_pct,omitempty"`
	// InCombat is set for SignalCombat.
	InCombat bool `json:"in_combat,omitempty"`
	// Names is set for SignalBuffs, SignalDebuffs and SignalQuest
	// (buff/debuff icons or quest/NPC markers recognized in the region).
	Names []string `json:"names,omitempty"`
	// Distance is set for SignalProximity, in game-world units.
	Distance float64 `json:"distance,omitempty"`
}

// Detection is a single sensor's timestamped, confidence-scored reading of
// one signal. Detections are immutable and discarded once merged.
type Detection struct {
	Kind       SignalKind  `json:"kind"`
	Value      SignalValue `json:"value"`
	Confidence float64     `json:"confidence"` // [0,1]; 0 means the read failed
	CapturedAt time.Time   `json:"captured_at"`
	Region     Region      `json:"region"`
}

// Failed reports whether the detection carries no usable information.
func (d Detection) Failed() bool { return d.Confidence <= 0 }

// RawSignal is what a vision backend returns for one capture: recognized
// text plus any icon/template identifiers found in the region.
type RawSignal struct {
	Text  string   `json:"text"`
	Icons []string `json:"icons,omitempty"`
}
