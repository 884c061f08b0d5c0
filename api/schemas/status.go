package schemas

import (
	"time"
)

// -- Belief Schemas --

// CharacterStatus is the consolidated belief snapshot the decision engine
// reads. It is produced by the belief store's merge and must never be
// mutated by consumers; the store hands out copies.
type CharacterStatus struct {
	HealthPct float64 `json:"health_pct"`
	InCombat  bool    `json:"in_combat"`

	Buffs   map[string]bool `json:"buffs"`
	Debuffs map[string]bool `json:"debuffs"`

	// TargetDistance is negative when no proximity reading has ever landed.
	TargetDistance float64 `json:"target_distance"`

	// QuestMarkers holds the quest/NPC icons most recently recognized.
	QuestMarkers []string `json:"quest_markers,omitempty"`

	// LastUpdate records, per signal kind, when a detection last refreshed
	// the corresponding field. Staleness is derived from these.
	LastUpdate map[SignalKind]time.Time `json:"last_update"`

	// FieldConfidence is the decayed per-kind confidence backing
	// OverallConfidence.
	FieldConfidence map[SignalKind]float64 `json:"field_confidence"`

	// OverallConfidence is the importance-weighted average of the per-field
	// confidences. It is a pure function of the fields above.
	OverallConfidence float64 `json:"overall_confidence"`
}

// HasDebuff reports whether the named debuff is currently believed active.
func (s CharacterStatus) HasDebuff(name string) bool { return s.Debuffs[name] }

// HasBuff reports whether the named buff is currently believed active.
func (s CharacterStatus) HasBuff(name string) bool { return s.Buffs[name] }

// Clone returns a deep copy safe to hand to consumers.
func (s CharacterStatus) Clone() CharacterStatus {
	out := s
	out.Buffs = make(map[string]bool, len(s.Buffs))
	for k, v := range s.Buffs {
		out.Buffs[k] = v
	}
	out.Debuffs = make(map[string]bool, len(s.Debuffs))
	for k, v := range s.Debuffs {
		out.Debuffs[k] = v
	}
	out.LastUpdate = make(map[SignalKind]time.Time, len(s.LastUpdate))
	for k, v := range s.LastUpdate {
		out.LastUpdate[k] = v
	}
	out.FieldConfidence = make(map[SignalKind]float64, len(s.FieldConfidence))
	for k, v := range s.FieldConfidence {
		out.FieldConfidence[k] = v
	}
	out.QuestMarkers = append([]string(nil), s.QuestMarkers...)
	return out
}
