// File: api/schemas/schemas_test.go
package schemas

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// -- Status Tests --

func TestCharacterStatusClone(t *testing.T) {
	now := time.Now()
	orig := CharacterStatus{
		HealthPct:       80,
		InCombat:        true,
		Buffs:           map[string]bool{"shield": true},
		Debuffs:         map[string]bool{"poison": true},
		TargetDistance:  12,
		QuestMarkers:    []string{"turn_in"},
		LastUpdate:      map[SignalKind]time.Time{SignalHealth: now},
		FieldConfidence: map[SignalKind]float64{SignalHealth: 0.9},
	}

	clone := orig.Clone()
	clone.Buffs["stealth"] = true
	clone.Debuffs["bleed"] = true
	clone.QuestMarkers[0] = "mutated"
	clone.LastUpdate[SignalCombat] = now
	clone.FieldConfidence[SignalHealth] = 0

	assert.False(t, orig.HasBuff("stealth"))
	assert.False(t, orig.HasDebuff("bleed"))
	assert.Equal(t, "turn_in", orig.QuestMarkers[0])
	assert.NotContains(t, orig.LastUpdate, SignalCombat)
	assert.Equal(t, 0.9, orig.FieldConfidence[SignalHealth])
}

func TestHasBuffOnNilMap(t *testing.T) {
	var st CharacterStatus
	assert.False(t, st.HasBuff("shield"))
	assert.False(t, st.HasDebuff("poison"))
}

// -- Detection Tests --

func TestDetectionFailed(t *testing.T) {
	assert.True(t, Detection{}.Failed())
	assert.True(t, Detection{Confidence: -0.1}.Failed())
	assert.False(t, Detection{Confidence: 0.01}.Failed())
}

// -- Error Taxonomy Tests --

func TestErrorUnwrapping(t *testing.T) {
	cause := errors.New("device busy")

	var err error = &SenseError{Kind: SignalHealth, Err: cause}
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "HEALTH")

	timeoutErr := &SenseError{Kind: SignalQuest, Timeout: true}
	assert.Contains(t, timeoutErr.Error(), "timed out")

	err = &DispatchError{ActionKey: "taunt", Err: ErrDispatchTimeout}
	assert.True(t, errors.Is(err, ErrDispatchTimeout))
	assert.Contains(t, err.Error(), "taunt")

	err = &ConfigError{Source: "roles/tank.yaml", Err: cause}
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "roles/tank.yaml")
}
