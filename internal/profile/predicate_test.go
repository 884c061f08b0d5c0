// File: internal/profile/predicate_test.go
package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaelith/ghostpilot/api/schemas"
)

func evalOn(t *testing.T, src string, st schemas.CharacterStatus) bool {
	t.Helper()
	pred, err := CompilePredicate(src)
	require.NoError(t, err)
	return pred(st)
}

// -- Evaluation Tests --

func TestPredicateEvaluation(t *testing.T) {
	st := schemas.CharacterStatus{
		HealthPct:         42,
		InCombat:          true,
		TargetDistance:    12.5,
		Buffs:             map[string]bool{"shield": true},
		Debuffs:           map[string]bool{"poison": true},
		QuestMarkers:      []string{"turn_in"},
		OverallConfidence: 0.8,
	}

	cases := []struct {
		src  string
		want bool
	}{
		{"health_pct < 50", true},
		{"health_pct < 42", false},
		{"health_pct <= 42", true},
		{"health_pct == 42", true},
		{"health_pct != 42", false},
		{"target_distance > 10", true},
		{"target_distance >= 12.5", true},
		{"overall_confidence > 0.5", true},
		{"in_combat", true},
		{"not in_combat", false},
		{"has_buff('shield')", true},
		{"has_buff('renew')", false},
		{"has_debuff('poison')", true},
		{"has_quest_marker('turn_in')", true},
		{"has_quest_marker('quest_available')", false},
		{"true", true},
		{"false", false},
		{"in_combat and health_pct < 50", true},
		{"in_combat and health_pct < 10", false},
		{"health_pct < 10 or has_debuff('poison')", true},
		{"not (in_combat and has_buff('shield'))", false},
		// "and" binds tighter than "or".
		{"false or in_combat and health_pct < 50", true},
		{"(false or in_combat) and health_pct < 10", false},
		{"not has_buff('renew') and not has_debuff('frost')", true},
		{"target_distance > -1", true},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			assert.Equal(t, tc.want, evalOn(t, tc.src, st))
		})
	}
}

func TestUnknownDistanceComparesAsNegative(t *testing.T) {
	st := schemas.CharacterStatus{TargetDistance: -1}
	assert.False(t, evalOn(t, "target_distance > 0", st))
	assert.True(t, evalOn(t, "target_distance < 0", st))
}

// -- Parse Error Tests --

func TestPredicateParseErrors(t *testing.T) {
	bad := []string{
		"",
		"health_pct <",
		"health_pct < banana",
		"unknown_field > 3",
		"has_buff(shield)",
		"has_buff('shield'",
		"has_teleport('x')",
		"(in_combat",
		"in_combat and",
		"health_pct = 20",
		"in_combat extra",
		"has_buff('unterminated",
	}
	for _, src := range bad {
		t.Run(src, func(t *testing.T) {
			_, err := CompilePredicate(src)
			assert.Error(t, err)
		})
	}
}
