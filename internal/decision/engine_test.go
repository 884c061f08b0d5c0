// File: internal/decision/engine_test.go
package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/config"
	"github.com/xaelith/ghostpilot/internal/profile"
)

// fakeGate lets tests script both cooldown gates per action key.
type fakeGate struct {
	notReady  map[string]bool // fails both gates
	rateBound map[string]bool // fails only the rate gate
}

func (g *fakeGate) IsReady(key string, _ schemas.ActionCategory, _ time.Time) bool {
	return !g.notReady[key] && !g.rateBound[key]
}

func (g *fakeGate) AbilityReady(key string, _ schemas.ActionCategory, _ time.Time) bool {
	return !g.notReady[key]
}

func openGate() *fakeGate {
	return &fakeGate{notReady: map[string]bool{}, rateBound: map[string]bool{}}
}

func testConfig() config.DecisionConfig {
	return config.DecisionConfig{
		CriticalHealthPct: 20,
		EmergencyAction:   "emergency_heal",
		ConfidenceFloor:   0.25,
		HealerGroupSize:   3,
		TankGroupSize:     4,
	}
}

func compileRole(t *testing.T, rp schemas.RoleProfile) *profile.Compiled {
	t.Helper()
	compiled, err := profile.Compile(&rp)
	require.NoError(t, err)
	return compiled
}

func tankRole(t *testing.T) *profile.Compiled {
	return compileRole(t, schemas.RoleProfile{
		ID: schemas.RoleTank,
		Behaviors: []schemas.Behavior{
			{Name: "taunt_loose", Trigger: "in_combat and target_distance > 8", ActionKey: "taunt", Category: schemas.CategoryCombat, Priority: 600},
			{Name: "slam", Trigger: "in_combat and target_distance <= 8", ActionKey: "shield_slam", Category: schemas.CategoryCombat, Priority: 400},
		},
	})
}

func confidentStatus() schemas.CharacterStatus {
	return schemas.CharacterStatus{
		HealthPct:         90,
		TargetDistance:    -1,
		Buffs:             map[string]bool{},
		Debuffs:           map[string]bool{},
		OverallConfidence: 0.9,
	}
}

// -- Emergency Override Tests --

func TestEmergencyOverridesRole(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	st := confidentStatus()
	st.HealthPct = 15
	st.InCombat = true
	st.TargetDistance = 20 // taunt_loose would also match

	plan := e.Decide(st, tankRole(t), openGate(), time.Now())
	require.NotNil(t, plan)
	assert.Equal(t, "emergency_heal", plan.ActionKey)
	assert.True(t, plan.Emergency)
	assert.Equal(t, schemas.CategoryEmergency, plan.Category)
}

func TestEmergencyFiresEvenWhenRateBound(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	st := confidentStatus()
	st.HealthPct = 10

	// The rate budget is exhausted but the ability itself is castable.
	gate := openGate()
	gate.rateBound["emergency_heal"] = true

	plan := e.Decide(st, tankRole(t), gate, time.Now())
	require.NotNil(t, plan)
	assert.Equal(t, "emergency_heal", plan.ActionKey)
}

func TestEmergencyRespectsAbilityCooldown(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	st := confidentStatus()
	st.HealthPct = 10
	st.InCombat = true
	st.TargetDistance = 4

	gate := openGate()
	gate.notReady["emergency_heal"] = true

	// With the heal on hard cooldown the engine falls through to behaviors.
	plan := e.Decide(st, tankRole(t), gate, time.Now())
	require.NotNil(t, plan)
	assert.Equal(t, "shield_slam", plan.ActionKey)
}

// -- Behavior Selection Tests --

func TestPriorityOrder(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	st := confidentStatus()
	st.InCombat = true
	st.TargetDistance = 20

	plan := e.Decide(st, tankRole(t), openGate(), time.Now())
	require.NotNil(t, plan)
	assert.Equal(t, "taunt", plan.ActionKey)
	assert.Equal(t, 600, plan.Priority)
}

func TestEqualPriorityKeepsDeclarationOrder(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	role := compileRole(t, schemas.RoleProfile{
		ID: schemas.RoleDPS,
		Behaviors: []schemas.Behavior{
			{Name: "first", Trigger: "in_combat", ActionKey: "mortal_strike", Category: schemas.CategoryCombat, Priority: 500},
			{Name: "second", Trigger: "in_combat", ActionKey: "slam", Category: schemas.CategoryCombat, Priority: 500},
		},
	})

	st := confidentStatus()
	st.InCombat = true

	plan := e.Decide(st, role, openGate(), time.Now())
	require.NotNil(t, plan)
	assert.Equal(t, "mortal_strike", plan.ActionKey, "ties must resolve to the earlier declaration")
}

func TestNotReadyBehaviorIsSkipped(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	st := confidentStatus()
	st.InCombat = true
	st.TargetDistance = 20

	gate := openGate()
	gate.notReady["taunt"] = true

	plan := e.Decide(st, tankRole(t), gate, time.Now())
	require.NotNil(t, plan, "a lower-priority ready behavior should still fire")
	assert.Equal(t, "shield_slam", plan.ActionKey)
	assert.NotEqual(t, "taunt", plan.ActionKey, "an action on cooldown must never be selected")
}

func TestNoMatchMeansNoAction(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	st := confidentStatus() // out of combat, nothing triggers

	plan := e.Decide(st, tankRole(t), openGate(), time.Now())
	assert.Nil(t, plan)
}

// -- Confidence Floor Tests --

func TestConfidenceFloorSuppressesEverything(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	st := confidentStatus()
	st.HealthPct = 5 // would be an emergency
	st.InCombat = true
	st.OverallConfidence = 0.1

	plan := e.Decide(st, tankRole(t), openGate(), time.Now())
	assert.Nil(t, plan, "a belief below the floor must suppress even emergencies; the readings cannot be trusted")
}

// -- Weapon Swap Advisory Tests --

func TestWeaponSwapAdvisory(t *testing.T) {
	e := New(testConfig(), zap.NewNop())
	role := compileRole(t, schemas.RoleProfile{
		ID:                 schemas.RoleTank,
		PreferredWeaponSet: "sword_and_board",
		Behaviors: []schemas.Behavior{
			{Name: "slam", Trigger: "in_combat", ActionKey: "shield_slam", Category: schemas.CategoryCombat, Priority: 400},
		},
	})
	st := confidentStatus()

	plan := e.Decide(st, role, openGate(), time.Now())
	require.NotNil(t, plan)
	assert.Equal(t, "swap_weapon", plan.ActionKey)
	assert.Equal(t, "sword_and_board", plan.Target)

	t.Run("never mid-combat", func(t *testing.T) {
		inCombat := st
		inCombat.InCombat = true
		assert.Nil(t, e.Decide(inCombat, role, openGate(), time.Now()))
	})

	t.Run("stops after a confirmed swap", func(t *testing.T) {
		e.NoteWeaponSwap("sword_and_board")
		assert.Nil(t, e.Decide(st, role, openGate(), time.Now()))
	})
}

// -- Role Selection Tests --

func TestSelectRole(t *testing.T) {
	cfg := testConfig()

	cases := []struct {
		name  string
		group schemas.GroupComposition
		want  schemas.RoleID
	}{
		{"solo defaults to fallback", schemas.GroupComposition{Size: 1}, schemas.RoleDPS},
		{"healerless trio needs a healer", schemas.GroupComposition{Size: 3}, schemas.RoleHealer},
		{"covered trio stays fallback", schemas.GroupComposition{Size: 3, HasHealer: true}, schemas.RoleDPS},
		{"tankless four needs a tank", schemas.GroupComposition{Size: 4, HasHealer: true}, schemas.RoleTank},
		{"healer wins over tank", schemas.GroupComposition{Size: 5}, schemas.RoleHealer},
		{"pvp flips the solo default", schemas.GroupComposition{Size: 1, PvP: true}, schemas.RolePvP},
		{"group need beats pvp", schemas.GroupComposition{Size: 3, PvP: true}, schemas.RoleHealer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SelectRole(cfg, tc.group, schemas.RoleDPS))
		})
	}
}
