// File: internal/decision/engine.go
// Description: Rule-priority decision engine. Given the belief snapshot, the
// active role and the cooldown gate, it selects at most one action per tick.

package decision

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/config"
	"github.com/xaelith/ghostpilot/internal/profile"
)

// CooldownGate is the slice of the cooldown tracker the engine needs.
type CooldownGate interface {
	// IsReady checks both the ability cooldown and the rate budget.
	IsReady(key string, cat schemas.ActionCategory, now time.Time) bool
	// AbilityReady checks only the ability cooldown; emergency overrides
	// bypass the rate gate.
	AbilityReady(key string, cat schemas.ActionCategory, now time.Time) bool
}

// Engine selects actions. It is driven by the single control-loop goroutine;
// only the loop mutates its weapon-set bookkeeping.
type Engine struct {
	cfg    config.DecisionConfig
	logger *zap.Logger

	// equippedSet is the last weapon set the loop confirmed swapped to.
	// Empty until the first confirmed swap.
	equippedSet string
}

// New creates an Engine.
func New(cfg config.DecisionConfig, logger *zap.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger.Named("decision")}
}

// Decide returns the tick's plan, or nil for "do nothing". Nil is a normal,
// frequent outcome, not an error.
//
// Order of evaluation:
//  1. confidence floor: a belief too degraded to trust suppresses all action;
//  2. emergency override: low health fires regardless of role and is never
//     held back by the anti-detection rate gate;
//  3. role behaviors in descending priority, declaration order breaking ties;
//  4. weapon-swap advisory when idle and nothing else matched.
func (e *Engine) Decide(status schemas.CharacterStatus, role *profile.Compiled, gate CooldownGate, now time.Time) *schemas.ActionPlan {
	if status.OverallConfidence < e.cfg.ConfidenceFloor {
		e.logger.Debug("Belief below confidence floor; holding action",
			zap.Float64("overall_confidence", status.OverallConfidence),
			zap.Float64("floor", e.cfg.ConfidenceFloor),
		)
		return nil
	}

	if plan := e.emergency(status, gate, now); plan != nil {
		return plan
	}

	for _, b := range role.Behaviors {
		if !b.Trigger(status) {
			continue
		}
		if !gate.IsReady(b.ActionKey, b.Category, now) {
			e.logger.Debug("Behavior matched but action not ready",
				zap.String("behavior", b.Name),
				zap.String("action", b.ActionKey),
			)
			continue
		}
		return &schemas.ActionPlan{
			ActionKey:       b.ActionKey,
			Category:        b.Category,
			Target:          b.Target,
			Reason:          b.Name,
			Priority:        b.Priority,
			EstimatedResult: b.Result,
		}
	}

	return e.weaponSwap(status, role, gate, now)
}

// emergency checks the role-independent safety override. The rate gate is
// deliberately skipped: safety takes precedence over stealth. The ability
// cooldown still applies; an ability on cooldown cannot be cast at all.
func (e *Engine) emergency(status schemas.CharacterStatus, gate CooldownGate, now time.Time) *schemas.ActionPlan {
	if status.HealthPct >= e.cfg.CriticalHealthPct {
		return nil
	}
	if !gate.AbilityReady(e.cfg.EmergencyAction, schemas.CategoryEmergency, now) {
		return nil
	}
	return &schemas.ActionPlan{
		ActionKey:       e.cfg.EmergencyAction,
		Category:        schemas.CategoryEmergency,
		Reason:          fmt.Sprintf("health %.0f%% below critical %.0f%%", status.HealthPct, e.cfg.CriticalHealthPct),
		Priority:        1 << 16, // above any profile priority
		EstimatedResult: "restore_health",
		Emergency:       true,
	}
}

// weaponSwap emits a swap advisory when the believed equipped set differs
// from the role's preference and combat is idle.
func (e *Engine) weaponSwap(status schemas.CharacterStatus, role *profile.Compiled, gate CooldownGate, now time.Time) *schemas.ActionPlan {
	want := role.Profile.PreferredWeaponSet
	if want == "" || e.equippedSet == want || status.InCombat {
		return nil
	}
	if !gate.IsReady("swap_weapon", schemas.CategoryUtility, now) {
		return nil
	}
	return &schemas.ActionPlan{
		ActionKey:       "swap_weapon",
		Category:        schemas.CategoryUtility,
		Target:          want,
		Reason:          "equipped weapon set does not match role preference",
		EstimatedResult: "weapon_set=" + want,
	}
}

// NoteWeaponSwap records a confirmed swap so the advisory stops firing.
func (e *Engine) NoteWeaponSwap(set string) { e.equippedSet = set }

// SelectRole is the pure role-switching function, evaluated only at session
// or group-change boundaries so the role never oscillates mid-fight. The
// group-size cutoffs are configuration, not constants.
func SelectRole(cfg config.DecisionConfig, group schemas.GroupComposition, fallback schemas.RoleID) schemas.RoleID {
	if group.Size >= cfg.HealerGroupSize && !group.HasHealer {
		return schemas.RoleHealer
	}
	if group.Size >= cfg.TankGroupSize && !group.HasTank {
		return schemas.RoleTank
	}
	if group.PvP {
		return schemas.RolePvP
	}
	return fallback
}
