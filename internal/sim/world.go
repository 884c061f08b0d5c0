// File: internal/sim/world.go
// Description: Rehearsal backends. A tiny simulated game world stands in for
// the OCR/vision and input-injection collaborators so profiles, pacing and
// rate budgets can be exercised without a game client attached.

package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/config"
)

// World holds the simulated character state shared by the vision and
// effector backends.
type World struct {
	mu       sync.Mutex
	rng      *rand.Rand
	health   float64
	inCombat bool
	debuffs  []string
	buffs    []string
	distance float64
	markers  []string
}

// NewWorld creates a world in a healthy out-of-combat state.
func NewWorld(seed int64) *World {
	return &World{
		rng:      rand.New(rand.NewSource(seed)),
		health:   100,
		distance: 25,
	}
}

// step advances the world by one observation: combat flips occasionally, and
// combat slowly burns health.
func (w *World) step() {
	r := w.rng.Float64()
	switch {
	case !w.inCombat && r < 0.05:
		w.inCombat = true
		w.distance = 5 + w.rng.Float64()*10
	case w.inCombat && r < 0.10:
		w.inCombat = false
		w.debuffs = nil
	}
	if w.inCombat {
		w.health -= 1 + w.rng.Float64()*3
		if w.health < 0 {
			w.health = 0
		}
		if w.rng.Float64() < 0.03 {
			w.debuffs = append(w.debuffs, "poison")
		}
	} else if w.health < 100 {
		w.health += 0.5
	}
	if w.rng.Float64() < 0.01 {
		w.markers = []string{"quest_available"}
	} else if w.rng.Float64() < 0.02 {
		w.markers = nil
	}
}

// -- Vision backend --

// Vision implements schemas.VisionBackend over the simulated world. The
// channel is identified by its configured region, the same way a real
// backend is pointed at screen rectangles.
type Vision struct {
	world    *World
	byRegion map[schemas.Region]schemas.SignalKind
	logger   *zap.Logger
}

// NewVision builds the region→channel mapping from the sensors config.
func NewVision(world *World, sensors config.SensorsConfig, logger *zap.Logger) *Vision {
	byRegion := make(map[schemas.Region]schemas.SignalKind)
	for _, kind := range schemas.AllSignalKinds {
		byRegion[sensors.Channel(kind).Region] = kind
	}
	return &Vision{world: world, byRegion: byRegion, logger: logger.Named("sim")}
}

// Capture implements schemas.VisionBackend with OCR-like noise: confidence
// jitters and a small fraction of reads miss entirely.
func (v *Vision) Capture(ctx context.Context, region schemas.Region) (schemas.RawSignal, float64, error) {
	if err := ctx.Err(); err != nil {
		return schemas.RawSignal{}, 0, err
	}

	v.world.mu.Lock()
	defer v.world.mu.Unlock()

	kind, ok := v.byRegion[region]
	if !ok {
		return schemas.RawSignal{}, 0, fmt.Errorf("no channel at region %+v", region)
	}
	if kind == schemas.SignalHealth {
		// Health is the first region polled each tick; drive the world
		// from it so each tick sees one world step.
		v.world.step()
	}

	// Simulated recognition miss.
	if v.world.rng.Float64() < 0.05 {
		return schemas.RawSignal{}, 0, nil
	}
	confidence := 0.75 + v.world.rng.Float64()*0.25

	switch kind {
	case schemas.SignalHealth:
		return schemas.RawSignal{Text: fmt.Sprintf("%.0f%%", v.world.health)}, confidence, nil
	case schemas.SignalCombat:
		var icons []string
		if v.world.inCombat {
			icons = []string{"combat_flag"}
		}
		return schemas.RawSignal{Icons: icons}, confidence, nil
	case schemas.SignalBuffs:
		return schemas.RawSignal{Icons: append([]string(nil), v.world.buffs...)}, confidence, nil
	case schemas.SignalDebuffs:
		return schemas.RawSignal{Icons: append([]string(nil), v.world.debuffs...)}, confidence, nil
	case schemas.SignalProximity:
		return schemas.RawSignal{Text: fmt.Sprintf("%.1fm", v.world.distance)}, confidence, nil
	case schemas.SignalQuest:
		return schemas.RawSignal{Icons: append([]string(nil), v.world.markers...)}, confidence, nil
	default:
		return schemas.RawSignal{}, 0, fmt.Errorf("unhandled channel %s", kind)
	}
}

// -- Effector backend --

// Effector implements schemas.Effector against the simulated world.
type Effector struct {
	world  *World
	logger *zap.Logger
}

// NewEffector creates the simulated input backend.
func NewEffector(world *World, logger *zap.Logger) *Effector {
	return &Effector{world: world, logger: logger.Named("sim")}
}

// Dispatch applies the action to the world with realistic latency and an
// occasional focus-loss style failure.
func (e *Effector) Dispatch(ctx context.Context, actionKey, target string) (schemas.DispatchResult, error) {
	e.world.mu.Lock()
	latency := time.Duration(30+e.world.rng.Intn(90)) * time.Millisecond
	failed := e.world.rng.Float64() < 0.03
	e.world.mu.Unlock()

	select {
	case <-ctx.Done():
		return schemas.DispatchResult{}, ctx.Err()
	case <-time.After(latency):
	}
	if failed {
		return schemas.DispatchResult{Success: false, Latency: latency, Detail: "window lost focus"}, nil
	}

	e.world.mu.Lock()
	defer e.world.mu.Unlock()
	switch actionKey {
	case "emergency_heal", "heal_self", "bandage":
		e.world.health += 30
		if e.world.health > 100 {
			e.world.health = 100
		}
	case "cleanse", "cure_poison":
		e.world.debuffs = nil
	case "retreat", "disengage":
		e.world.inCombat = false
		e.world.distance = 30
	case "engage", "charge", "taunt":
		e.world.inCombat = true
	}
	e.logger.Debug("Simulated dispatch",
		zap.String("action", actionKey),
		zap.String("target", target),
	)
	return schemas.DispatchResult{Success: true, Latency: latency}, nil
}
