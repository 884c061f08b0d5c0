// File: internal/loop/loop.go
// Description: The orchestrating state machine. One goroutine drives fixed
// ticks through sense → merge → limit check → decide → humanizer gate →
// serialized dispatch, feeding outcomes back into the trackers.

package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/belief"
	"github.com/xaelith/ghostpilot/internal/config"
	"github.com/xaelith/ghostpilot/internal/control"
	"github.com/xaelith/ghostpilot/internal/cooldown"
	"github.com/xaelith/ghostpilot/internal/decision"
	"github.com/xaelith/ghostpilot/internal/humanize"
	"github.com/xaelith/ghostpilot/internal/profile"
	"github.com/xaelith/ghostpilot/internal/sensor"
	"github.com/xaelith/ghostpilot/internal/sink"
)

// State names the loop's lifecycle phase.
type State string

const (
	StateInit       State = "INIT"
	StateRunning    State = "RUNNING"
	StatePaused     State = "PAUSED"
	StateEnding     State = "ENDING"
	StateTerminated State = "TERMINATED"
)

// blindStreakLimit is how many consecutive all-failed sensing ticks pass
// before the loop surfaces a degraded-sensing warning.
const blindStreakLimit = 3

// Deps are the loop's injected collaborators. The loop owns no global state;
// everything it touches arrives here (no process-wide singletons).
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Sensors   *sensor.Runner
	Beliefs   *belief.Store
	Cooldowns *cooldown.Tracker
	Scheduler *humanize.Scheduler
	Engine    *decision.Engine
	Dispatch  *Dispatcher
	Emitter   *sink.Emitter
	// Checkpoint may be nil; cooldown state then dies with the process.
	Checkpoint schemas.Checkpointer
	// Commands may be nil when the control channel is disabled.
	Commands <-chan control.Command
	// Quests labels quest-marker detections in the session log.
	Quests []schemas.QuestDef
}

func (d Deps) validate() error {
	if d.Config == nil || d.Logger == nil || d.Sensors == nil || d.Beliefs == nil ||
		d.Cooldowns == nil || d.Scheduler == nil || d.Engine == nil ||
		d.Dispatch == nil || d.Emitter == nil {
		return errors.New("cannot initialize control loop with nil dependencies")
	}
	return nil
}

// Loop is the session orchestrator.
type Loop struct {
	deps      Deps
	logger    *zap.Logger
	sessionID string
	role      *profile.Compiled

	state         State
	blindStreak   int
	questByMarker map[string]schemas.QuestDef
	questNotified map[string]time.Time
	lastStatus    schemas.CharacterStatus
}

// New creates a Loop for one session with the given active role.
func New(sessionID string, role *profile.Compiled, deps Deps) (*Loop, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if role == nil {
		return nil, errors.New("cannot initialize control loop without a role")
	}
	byMarker := make(map[string]schemas.QuestDef, len(deps.Quests))
	for _, q := range deps.Quests {
		byMarker[q.Marker] = q
	}
	return &Loop{
		deps:          deps,
		logger:        deps.Logger.Named("loop"),
		sessionID:     sessionID,
		role:          role,
		state:         StateInit,
		questByMarker: byMarker,
		questNotified: make(map[string]time.Time),
	}, nil
}

// State returns the current lifecycle phase. Only the loop goroutine writes
// it; reads from other goroutines are for status display and may be slightly
// stale, which is acceptable.
func (l *Loop) State() State { return l.state }

// Status snapshots the loop for the control channel.
func (l *Loop) Status() control.Status {
	st := l.deps.Scheduler.State()
	return control.Status{
		State:       string(l.state),
		SessionID:   l.sessionID,
		ActionCount: st.ActionCount,
		Fatigue:     l.deps.Scheduler.Fatigue(),
		Confidence:  l.deps.Beliefs.Snapshot().OverallConfidence,
	}
}

// Run drives the session until a cap is hit, a control command ends it, or
// ctx is cancelled. It always checkpoints before returning.
func (l *Loop) Run(ctx context.Context, priorDailyUse time.Duration) error {
	now := time.Now()
	l.deps.Scheduler.StartSession(now, priorDailyUse)
	l.state = StateRunning
	l.deps.Emitter.Emit(schemas.EventSessionStart, "session started", map[string]any{
		"role":      string(l.role.Profile.ID),
		"tick_rate": l.deps.Config.Loop.TickRate,
	})
	l.logger.Info("Control loop running",
		zap.String("session_id", l.sessionID),
		zap.String("role", string(l.role.Profile.ID)),
		zap.Duration("tick", l.deps.Config.Loop.TickInterval()),
	)

	ticker := time.NewTicker(l.deps.Config.Loop.TickInterval())
	defer ticker.Stop()

	endReason := "shutdown signal"
	for l.state == StateRunning || l.state == StatePaused {
		// Cancellation and control commands are honored only at the top of
		// a tick; an in-flight dispatch always completed before we get here.
		select {
		case <-ctx.Done():
			l.state = StateEnding
			continue
		case cmd, ok := <-l.commandChan():
			if ok {
				l.handleCommand(cmd)
			}
			continue
		case <-ticker.C:
			l.tick(ctx)
		}
	}

	if ended, reason := l.deps.Scheduler.SessionShouldEnd(); ended {
		endReason = reason
	}
	return l.shutdown(endReason)
}

// commandChan returns a never-ready channel when no control hub is wired, so
// the select stays uniform.
func (l *Loop) commandChan() <-chan control.Command {
	if l.deps.Commands != nil {
		return l.deps.Commands
	}
	return nil
}

func (l *Loop) handleCommand(cmd control.Command) {
	switch cmd.Op {
	case "pause":
		if l.state == StateRunning {
			l.state = StatePaused
			l.deps.Emitter.Emit(schemas.EventPause, "paused: "+cmd.Reason, nil)
		}
	case "resume":
		if l.state == StatePaused {
			l.state = StateRunning
			l.deps.Emitter.Emit(schemas.EventResume, "resumed", nil)
		}
	case "end":
		l.deps.Scheduler.EndSession("manual end: " + cmd.Reason)
		l.state = StateEnding
	default:
		l.logger.Warn("Unknown control command", zap.String("op", cmd.Op))
	}
}

// tick runs one perception→decision→action cycle. In PAUSED, sensing and
// merging continue so the belief stays fresh for resumption, but nothing is
// dispatched.
func (l *Loop) tick(ctx context.Context) {
	now := time.Now()

	detections := l.deps.Sensors.Collect(ctx)
	status := l.deps.Beliefs.Merge(detections, now)
	l.lastStatus = status

	l.watchBlindStreak(detections)
	l.watchQuestMarkers(status, now)

	check := l.deps.Scheduler.CheckSessionLimits(now)
	if ended, reason := l.deps.Scheduler.SessionShouldEnd(); ended {
		l.logger.Info("Session limit reached", zap.String("reason", reason))
		l.state = StateEnding
		return
	}
	for _, w := range check.Warnings {
		if w == "mandatory break started" {
			l.deps.Emitter.Emit(schemas.EventBreakStart, w, nil)
		}
	}

	if l.state == StatePaused || check.OnBreak {
		return
	}

	plan := l.deps.Engine.Decide(status, l.role, l.deps.Cooldowns, now)
	if plan == nil {
		l.deps.Scheduler.NoteIdle(l.deps.Config.Loop.TickInterval())
		l.maybeIdle(ctx, now)
		return
	}
	l.execute(ctx, plan, now)
}

// maybeIdle occasionally fills an empty tick with a harmless action. Idle
// actions go through the same gates as everything else.
func (l *Loop) maybeIdle(ctx context.Context, now time.Time) {
	plan := l.deps.Scheduler.MaybeIdleAction(now)
	if plan == nil {
		return
	}
	if !l.deps.Cooldowns.IsReady(plan.ActionKey, plan.Category, now) {
		return
	}
	l.deps.Emitter.Emit(schemas.EventIdleAction, "idle action "+plan.ActionKey, nil)
	l.execute(ctx, plan, now)
}

// execute applies the humanizer gates, dispatches, and feeds the outcome
// back. Emergency plans skip the pacing gates: safety over stealth.
func (l *Loop) execute(ctx context.Context, plan *schemas.ActionPlan, now time.Time) {
	if !plan.Emergency {
		if !l.deps.Scheduler.ShouldActNow(now) {
			return
		}
		// Reaction delay: cancelling here is safe, nothing has been
		// injected yet.
		delay := l.deps.Scheduler.ReactionDelay()
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	result, err := l.deps.Dispatch.Dispatch(plan)
	if err != nil {
		// Failed actuation never consumes cooldown budget.
		l.deps.Emitter.Emit(schemas.EventActionFailed,
			fmt.Sprintf("action %s failed: %v", plan.ActionKey, err),
			map[string]any{"action": plan.ActionKey, "reason": plan.Reason},
		)
		return
	}

	confirmed := time.Now()
	l.deps.Cooldowns.RecordUse(plan.ActionKey, plan.Category, confirmed)
	l.deps.Scheduler.NoteAction(confirmed, intensityOf(plan.Category))
	if plan.ActionKey == "swap_weapon" {
		l.deps.Engine.NoteWeaponSwap(plan.Target)
	}
	l.deps.Emitter.Emit(schemas.EventActionDispatch, "dispatched "+plan.ActionKey, map[string]any{
		"action":     plan.ActionKey,
		"category":   string(plan.Category),
		"reason":     plan.Reason,
		"latency_ms": result.Latency.Milliseconds(),
	})
}

// watchBlindStreak surfaces persistent sensing failure as a degraded-
// confidence warning instead of a crash.
func (l *Loop) watchBlindStreak(detections []schemas.Detection) {
	blind := len(detections) > 0
	for _, d := range detections {
		if !d.Failed() {
			blind = false
			break
		}
	}
	if !blind {
		l.blindStreak = 0
		return
	}
	l.blindStreak++
	if l.blindStreak == blindStreakLimit {
		l.deps.Emitter.Emit(schemas.EventSensingDegraded,
			fmt.Sprintf("all sensors failed for %d consecutive ticks", l.blindStreak),
			map[string]any{"streak": l.blindStreak},
		)
	}
}

// watchQuestMarkers emits a "new quest detected" event per marker, throttled
// by the configured notification cooldown.
func (l *Loop) watchQuestMarkers(status schemas.CharacterStatus, now time.Time) {
	for _, marker := range status.QuestMarkers {
		if last, ok := l.questNotified[marker]; ok && now.Sub(last) < l.deps.Config.Decision.QuestNotifyCooldown {
			continue
		}
		l.questNotified[marker] = now
		fields := map[string]any{"marker": marker}
		msg := "quest marker detected"
		if q, ok := l.questByMarker[marker]; ok {
			msg = "quest detected: " + q.Name
			fields["quest_id"] = q.ID
			if q.NPC != "" {
				fields["npc"] = q.NPC
			}
		}
		l.deps.Emitter.Emit(schemas.EventQuestDetected, msg, fields)
	}
}

// shutdown drains, checkpoints and terminates. Dispatches are synchronous
// within ticks, so reaching here means nothing is in flight.
func (l *Loop) shutdown(reason string) error {
	l.state = StateEnding
	now := time.Now()

	var firstErr error
	if l.deps.Checkpoint != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.deps.Checkpoint.SaveCooldowns(ctx, l.deps.Cooldowns.Snapshot()); err != nil {
			firstErr = fmt.Errorf("checkpoint cooldowns: %w", err)
			l.logger.Error("Failed to checkpoint cooldowns", zap.Error(err))
		}
		summary := l.deps.Scheduler.Summary(l.sessionID, l.role.Profile.ID, now)
		summary.EndReason = reason
		if err := l.deps.Checkpoint.SaveSummary(ctx, summary); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("persist summary: %w", err)
			}
			l.logger.Error("Failed to persist session summary", zap.Error(err))
		}
	}

	l.deps.Emitter.Emit(schemas.EventSessionEnd, "session ended: "+reason, map[string]any{
		"reason":  reason,
		"actions": l.deps.Scheduler.State().ActionCount,
	})
	l.state = StateTerminated
	l.logger.Info("Control loop terminated", zap.String("reason", reason))
	return firstErr
}

func intensityOf(cat schemas.ActionCategory) float64 {
	switch cat {
	case schemas.CategoryEmergency:
		return 1.0
	case schemas.CategoryCombat:
		return 0.7
	case schemas.CategoryMovement:
		return 0.4
	default:
		return 0.2
	}
}
