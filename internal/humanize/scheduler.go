// File: internal/humanize/scheduler.go
// Description: Session-level pacing, orthogonal to combat decisions. Injects
// reaction-time variance before dispatch, occasionally fills idle ticks with
// harmless actions, enforces session caps, and models fatigue so the session
// slows down the longer it runs.

package humanize

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/config"
)

// SessionState tracks one session's pacing bookkeeping. Owned by the
// scheduler, mutated each tick, discarded at session end (only the summary
// persists).
type SessionState struct {
	Start        time.Time
	Elapsed      time.Duration
	NextBreakAt  time.Time
	BreakUntil   time.Time
	ActionCount  int
	LastActionAt time.Time
}

// LimitCheck is the result of a session-limit evaluation. The scheduler only
// signals; the control loop decides when to transition.
type LimitCheck struct {
	WithinLimits bool
	OnBreak      bool
	Warnings     []string
}

// Scheduler is safe for concurrent use; the loop reads it each tick and the
// control channel may query it for status.
type Scheduler struct {
	cfg    config.HumanizeConfig
	logger *zap.Logger

	// limiter caps the sustained global action rate independently of the
	// per-action hourly windows.
	limiter *rate.Limiter

	mu      sync.Mutex
	rng     *rand.Rand
	state   SessionState
	fatigue float64 // 0.0 rested .. 1.0 exhausted
	// priorDailyUse is play time already burned today before this session.
	priorDailyUse time.Duration
	shouldEnd     bool
	endReason     string
}

// New creates a Scheduler. A nil rng gets a time-seeded source; tests pass a
// fixed seed for determinism.
func New(cfg config.HumanizeConfig, logger *zap.Logger, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	perSecond := cfg.ActionsPerMinute / 60.0
	return &Scheduler{
		cfg:     cfg,
		logger:  logger.Named("humanize"),
		limiter: rate.NewLimiter(rate.Limit(perSecond), burstFor(cfg.ActionsPerMinute)),
		rng:     rng,
	}
}

func burstFor(apm float64) int {
	// Allow short flurries of roughly five seconds of budget.
	b := int(apm / 12)
	if b < 1 {
		b = 1
	}
	return b
}

// StartSession resets the pacing state. priorDailyUse is today's play time
// from earlier sessions, counted against the daily cap.
func (s *Scheduler) StartSession(now time.Time, priorDailyUse time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionState{
		Start:       now,
		NextBreakAt: now.Add(s.cfg.BreakEvery),
	}
	s.fatigue = 0
	s.priorDailyUse = priorDailyUse
	s.shouldEnd = false
	s.endReason = ""
}

// ShouldActNow gates a pending dispatch: false while on a mandated break or
// when the sustained action rate would exceed the configured ceiling.
// Emergency plans skip this gate at the loop level.
func (s *Scheduler) ShouldActNow(now time.Time) bool {
	s.mu.Lock()
	onBreak := now.Before(s.state.BreakUntil)
	s.mu.Unlock()
	if onBreak {
		return false
	}
	return s.limiter.Allow()
}

// ReactionDelay draws the randomized pause inserted between decision and
// dispatch, modeling human reaction-time variance. Fatigue stretches it.
func (s *Scheduler) ReactionDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	min := float64(s.cfg.DelayMin)
	max := float64(s.cfg.DelayMax)
	if max <= min {
		return s.cfg.DelayMin
	}
	mean := (min + max) / 2
	stddev := (max - min) / 6
	d := mean + s.rng.NormFloat64()*stddev
	d *= 1.0 + s.fatigue // tired players react slower
	d = math.Max(min, math.Min(d, max*2))
	return time.Duration(d)
}

// MaybeIdleAction probabilistically fills an empty tick with a non-combat
// action so idle periods are never perfectly static. Returns nil most ticks.
func (s *Scheduler) MaybeIdleAction(now time.Time) *schemas.ActionPlan {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cfg.IdleActions) == 0 || now.Before(s.state.BreakUntil) {
		return nil
	}
	// Fatigue makes fidgeting slightly more likely, not less.
	p := s.cfg.IdleProbability * (1.0 + 0.5*s.fatigue)
	if s.rng.Float64() >= p {
		return nil
	}
	key := s.cfg.IdleActions[s.rng.Intn(len(s.cfg.IdleActions))]
	return &schemas.ActionPlan{
		ActionKey: key,
		Category:  schemas.CategoryIdle,
		Reason:    "idle variance",
	}
}

// CheckSessionLimits updates elapsed time, schedules mandatory breaks and
// evaluates the session and daily caps. It flips the should-end flag but
// never forces termination itself.
func (s *Scheduler) CheckSessionLimits(now time.Time) LimitCheck {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Elapsed = now.Sub(s.state.Start)
	check := LimitCheck{WithinLimits: true, OnBreak: now.Before(s.state.BreakUntil)}

	maxSession := time.Duration(s.cfg.MaxSessionHours * float64(time.Hour))
	if s.state.Elapsed >= maxSession {
		s.flagEnd("session cap reached")
		check.WithinLimits = false
		check.Warnings = append(check.Warnings, "session cap reached")
	}
	if s.cfg.DailyCapHours > 0 {
		dailyCap := time.Duration(s.cfg.DailyCapHours * float64(time.Hour))
		if s.priorDailyUse+s.state.Elapsed >= dailyCap {
			s.flagEnd("daily cap reached")
			check.WithinLimits = false
			check.Warnings = append(check.Warnings, "daily cap reached")
		}
	}

	// Mandatory break: start one when due, and push the next one out past
	// the break itself.
	if check.WithinLimits && !check.OnBreak && s.cfg.BreakEvery > 0 && now.After(s.state.NextBreakAt) {
		s.state.BreakUntil = now.Add(s.cfg.BreakLength)
		s.state.NextBreakAt = s.state.BreakUntil.Add(s.cfg.BreakEvery)
		check.OnBreak = true
		check.Warnings = append(check.Warnings, "mandatory break started")
		s.logger.Info("Mandatory break",
			zap.Duration("length", s.cfg.BreakLength),
			zap.Duration("elapsed", s.state.Elapsed),
		)
	}
	return check
}

func (s *Scheduler) flagEnd(reason string) {
	if !s.shouldEnd {
		s.shouldEnd = true
		s.endReason = reason
	}
}

// SessionShouldEnd reports whether a cap has been hit. Read by the control
// loop at the top of each tick.
func (s *Scheduler) SessionShouldEnd() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldEnd, s.endReason
}

// EndSession flags a manual session end.
func (s *Scheduler) EndSession(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flagEnd(reason)
}

// NoteAction records a confirmed dispatch and accumulates fatigue in
// proportion to the action's intensity in [0,1].
func (s *Scheduler) NoteAction(now time.Time, intensity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActionCount++
	s.state.LastActionAt = now
	s.fatigue = math.Min(1.0, s.fatigue+s.cfg.FatigueIncreaseRate*intensity)
}

// NoteIdle lets fatigue recover during action-free ticks, proportional to
// the time passed.
func (s *Scheduler) NoteIdle(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fatigue = math.Max(0, s.fatigue-s.cfg.FatigueRecoveryRate*elapsed.Seconds())
}

// Fatigue exposes the current fatigue level for telemetry.
func (s *Scheduler) Fatigue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatigue
}

// State returns a copy of the session bookkeeping.
func (s *Scheduler) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Summary builds the durable end-of-session record.
func (s *Scheduler) Summary(sessionID string, role schemas.RoleID, now time.Time) schemas.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason := s.endReason
	if reason == "" {
		reason = "manual"
	}
	return schemas.SessionSummary{
		SessionID:   sessionID,
		Role:        role,
		StartedAt:   s.state.Start,
		EndedAt:     now,
		Duration:    now.Sub(s.state.Start),
		ActionCount: s.state.ActionCount,
		EndReason:   reason,
	}
}
