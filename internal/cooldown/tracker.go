// File: internal/cooldown/tracker.go
// Description: Combined gate for in-game ability cooldowns and anti-detection
// hourly rate limits. One entry per distinct action key, created lazily on
// first dispatch attempt.

package cooldown

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/config"
)

// rateWindowLength is the fixed anti-detection accounting window. Count
// resets exactly at WindowStart + rateWindowLength.
const rateWindowLength = time.Hour

// Tracker owns all cooldown entries. Safe for concurrent use; the decision
// read and the post-dispatch write may come from different goroutines during
// shutdown.
type Tracker struct {
	cfg    config.CooldownConfig
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*schemas.CooldownEntry
}

// New creates an empty tracker.
func New(cfg config.CooldownConfig, logger *zap.Logger) *Tracker {
	return &Tracker{
		cfg:     cfg,
		logger:  logger.Named("cooldown"),
		entries: make(map[string]*schemas.CooldownEntry),
	}
}

// IsReady reports whether both gates pass for the action: the in-game
// cooldown has expired and the hourly budget has room.
func (t *Tracker) IsReady(key string, cat schemas.ActionCategory, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entry(key, cat)
	return abilityReady(e, now) && rateReady(e, now)
}

// AbilityReady checks only the in-game cooldown gate. Emergency overrides use
// this: safety actions are never held back by anti-detection budgets, but an
// ability that is physically on cooldown still cannot be cast.
func (t *Tracker) AbilityReady(key string, cat schemas.ActionCategory, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return abilityReady(t.entry(key, cat), now)
}

// RecordUse marks a confirmed execution. Callers must only invoke this after
// the effector reported success; attempted-but-failed dispatches must not
// consume budget.
func (t *Tracker) RecordUse(key string, cat schemas.ActionCategory, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entry(key, cat)
	e.LastUsedAt = now
	if e.Rate.MaxPerHour <= 0 {
		return
	}
	if e.Rate.WindowStart.IsZero() || !now.Before(e.Rate.WindowStart.Add(rateWindowLength)) {
		e.Rate.WindowStart = now
		e.Rate.Count = 1
		return
	}
	e.Rate.Count++
}

// Remaining returns the unused hourly budget for the key; -1 means unlimited.
func (t *Tracker) Remaining(key string, cat schemas.ActionCategory, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entry(key, cat)
	if e.Rate.MaxPerHour <= 0 {
		return -1
	}
	if e.Rate.WindowStart.IsZero() || !now.Before(e.Rate.WindowStart.Add(rateWindowLength)) {
		return e.Rate.MaxPerHour
	}
	r := e.Rate.MaxPerHour - e.Rate.Count
	if r < 0 {
		r = 0
	}
	return r
}

// Snapshot copies all entries in a stable order, for checkpointing.
func (t *Tracker) Snapshot() []schemas.CooldownEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]schemas.CooldownEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionKey < out[j].ActionKey })
	return out
}

// Restore loads checkpointed entries. Windows that have already elapsed are
// dropped; live windows keep their remaining budget exactly, so a restart
// mid-hour cannot be used to launder rate limits.
func (t *Tracker) Restore(entries []schemas.CooldownEntry, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	restored := 0
	for _, e := range entries {
		e := e
		if !e.Rate.WindowStart.IsZero() && !now.Before(e.Rate.WindowStart.Add(rateWindowLength)) {
			e.Rate.WindowStart = time.Time{}
			e.Rate.Count = 0
		}
		t.entries[e.ActionKey] = &e
		restored++
	}
	if restored > 0 {
		t.logger.Info("Restored cooldown state", zap.Int("entries", restored))
	}
}

// entry returns the record for a key, creating it from configuration on
// first sight. Caller holds the lock.
func (t *Tracker) entry(key string, cat schemas.ActionCategory) *schemas.CooldownEntry {
	if e, ok := t.entries[key]; ok {
		return e
	}
	e := &schemas.CooldownEntry{
		ActionKey:       key,
		CooldownSeconds: t.cfg.Abilities[key],
		Rate: schemas.RateWindow{
			MaxPerHour: t.cfg.RatePerHour[cat],
		},
	}
	t.entries[key] = e
	return e
}

func abilityReady(e *schemas.CooldownEntry, now time.Time) bool {
	if e.CooldownSeconds <= 0 || e.LastUsedAt.IsZero() {
		return true
	}
	expiry := e.LastUsedAt.Add(time.Duration(e.CooldownSeconds * float64(time.Second)))
	return !now.Before(expiry)
}

func rateReady(e *schemas.CooldownEntry, now time.Time) bool {
	if e.Rate.MaxPerHour <= 0 {
		return true
	}
	if e.Rate.WindowStart.IsZero() || !now.Before(e.Rate.WindowStart.Add(rateWindowLength)) {
		return true
	}
	return e.Rate.Count < e.Rate.MaxPerHour
}
