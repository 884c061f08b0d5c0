// File: internal/belief/store.go
// Description: Consolidates per-tick sensor detections into a single decaying
// belief snapshot. The store is the only writer of CharacterStatus; consumers
// get copies.

package belief

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/config"
)

// StalenessFunc returns the staleness threshold for a signal kind.
type StalenessFunc func(schemas.SignalKind) time.Duration

// Store owns the belief state for the lifetime of the process.
type Store struct {
	cfg       config.BeliefConfig
	staleness StalenessFunc
	logger    *zap.Logger

	mu      sync.Mutex
	current schemas.CharacterStatus
}

// New creates a Store with an all-unknown initial snapshot.
func New(cfg config.BeliefConfig, staleness StalenessFunc, logger *zap.Logger) *Store {
	s := &Store{
		cfg:       cfg,
		staleness: staleness,
		logger:    logger.Named("belief"),
	}
	s.current = initialStatus()
	return s
}

func initialStatus() schemas.CharacterStatus {
	st := schemas.CharacterStatus{
		HealthPct:       100,
		TargetDistance:  -1,
		Buffs:           map[string]bool{},
		Debuffs:         map[string]bool{},
		LastUpdate:      map[schemas.SignalKind]time.Time{},
		FieldConfidence: map[schemas.SignalKind]float64{},
	}
	for _, kind := range schemas.AllSignalKinds {
		st.FieldConfidence[kind] = 0
	}
	return st
}

// Snapshot returns a copy of the current belief without merging anything.
func (s *Store) Snapshot() schemas.CharacterStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Merge folds one tick's detections into the belief and returns the updated
// snapshot. Merge never fails: with no usable detections it returns the
// prior snapshot with one tick's worth of confidence decay applied.
func (s *Store) Merge(detections []schemas.Detection, now time.Time) schemas.CharacterStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKind := make(map[schemas.SignalKind][]schemas.Detection)
	for _, d := range detections {
		byKind[d.Kind] = append(byKind[d.Kind], d)
	}

	refreshed := make(map[schemas.SignalKind]bool)

	if d, ok := bestNumeric(byKind[schemas.SignalHealth], s.cfg.MinConfidence); ok {
		s.current.HealthPct = clamp(d.Value.HealthPct, 0, 100)
		s.touch(schemas.SignalHealth, d)
		refreshed[schemas.SignalHealth] = true
	}
	if d, ok := bestNumeric(byKind[schemas.SignalProximity], s.cfg.MinConfidence); ok {
		s.current.TargetDistance = d.Value.Distance
		s.touch(schemas.SignalProximity, d)
		refreshed[schemas.SignalProximity] = true
	}

	if d, ok := vote(byKind[schemas.SignalCombat]); ok {
		s.current.InCombat = d.Value.InCombat
		s.touch(schemas.SignalCombat, d)
		refreshed[schemas.SignalCombat] = true
	}
	if d, ok := vote(byKind[schemas.SignalBuffs]); ok {
		s.current.Buffs = nameSet(d.Value.Names)
		s.touch(schemas.SignalBuffs, d)
		refreshed[schemas.SignalBuffs] = true
	}
	if d, ok := vote(byKind[schemas.SignalDebuffs]); ok {
		s.current.Debuffs = nameSet(d.Value.Names)
		s.touch(schemas.SignalDebuffs, d)
		refreshed[schemas.SignalDebuffs] = true
	}
	if d, ok := vote(byKind[schemas.SignalQuest]); ok {
		s.current.QuestMarkers = append([]string(nil), d.Value.Names...)
		s.touch(schemas.SignalQuest, d)
		refreshed[schemas.SignalQuest] = true
	}

	// Fields not refreshed this tick keep their value but age: once past
	// their staleness threshold the confidence decays a step per tick.
	for _, kind := range schemas.AllSignalKinds {
		if refreshed[kind] {
			continue
		}
		last, seen := s.current.LastUpdate[kind]
		if !seen || now.Sub(last) > s.staleness(kind) {
			c := s.current.FieldConfidence[kind] - s.cfg.DecayPerTick
			if c < 0 {
				c = 0
			}
			s.current.FieldConfidence[kind] = c
		}
	}

	s.current.OverallConfidence = s.overall()
	return s.current.Clone()
}

func (s *Store) touch(kind schemas.SignalKind, d schemas.Detection) {
	s.current.LastUpdate[kind] = d.CapturedAt
	s.current.FieldConfidence[kind] = d.Confidence
}

// overall is the importance-weighted average of per-field confidence. Kinds
// without a configured weight default to 1.
func (s *Store) overall() float64 {
	var sum, weights float64
	for _, kind := range schemas.AllSignalKinds {
		w, ok := s.cfg.Importance[kind]
		if !ok {
			w = 1
		}
		if w == 0 {
			continue
		}
		sum += s.current.FieldConfidence[kind] * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// bestNumeric picks the highest-confidence detection, requiring it to clear
// the minimum threshold. Low-confidence noise leaves the field untouched.
func bestNumeric(ds []schemas.Detection, minConfidence float64) (schemas.Detection, bool) {
	var best schemas.Detection
	found := false
	for _, d := range ds {
		if d.Confidence < minConfidence || d.Failed() {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	return best, found
}

// vote resolves same-tick detections of a boolean/set kind by summing the
// confidence behind each distinct proposed value. Ties break toward the most
// recent capture. Zero-confidence detections carry no vote.
func vote(ds []schemas.Detection) (schemas.Detection, bool) {
	type tally struct {
		conf   float64
		latest schemas.Detection
	}
	tallies := make(map[string]*tally)
	for _, d := range ds {
		if d.Failed() {
			continue
		}
		key := proposalKey(d)
		t, ok := tallies[key]
		if !ok {
			tallies[key] = &tally{conf: d.Confidence, latest: d}
			continue
		}
		t.conf += d.Confidence
		if d.CapturedAt.After(t.latest.CapturedAt) {
			t.latest = d
		}
	}
	var winner *tally
	for _, t := range tallies {
		switch {
		case winner == nil,
			t.conf > winner.conf,
			t.conf == winner.conf && t.latest.CapturedAt.After(winner.latest.CapturedAt):
			winner = t
		}
	}
	if winner == nil {
		return schemas.Detection{}, false
	}
	return winner.latest, true
}

// proposalKey canonicalizes a detection's proposed value for voting.
func proposalKey(d schemas.Detection) string {
	switch d.Kind {
	case schemas.SignalCombat:
		return strconv.FormatBool(d.Value.InCombat)
	default:
		names := append([]string(nil), d.Value.Names...)
		sort.Strings(names)
		return strings.Join(names, ",")
	}
}

func nameSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
