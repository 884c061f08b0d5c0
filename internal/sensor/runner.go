// File: internal/sensor/runner.go
// Description: Per-tick fan-out. All sensors run concurrently under their
// individual timeouts and are joined before the merge, so tick latency is
// bounded by the slowest timeout, not the sum.

package sensor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/config"
)

// Runner drives the configured sensors once per tick.
type Runner struct {
	sensors []Sensor
	cfg     config.SensorsConfig
	logger  *zap.Logger
}

// NewRunner wires the enabled channels against the vision backend.
func NewRunner(cfg config.SensorsConfig, backend schemas.VisionBackend, logger *zap.Logger) *Runner {
	r := &Runner{cfg: cfg, logger: logger.Named("sensors")}

	build := map[schemas.SignalKind]func(schemas.VisionBackend, schemas.Region) Sensor{
		schemas.SignalHealth:    NewHealth,
		schemas.SignalCombat:    NewCombat,
		schemas.SignalBuffs:     NewBuffs,
		schemas.SignalDebuffs:   NewDebuffs,
		schemas.SignalProximity: NewProximity,
		schemas.SignalQuest:     NewQuest,
	}
	for _, kind := range schemas.AllSignalKinds {
		ch := cfg.Channel(kind)
		if !ch.Enabled {
			continue
		}
		r.sensors = append(r.sensors, build[kind](backend, ch.Region))
	}
	return r
}

// NewRunnerWith constructs a runner over explicit sensors, for tests and
// custom channel sets.
func NewRunnerWith(cfg config.SensorsConfig, logger *zap.Logger, sensors ...Sensor) *Runner {
	return &Runner{sensors: sensors, cfg: cfg, logger: logger.Named("sensors")}
}

// Collect fans out one capture per sensor and blocks until every sensor has
// returned or timed out (barrier). Every failure mode lands in the result as
// a zero-confidence detection; Collect itself never fails.
func (r *Runner) Collect(ctx context.Context) []schemas.Detection {
	detections := make([]schemas.Detection, len(r.sensors))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range r.sensors {
		i, s := i, s
		g.Go(func() error {
			timeout := r.cfg.Channel(s.Kind()).Timeout
			sctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			d, err := s.Sense(sctx)
			if err != nil {
				// Absorbed: sensing noise must not propagate.
				r.logger.Debug("Sensor failed",
					zap.String("kind", string(s.Kind())),
					zap.Error(err),
				)
				d = Failed(s.Kind(), schemas.Region{})
			}
			detections[i] = d
			return nil
		})
	}
	// Workers always return nil; the group is used purely as a barrier
	// with shared cancellation.
	_ = g.Wait()

	return detections
}

// Kinds lists the active channels, for startup logging.
func (r *Runner) Kinds() []schemas.SignalKind {
	out := make([]schemas.SignalKind, len(r.sensors))
	for i, s := range r.sensors {
		out[i] = s.Kind()
	}
	return out
}

// MaxTimeout is the upper bound one Collect can take.
func (r *Runner) MaxTimeout() time.Duration {
	var max time.Duration
	for _, s := range r.sensors {
		if t := r.cfg.Channel(s.Kind()).Timeout; t > max {
			max = t
		}
	}
	return max
}
