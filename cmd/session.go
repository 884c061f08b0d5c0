// File: cmd/session.go
// Description: Assembles a session's component graph for the run command.

package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/belief"
	"github.com/xaelith/ghostpilot/internal/config"
	"github.com/xaelith/ghostpilot/internal/control"
	"github.com/xaelith/ghostpilot/internal/cooldown"
	"github.com/xaelith/ghostpilot/internal/decision"
	"github.com/xaelith/ghostpilot/internal/humanize"
	"github.com/xaelith/ghostpilot/internal/loop"
	"github.com/xaelith/ghostpilot/internal/profile"
	"github.com/xaelith/ghostpilot/internal/sensor"
	"github.com/xaelith/ghostpilot/internal/sim"
	"github.com/xaelith/ghostpilot/internal/sink"
	"github.com/xaelith/ghostpilot/internal/store"
)

// session holds everything the run command needs to drive and tear down a
// single bot session.
type session struct {
	Loop          *loop.Loop
	PriorDailyUse time.Duration

	checkpoint *store.SQLiteStore
	logger     *zap.Logger
}

// Close releases session resources. Safe to call after Run returns.
func (s *session) Close() {
	if s.checkpoint != nil {
		if err := s.checkpoint.Close(); err != nil {
			s.logger.Warn("Failed to close checkpoint store", zap.Error(err))
		}
	}
}

// buildSession wires the full component graph: simulated world, sensor
// fan-out, belief store, cooldown tracker (restored from the checkpoint
// database), humanization scheduler, decision engine, dispatcher, event sinks
// and the control loop itself.
func buildSession(ctx context.Context, cfg *config.Config, roleID schemas.RoleID, sessionID string, seed int64, logger *zap.Logger) (*session, error) {
	profiles := profile.NewFSStore(cfg.Profiles.Dir, logger)
	compiled, err := profiles.LoadCompiled(roleID)
	if err != nil {
		return nil, err
	}
	quests, err := profiles.LoadQuests()
	if err != nil {
		return nil, err
	}

	checkpoint, err := store.New(cfg.Store.Path, logger)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tracker := cooldown.New(cfg.Cooldown, logger)
	saved, err := checkpoint.LoadCooldowns(ctx)
	if err != nil {
		checkpoint.Close()
		return nil, err
	}
	tracker.Restore(saved, now)

	priorUse, err := checkpoint.DailyUse(ctx, now)
	if err != nil {
		checkpoint.Close()
		return nil, err
	}

	world := sim.NewWorld(seed)
	vision := sim.NewVision(world, cfg.Sensors, logger)
	effector := sim.NewEffector(world, logger)

	runner := sensor.NewRunner(cfg.Sensors, vision, logger)
	beliefs := belief.New(cfg.Belief, func(kind schemas.SignalKind) time.Duration {
		return cfg.Sensors.Channel(kind).Staleness
	}, logger)

	scheduler := humanize.New(cfg.Humanize, logger, nil)
	engine := decision.New(cfg.Decision, logger)
	dispatcher := loop.NewDispatcher(effector, cfg.Loop.DispatchTimeout, logger)

	sinks := []schemas.SessionSink{
		sink.NewLogSink(logger),
		sink.NewStoreSink(checkpoint, logger),
	}

	// The hub needs the loop's status and the loop needs the hub's command
	// channel; the late-bound pointer breaks the cycle.
	var active *loop.Loop
	var commands <-chan control.Command
	if cfg.Control.Enabled {
		hub := control.NewHub(func() control.Status {
			if active == nil {
				return control.Status{State: string(loop.StateInit), SessionID: sessionID}
			}
			return active.Status()
		}, logger)
		if err := hub.Start(ctx, cfg.Control.Addr); err != nil {
			checkpoint.Close()
			return nil, err
		}
		commands = hub.Commands()
		sinks = append(sinks, hub)
	}

	emitter := sink.NewEmitter(sessionID, sinks...)

	l, err := loop.New(sessionID, compiled, loop.Deps{
		Config:     cfg,
		Logger:     logger,
		Sensors:    runner,
		Beliefs:    beliefs,
		Cooldowns:  tracker,
		Scheduler:  scheduler,
		Engine:     engine,
		Dispatch:   dispatcher,
		Emitter:    emitter,
		Checkpoint: checkpoint,
		Commands:   commands,
		Quests:     quests,
	})
	if err != nil {
		checkpoint.Close()
		return nil, err
	}
	active = l

	return &session{
		Loop:          l,
		PriorDailyUse: priorUse,
		checkpoint:    checkpoint,
		logger:        logger,
	}, nil
}
