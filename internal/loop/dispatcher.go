// File: internal/loop/dispatcher.go
package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
)

// Dispatcher serializes all actuation through the effector. Concurrent input
// injection into one game client is unsafe and would itself be a detectable
// anomaly, so at most one dispatch is ever in flight.
type Dispatcher struct {
	effector schemas.Effector
	timeout  time.Duration
	logger   *zap.Logger

	mu sync.Mutex
}

// NewDispatcher creates a Dispatcher with a per-dispatch timeout.
func NewDispatcher(effector schemas.Effector, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		effector: effector,
		timeout:  timeout,
		logger:   logger.Named("dispatch"),
	}
}

// Dispatch executes the plan. The deadline is the dispatcher's own, detached
// from loop cancellation: a dispatch already in flight always runs to
// completion or its timeout, never leaving the client mid-action.
func (d *Dispatcher) Dispatch(plan *schemas.ActionPlan) (schemas.DispatchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	result, err := d.effector.Dispatch(ctx, plan.ActionKey, plan.Target)
	if err != nil {
		// Keep the effector's error visible when it raced with the deadline.
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", schemas.ErrDispatchTimeout, err)
		}
		return schemas.DispatchResult{Latency: time.Since(start)}, &schemas.DispatchError{
			ActionKey: plan.ActionKey,
			Err:       err,
		}
	}
	if result.Latency == 0 {
		result.Latency = time.Since(start)
	}
	if !result.Success {
		return result, &schemas.DispatchError{
			ActionKey: plan.ActionKey,
			Err:       schemas.ErrDispatchRejected,
		}
	}
	d.logger.Debug("Dispatched",
		zap.String("action", plan.ActionKey),
		zap.Duration("latency", result.Latency),
	)
	return result, nil
}
