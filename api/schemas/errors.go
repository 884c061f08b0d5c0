package schemas

import (
	"errors"
	"fmt"
)

// -- Error Taxonomy --

// ErrDispatchTimeout marks an effector call that exceeded its deadline.
var ErrDispatchTimeout = errors.New("dispatch timed out")

// ErrDispatchRejected marks an effector call that completed but reported
// failure, e.g. the game window lost focus.
var ErrDispatchRejected = errors.New("dispatch rejected by effector")

// SenseError reports a failed perception attempt. It is always recovered
// locally (as a zero-confidence detection) and never propagated out of the
// sensing layer.
type SenseError struct {
	Kind    SignalKind
	Timeout bool
	Err     error
}

func (e *SenseError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("sense %s: timed out", e.Kind)
	}
	return fmt.Sprintf("sense %s: %v", e.Kind, e.Err)
}

func (e *SenseError) Unwrap() error { return e.Err }

// DispatchError reports a failed input injection. Cooldown budget is never
// consumed for a failed dispatch; the loop logs it and moves on.
type DispatchError struct {
	ActionKey string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.ActionKey, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// ConfigError reports malformed profile or configuration data. It is fatal
// at load time; the loop refuses to start.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
