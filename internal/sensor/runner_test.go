// File: internal/sensor/runner_test.go
package sensor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/config"
)

// fakeBackend scripts per-region capture results.
type fakeBackend struct {
	byRegion map[schemas.Region]fakeCapture
}

type fakeCapture struct {
	raw        schemas.RawSignal
	confidence float64
	err        error
	delay      time.Duration
}

func (f *fakeBackend) Capture(ctx context.Context, region schemas.Region) (schemas.RawSignal, float64, error) {
	c := f.byRegion[region]
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return schemas.RawSignal{}, 0, ctx.Err()
		}
	}
	return c.raw, c.confidence, c.err
}

func runnerConfig(timeout time.Duration) config.SensorsConfig {
	return config.SensorsConfig{DefaultTimeout: timeout}
}

// -- Single Sensor Tests --

func TestHealthSensor(t *testing.T) {
	region := schemas.Region{X: 1, Width: 10, Height: 10}
	backend := &fakeBackend{byRegion: map[schemas.Region]fakeCapture{
		region: {raw: schemas.RawSignal{Text: "73%"}, confidence: 0.92},
	}}

	d, err := NewHealth(backend, region).Sense(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.SignalHealth, d.Kind)
	assert.Equal(t, 73.0, d.Value.HealthPct)
	assert.Equal(t, 0.92, d.Confidence)
	assert.False(t, d.Failed())
}

func TestHealthSensorUnreadableText(t *testing.T) {
	region := schemas.Region{X: 1, Width: 10, Height: 10}
	backend := &fakeBackend{byRegion: map[schemas.Region]fakeCapture{
		region: {raw: schemas.RawSignal{Text: "~~#"}, confidence: 0.92},
	}}

	d, err := NewHealth(backend, region).Sense(context.Background())
	require.NoError(t, err, "an unintelligible capture is not an error")
	assert.True(t, d.Failed())
}

func TestCombatSensor(t *testing.T) {
	region := schemas.Region{X: 2, Width: 10, Height: 10}
	backend := &fakeBackend{byRegion: map[schemas.Region]fakeCapture{
		region: {raw: schemas.RawSignal{Icons: []string{"combat_flag"}}, confidence: 0.8},
	}}

	d, err := NewCombat(backend, region).Sense(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Value.InCombat)
}

func TestBuffSensorEmptyListIsValid(t *testing.T) {
	region := schemas.Region{X: 3, Width: 10, Height: 10}
	backend := &fakeBackend{byRegion: map[schemas.Region]fakeCapture{
		region: {raw: schemas.RawSignal{}, confidence: 0.8},
	}}

	d, err := NewBuffs(backend, region).Sense(context.Background())
	require.NoError(t, err)
	assert.False(t, d.Failed(), "no buffs visible is a real reading, not a miss")
	assert.Empty(t, d.Value.Names)
}

func TestSensorReportsBackendError(t *testing.T) {
	region := schemas.Region{X: 4, Width: 10, Height: 10}
	backend := &fakeBackend{byRegion: map[schemas.Region]fakeCapture{
		region: {err: errors.New("capture device busy")},
	}}

	d, err := NewProximity(backend, region).Sense(context.Background())
	require.Error(t, err)
	var senseErr *schemas.SenseError
	assert.True(t, errors.As(err, &senseErr))
	assert.Equal(t, schemas.SignalProximity, senseErr.Kind)
	assert.True(t, d.Failed())
}

// -- Runner Tests --

func TestCollectFansOutAllSensors(t *testing.T) {
	healthRegion := schemas.Region{X: 1, Width: 10, Height: 10}
	combatRegion := schemas.Region{X: 2, Width: 10, Height: 10}
	backend := &fakeBackend{byRegion: map[schemas.Region]fakeCapture{
		healthRegion: {raw: schemas.RawSignal{Text: "50%"}, confidence: 0.9},
		combatRegion: {raw: schemas.RawSignal{Icons: []string{"combat_flag"}}, confidence: 0.7},
	}}

	r := NewRunnerWith(runnerConfig(100*time.Millisecond), zap.NewNop(),
		NewHealth(backend, healthRegion),
		NewCombat(backend, combatRegion),
	)

	detections := r.Collect(context.Background())
	require.Len(t, detections, 2)
	assert.Equal(t, schemas.SignalHealth, detections[0].Kind)
	assert.Equal(t, 50.0, detections[0].Value.HealthPct)
	assert.Equal(t, schemas.SignalCombat, detections[1].Kind)
	assert.True(t, detections[1].Value.InCombat)
}

func TestCollectTimeoutYieldsZeroConfidence(t *testing.T) {
	fastRegion := schemas.Region{X: 1, Width: 10, Height: 10}
	slowRegion := schemas.Region{X: 2, Width: 10, Height: 10}
	backend := &fakeBackend{byRegion: map[schemas.Region]fakeCapture{
		fastRegion: {raw: schemas.RawSignal{Text: "50%"}, confidence: 0.9},
		slowRegion: {raw: schemas.RawSignal{Text: "5m"}, confidence: 0.9, delay: 500 * time.Millisecond},
	}}

	r := NewRunnerWith(runnerConfig(30*time.Millisecond), zap.NewNop(),
		NewHealth(backend, fastRegion),
		NewProximity(backend, slowRegion),
	)

	start := time.Now()
	detections := r.Collect(context.Background())
	elapsed := time.Since(start)

	require.Len(t, detections, 2)
	assert.False(t, detections[0].Failed(), "the fast sensor must not be penalized")
	assert.True(t, detections[1].Failed(), "the timed-out sensor degrades to zero confidence")
	assert.Less(t, elapsed, 300*time.Millisecond, "tick latency is bounded by the timeout, not the capture")
}

func TestNewRunnerHonorsDisabledChannels(t *testing.T) {
	cfg := config.SensorsConfig{
		DefaultTimeout: 100 * time.Millisecond,
		Channels: map[schemas.SignalKind]config.SensorConfig{
			schemas.SignalHealth: {Enabled: true},
			schemas.SignalCombat: {Enabled: true},
			// Everything else disabled.
		},
	}
	r := NewRunner(cfg, &fakeBackend{}, zap.NewNop())
	assert.ElementsMatch(t, []schemas.SignalKind{schemas.SignalHealth, schemas.SignalCombat}, r.Kinds())
}
