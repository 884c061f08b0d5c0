// File: internal/sensor/sensor.go
// Description: Perception channels. Each sensor wraps one vision capture and
// turns the raw OCR/template result into a typed Detection. A recognition
// miss is a zero-confidence detection, never a panic; one failing sensor
// cannot halt the loop.

package sensor

import (
	"context"
	"time"

	"github.com/xaelith/ghostpilot/api/schemas"
)

// Sensor is one independently retryable perception channel.
type Sensor interface {
	Kind() schemas.SignalKind
	// Sense performs a single capture. An error is recovered by the runner
	// as a zero-confidence detection; sensors must honor ctx deadlines.
	Sense(ctx context.Context) (schemas.Detection, error)
}

// parseFunc turns a raw capture into a signal value. A false return means
// the capture could not be interpreted for this channel.
type parseFunc func(schemas.RawSignal) (schemas.SignalValue, bool)

// visionSensor is the common implementation: capture a region, parse it.
type visionSensor struct {
	kind    schemas.SignalKind
	region  schemas.Region
	backend schemas.VisionBackend
	parse   parseFunc
}

func (v *visionSensor) Kind() schemas.SignalKind { return v.kind }

func (v *visionSensor) Sense(ctx context.Context) (schemas.Detection, error) {
	raw, confidence, err := v.backend.Capture(ctx, v.region)
	if err != nil {
		return Failed(v.kind, v.region), &schemas.SenseError{
			Kind:    v.kind,
			Timeout: ctx.Err() != nil,
			Err:     err,
		}
	}
	value, ok := v.parse(raw)
	if !ok {
		// Captured but unintelligible: same treatment as a miss.
		return Failed(v.kind, v.region), nil
	}
	return schemas.Detection{
		Kind:       v.kind,
		Value:      value,
		Confidence: clamp01(confidence),
		CapturedAt: time.Now(),
		Region:     v.region,
	}, nil
}

// Failed builds the zero-confidence detection used for every failure mode.
func Failed(kind schemas.SignalKind, region schemas.Region) schemas.Detection {
	return schemas.Detection{
		Kind:       kind,
		CapturedAt: time.Now(),
		Region:     region,
	}
}

// -- Concrete channels --

// NewHealth reads the health bar region. Accepts "73%", "730/1000" or a bare
// number from the OCR text.
func NewHealth(backend schemas.VisionBackend, region schemas.Region) Sensor {
	return &visionSensor{
		kind:    schemas.SignalHealth,
		region:  region,
		backend: backend,
		parse: func(raw schemas.RawSignal) (schemas.SignalValue, bool) {
			pct, ok := parseHealthPct(raw.Text)
			if !ok {
				return schemas.SignalValue{}, false
			}
			return schemas.SignalValue{HealthPct: pct}, true
		},
	}
}

// NewCombat detects the in-combat flag from matched icon templates.
func NewCombat(backend schemas.VisionBackend, region schemas.Region) Sensor {
	return &visionSensor{
		kind:    schemas.SignalCombat,
		region:  region,
		backend: backend,
		parse: func(raw schemas.RawSignal) (schemas.SignalValue, bool) {
			return schemas.SignalValue{InCombat: hasIcon(raw.Icons, "combat_flag")}, true
		},
	}
}

// NewBuffs reads the buff bar; every matched icon name is an active buff.
func NewBuffs(backend schemas.VisionBackend, region schemas.Region) Sensor {
	return newIconListSensor(schemas.SignalBuffs, backend, region)
}

// NewDebuffs reads the debuff bar.
func NewDebuffs(backend schemas.VisionBackend, region schemas.Region) Sensor {
	return newIconListSensor(schemas.SignalDebuffs, backend, region)
}

// NewQuest scans the minimap/NPC area for quest markers.
func NewQuest(backend schemas.VisionBackend, region schemas.Region) Sensor {
	return newIconListSensor(schemas.SignalQuest, backend, region)
}

func newIconListSensor(kind schemas.SignalKind, backend schemas.VisionBackend, region schemas.Region) Sensor {
	return &visionSensor{
		kind:    kind,
		region:  region,
		backend: backend,
		parse: func(raw schemas.RawSignal) (schemas.SignalValue, bool) {
			// An empty icon list is a valid reading: no buffs/markers.
			return schemas.SignalValue{Names: append([]string(nil), raw.Icons...)}, true
		},
	}
}

// NewProximity reads the target distance from the minimap/target frame.
func NewProximity(backend schemas.VisionBackend, region schemas.Region) Sensor {
	return &visionSensor{
		kind:    schemas.SignalProximity,
		region:  region,
		backend: backend,
		parse: func(raw schemas.RawSignal) (schemas.SignalValue, bool) {
			d, ok := parseDistance(raw.Text)
			if !ok {
				return schemas.SignalValue{}, false
			}
			return schemas.SignalValue{Distance: d}, true
		},
	}
}

func hasIcon(icons []string, name string) bool {
	for _, ic := range icons {
		if ic == name {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
