// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/xaelith/ghostpilot/api/schemas"
)

// Config holds the entire application configuration. Field values come from
// the config file, GHOSTPILOT_* environment variables and CLI flag overrides,
// in ascending precedence.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Loop     LoopConfig     `mapstructure:"loop" yaml:"loop"`
	Sensors  SensorsConfig  `mapstructure:"sensors" yaml:"sensors"`
	Belief   BeliefConfig   `mapstructure:"belief" yaml:"belief"`
	Decision DecisionConfig `mapstructure:"decision" yaml:"decision"`
	Cooldown CooldownConfig `mapstructure:"cooldown" yaml:"cooldown"`
	Humanize HumanizeConfig `mapstructure:"humanize" yaml:"humanize"`
	Profiles ProfilesConfig `mapstructure:"profiles" yaml:"profiles"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Control  ControlConfig  `mapstructure:"control" yaml:"control"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LoopConfig tunes the control loop itself.
type LoopConfig struct {
	// TickRate is in ticks per second.
	TickRate        float64       `mapstructure:"tick_rate" yaml:"tick_rate"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout" yaml:"dispatch_timeout"`
}

// TickInterval converts the configured rate into the loop's ticker period.
func (l LoopConfig) TickInterval() time.Duration {
	if l.TickRate <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(float64(time.Second) / l.TickRate)
}

// SensorConfig configures one perception channel.
type SensorConfig struct {
	Enabled bool           `mapstructure:"enabled" yaml:"enabled"`
	Region  schemas.Region `mapstructure:"region" yaml:"region"`
	// Timeout bounds a single capture; zero falls back to the default.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Staleness is how long a reading stays trustworthy before its
	// confidence starts to decay.
	Staleness time.Duration `mapstructure:"staleness" yaml:"staleness"`
}

// SensorsConfig maps signal kinds to their sensor settings.
type SensorsConfig struct {
	DefaultTimeout time.Duration                       `mapstructure:"default_timeout" yaml:"default_timeout"`
	Channels       map[schemas.SignalKind]SensorConfig `mapstructure:"channels" yaml:"channels"`
}

// Channel returns the settings for a kind with defaults applied.
func (s SensorsConfig) Channel(kind schemas.SignalKind) SensorConfig {
	c := s.Channels[kind]
	if c.Timeout <= 0 {
		c.Timeout = s.DefaultTimeout
	}
	if c.Timeout <= 0 {
		c.Timeout = 250 * time.Millisecond
	}
	if c.Staleness <= 0 {
		c.Staleness = 3 * time.Second
	}
	return c
}

// BeliefConfig governs detection merging and confidence decay.
type BeliefConfig struct {
	// MinConfidence gates numeric field updates; detections below it leave
	// the field untouched.
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	// DecayPerTick is subtracted from a field's confidence each tick it
	// goes unrefreshed past its staleness threshold.
	DecayPerTick float64 `mapstructure:"decay_per_tick" yaml:"decay_per_tick"`
	// Importance weights the per-field confidences in the overall score.
	Importance map[schemas.SignalKind]float64 `mapstructure:"importance" yaml:"importance"`
}

// DecisionConfig holds the decision engine's thresholds.
type DecisionConfig struct {
	// CriticalHealthPct triggers the emergency override regardless of role.
	CriticalHealthPct float64 `mapstructure:"critical_health_pct" yaml:"critical_health_pct"`
	EmergencyAction   string  `mapstructure:"emergency_action" yaml:"emergency_action"`
	// ConfidenceFloor suppresses all actions when the belief's overall
	// confidence drops below it. Acting on blind belief is worse than idling.
	ConfidenceFloor float64 `mapstructure:"confidence_floor" yaml:"confidence_floor"`
	// HealerGroupSize / TankGroupSize are the role-switch cutoffs.
	HealerGroupSize int `mapstructure:"healer_group_size" yaml:"healer_group_size"`
	TankGroupSize   int `mapstructure:"tank_group_size" yaml:"tank_group_size"`
	// QuestNotifyCooldown throttles repeat "new quest detected" events.
	QuestNotifyCooldown time.Duration `mapstructure:"quest_notify_cooldown" yaml:"quest_notify_cooldown"`
}

// CooldownConfig declares the in-game cooldown table and the per-category
// anti-detection budgets.
type CooldownConfig struct {
	// Abilities maps action keys to their in-game cooldown in seconds.
	Abilities map[string]float64 `mapstructure:"abilities" yaml:"abilities"`
	// RatePerHour maps action categories to their hourly use budget;
	// zero or missing means unlimited.
	RatePerHour map[schemas.ActionCategory]int `mapstructure:"rate_per_hour" yaml:"rate_per_hour"`
}

// HumanizeConfig tunes session-level pacing.
type HumanizeConfig struct {
	// DelayMin/DelayMax bound the randomized reaction delay before dispatch.
	DelayMin time.Duration `mapstructure:"delay_min" yaml:"delay_min"`
	DelayMax time.Duration `mapstructure:"delay_max" yaml:"delay_max"`
	// IdleProbability is the per-empty-tick chance of injecting an idle action.
	IdleProbability float64  `mapstructure:"idle_probability" yaml:"idle_probability"`
	IdleActions     []string `mapstructure:"idle_actions" yaml:"idle_actions"`
	// ActionsPerMinute caps the global sustained action rate.
	ActionsPerMinute float64 `mapstructure:"actions_per_minute" yaml:"actions_per_minute"`
	// Session caps.
	MaxSessionHours float64       `mapstructure:"max_session_hours" yaml:"max_session_hours"`
	BreakEvery      time.Duration `mapstructure:"break_every" yaml:"break_every"`
	BreakLength     time.Duration `mapstructure:"break_length" yaml:"break_length"`
	DailyCapHours   float64       `mapstructure:"daily_cap_hours" yaml:"daily_cap_hours"`
	// Fatigue model.
	FatigueIncreaseRate float64 `mapstructure:"fatigue_increase_rate" yaml:"fatigue_increase_rate"`
	FatigueRecoveryRate float64 `mapstructure:"fatigue_recovery_rate" yaml:"fatigue_recovery_rate"`
}

// ProfilesConfig points at the static data tables.
type ProfilesConfig struct {
	Dir         string         `mapstructure:"dir" yaml:"dir"`
	DefaultRole schemas.RoleID `mapstructure:"default_role" yaml:"default_role"`
}

// StoreConfig configures the embedded checkpoint database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ControlConfig configures the local pause/resume websocket endpoint.
type ControlConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are compiled in; failing to unmarshal them is a bug.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "ghostpilot")
	v.SetDefault("logger.log_file", "ghostpilot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Loop --
	v.SetDefault("loop.tick_rate", 3.0)
	v.SetDefault("loop.dispatch_timeout", "2s")

	// -- Sensors --
	v.SetDefault("sensors.default_timeout", "250ms")
	for _, kind := range schemas.AllSignalKinds {
		key := "sensors.channels." + string(kind)
		v.SetDefault(key+".enabled", true)
		v.SetDefault(key+".staleness", "3s")
	}
	// Quest markers move slowly; let them age longer before decaying.
	v.SetDefault("sensors.channels.QUEST.staleness", "15s")

	// -- Belief --
	v.SetDefault("belief.min_confidence", 0.4)
	v.SetDefault("belief.decay_per_tick", 0.08)
	v.SetDefault("belief.importance", map[string]float64{
		string(schemas.SignalHealth):    3.0,
		string(schemas.SignalCombat):    2.0,
		string(schemas.SignalBuffs):     1.0,
		string(schemas.SignalDebuffs):   1.5,
		string(schemas.SignalProximity): 1.0,
		string(schemas.SignalQuest):     0.5,
	})

	// -- Decision --
	v.SetDefault("decision.critical_health_pct", 20.0)
	v.SetDefault("decision.emergency_action", "emergency_heal")
	v.SetDefault("decision.confidence_floor", 0.25)
	v.SetDefault("decision.healer_group_size", 3)
	v.SetDefault("decision.tank_group_size", 4)
	v.SetDefault("decision.quest_notify_cooldown", "5m")

	// -- Cooldown --
	v.SetDefault("cooldown.rate_per_hour", map[string]int{
		string(schemas.CategoryCombat):   240,
		string(schemas.CategoryMovement): 600,
		string(schemas.CategoryIdle):     60,
		string(schemas.CategoryUtility):  120,
	})

	// -- Humanize --
	v.SetDefault("humanize.delay_min", "120ms")
	v.SetDefault("humanize.delay_max", "650ms")
	v.SetDefault("humanize.idle_probability", 0.04)
	v.SetDefault("humanize.idle_actions", []string{"emote_stretch", "camera_pan", "check_bags"})
	v.SetDefault("humanize.actions_per_minute", 40.0)
	v.SetDefault("humanize.max_session_hours", 3.0)
	v.SetDefault("humanize.break_every", "50m")
	v.SetDefault("humanize.break_length", "8m")
	v.SetDefault("humanize.daily_cap_hours", 8.0)
	v.SetDefault("humanize.fatigue_increase_rate", 0.002)
	v.SetDefault("humanize.fatigue_recovery_rate", 0.01)

	// -- Profiles --
	v.SetDefault("profiles.dir", "profiles")
	v.SetDefault("profiles.default_role", string(schemas.RoleDPS))

	// -- Store --
	v.SetDefault("store.path", "ghostpilot.db")

	// -- Control --
	v.SetDefault("control.enabled", false)
	v.SetDefault("control.addr", "127.0.0.1:7777")
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Loop.TickRate <= 0 || c.Loop.TickRate > 20 {
		return fmt.Errorf("loop.tick_rate must be in (0, 20], got %v", c.Loop.TickRate)
	}
	if c.Loop.DispatchTimeout <= 0 {
		return fmt.Errorf("loop.dispatch_timeout must be a positive duration")
	}
	if c.Belief.MinConfidence < 0 || c.Belief.MinConfidence > 1 {
		return fmt.Errorf("belief.min_confidence must be between 0.0 and 1.0")
	}
	if c.Belief.DecayPerTick < 0 || c.Belief.DecayPerTick > 1 {
		return fmt.Errorf("belief.decay_per_tick must be between 0.0 and 1.0")
	}
	if c.Decision.ConfidenceFloor < 0 || c.Decision.ConfidenceFloor > 1 {
		return fmt.Errorf("decision.confidence_floor must be between 0.0 and 1.0")
	}
	if c.Decision.CriticalHealthPct <= 0 || c.Decision.CriticalHealthPct >= 100 {
		return fmt.Errorf("decision.critical_health_pct must be in (0, 100)")
	}
	if c.Decision.EmergencyAction == "" {
		return fmt.Errorf("decision.emergency_action is required")
	}
	if err := c.Humanize.Validate(); err != nil {
		return fmt.Errorf("humanize configuration invalid: %w", err)
	}
	for kind, w := range c.Belief.Importance {
		if w < 0 {
			return fmt.Errorf("belief.importance.%s must be non-negative", kind)
		}
	}
	for cat, n := range c.Cooldown.RatePerHour {
		if n < 0 {
			return fmt.Errorf("cooldown.rate_per_hour.%s must be non-negative", cat)
		}
	}
	return nil
}

// Validate checks the humanizer settings.
func (h *HumanizeConfig) Validate() error {
	if h.DelayMin < 0 || h.DelayMax < h.DelayMin {
		return fmt.Errorf("delay_min/delay_max must satisfy 0 <= min <= max")
	}
	if h.IdleProbability < 0 || h.IdleProbability > 1 {
		return fmt.Errorf("idle_probability must be between 0.0 and 1.0")
	}
	if h.ActionsPerMinute <= 0 {
		return fmt.Errorf("actions_per_minute must be positive")
	}
	if h.MaxSessionHours <= 0 {
		return fmt.Errorf("max_session_hours must be positive")
	}
	if h.DailyCapHours > 0 && h.DailyCapHours < h.MaxSessionHours {
		return fmt.Errorf("daily_cap_hours must be at least max_session_hours")
	}
	if h.FatigueIncreaseRate < 0 || h.FatigueRecoveryRate < 0 {
		return fmt.Errorf("fatigue rates must be non-negative")
	}
	return nil
}
