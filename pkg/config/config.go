// Package config describes a scan declaratively and builds its components.
//
// Configuration files are YAML (or JSON, by extension). They are parsed into
// a generic map first and then decoded with mapstructure, so the nested
// dictionaries produced by other tools decode through the same path.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/sweep/pkg/domain"
)

// ScanConfig is the root of a scan description.
type ScanConfig struct {
	Name string `yaml:"name" json:"name" mapstructure:"name"`

	// Positioners are combined into a Compound, the first one varying slowest.
	Positioners []PositionerConfig `yaml:"positioners" json:"positioners" mapstructure:"positioners"`
	Settings    SettingsConfig     `yaml:"settings" json:"settings" mapstructure:"settings"`
	Conditions  []ConditionConfig  `yaml:"conditions" json:"conditions" mapstructure:"conditions"`
	// Actions maps a lifecycle hook (before_move, finalization, ...) to its actions.
	Actions   map[string][]ActionConfig `yaml:"actions" json:"actions" mapstructure:"actions"`
	Readables []string                  `yaml:"readables" json:"readables" mapstructure:"readables"`
	Processor ProcessorConfig           `yaml:"processor" json:"processor" mapstructure:"processor"`
	StepBack  bool                      `yaml:"step_back" json:"step_back" mapstructure:"step_back"`
	Device    DeviceConfig              `yaml:"device" json:"device" mapstructure:"device"`
	Control   ControlConfig             `yaml:"control" json:"control" mapstructure:"control"`
}

// SettingsConfig mirrors domain.ScanSettings. Zero values select the defaults.
type SettingsConfig struct {
	MeasurementInterval time.Duration `yaml:"measurement_interval" json:"measurement_interval" mapstructure:"measurement_interval"`
	NMeasurements       int           `yaml:"n_measurements" json:"n_measurements" mapstructure:"n_measurements"`
	WriteTimeout        time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
	SettlingTime        time.Duration `yaml:"settling_time" json:"settling_time" mapstructure:"settling_time"`
	MaxRetries          int           `yaml:"max_retries" json:"max_retries" mapstructure:"max_retries"`
	RetryDelay          time.Duration `yaml:"retry_delay" json:"retry_delay" mapstructure:"retry_delay"`
	PollInterval        time.Duration `yaml:"poll_interval" json:"poll_interval" mapstructure:"poll_interval"`
}

// ConditionConfig declares a monitored channel.
type ConditionConfig struct {
	ID        string  `yaml:"id" json:"id" mapstructure:"id"`
	Value     any     `yaml:"value" json:"value" mapstructure:"value"`
	Tolerance float64 `yaml:"tolerance" json:"tolerance" mapstructure:"tolerance"`
	// Action is retry or abort. The legacy names wait and wait_and_abort map to retry.
	Action string `yaml:"action" json:"action" mapstructure:"action"`
}

// ActionConfig declares one lifecycle action. Exactly one of Set and Tool is used.
type ActionConfig struct {
	Name  string `yaml:"name" json:"name" mapstructure:"name"`
	Order int    `yaml:"order" json:"order" mapstructure:"order"`
	// Set writes value to a monitored channel of the simulated device.
	Set   string `yaml:"set" json:"set" mapstructure:"set"`
	Value any    `yaml:"value" json:"value" mapstructure:"value"`
	// Tool names an allow-listed command from the process registry.
	Tool string         `yaml:"tool" json:"tool" mapstructure:"tool"`
	Args map[string]any `yaml:"args" json:"args" mapstructure:"args"`
}

// ProcessorConfig selects the data processor.
type ProcessorConfig struct {
	// Type is pairs (default) or by_channel.
	Type string `yaml:"type" json:"type" mapstructure:"type"`
}

// DeviceConfig configures the simulated device used by the CLI.
type DeviceConfig struct {
	Lag      time.Duration  `yaml:"lag" json:"lag" mapstructure:"lag"`
	Monitors map[string]any `yaml:"monitors" json:"monitors" mapstructure:"monitors"`
	// Observable is the response model: knobs (default), sum or gaussian.
	Observable string `yaml:"observable" json:"observable" mapstructure:"observable"`
}

// ControlConfig enables remote control and locking through Redis.
type ControlConfig struct {
	Redis   string        `yaml:"redis" json:"redis" mapstructure:"redis"`
	Prefix  string        `yaml:"prefix" json:"prefix" mapstructure:"prefix"`
	Lock    bool          `yaml:"lock" json:"lock" mapstructure:"lock"`
	LockTTL time.Duration `yaml:"lock_ttl" json:"lock_ttl" mapstructure:"lock_ttl"`
}

// Load reads a YAML or JSON scan description.
func Load(path string) (*ScanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	raw := map[string]any{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return Decode(raw)
}

// Decode converts a generic map into a validated ScanConfig.
// Durations may be strings ("250ms") or nanosecond counts.
func Decode(raw map[string]any) (*ScanConfig, error) {
	cfg := &ScanConfig{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &domain.ConfigurationError{Field: "config", Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parts that do not need a positioner to be built.
func (c *ScanConfig) Validate() error {
	if len(c.Positioners) == 0 {
		return domain.Configf("positioners", "at least one positioner is required")
	}
	for i, p := range c.Positioners {
		if p.Type == "" {
			return domain.Configf(fmt.Sprintf("positioners[%d].type", i), "type is required")
		}
		if p.Type == "time" && len(c.Positioners) > 1 {
			return domain.Configf(fmt.Sprintf("positioners[%d].type", i), "a time positioner cannot be combined with others")
		}
	}
	for hook, actions := range c.Actions {
		if _, err := domain.ParseHook(hook); err != nil {
			return err
		}
		for _, a := range actions {
			if (a.Set == "") == (a.Tool == "") {
				return domain.Configf("actions."+hook, "action %q needs exactly one of set or tool", a.Name)
			}
		}
	}
	switch c.Processor.Type {
	case "", "pairs":
	case "by_channel":
		if len(c.Readables) == 0 {
			return domain.Configf("readables", "by_channel processor needs readable channel names")
		}
	default:
		return domain.Configf("processor.type", "unknown processor %q", c.Processor.Type)
	}
	if c.Settings.NMeasurements < 0 {
		return domain.Configf("settings.n_measurements", "must not be negative")
	}
	return nil
}

// ScanSettings converts the settings, leaving defaults to the scanner.
func (s SettingsConfig) ScanSettings() domain.ScanSettings {
	return domain.ScanSettings{
		MeasurementInterval: s.MeasurementInterval,
		NMeasurements:       s.NMeasurements,
		WriteTimeout:        s.WriteTimeout,
		SettlingTime:        s.SettlingTime,
		MaxRetries:          s.MaxRetries,
		RetryDelay:          s.RetryDelay,
		PollInterval:        s.PollInterval,
	}
}

// DomainConditions converts the condition declarations.
func (c *ScanConfig) DomainConditions() ([]domain.Condition, error) {
	out := make([]domain.Condition, 0, len(c.Conditions))
	for _, cc := range c.Conditions {
		policy, err := domain.ParsePolicy(cc.Action)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Condition{ID: cc.ID, Expected: cc.Value, Tolerance: cc.Tolerance, Policy: policy})
	}
	return out, nil
}

// ConditionIDs returns the monitored channel names in declaration order.
func (c *ScanConfig) ConditionIDs() []string {
	ids := make([]string, len(c.Conditions))
	for i, cc := range c.Conditions {
		ids[i] = cc.ID
	}
	return ids
}

// Knobs returns the writable channel names of all positioners, in position order.
func (c *ScanConfig) Knobs() []string {
	var knobs []string
	for _, p := range c.Positioners {
		knobs = append(knobs, p.Knobs...)
	}
	return knobs
}
