package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the wiimoterd daemon.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config. Flags are only small overrides on top of the file.
type Config struct {
	// Watch session thresholds and timing
	Watch WatchFileConfig `yaml:"watch"`

	// Input devices feeding the sample source
	Input InputConfig `yaml:"input"`

	// Button lookup table
	Buttons ButtonsConfig `yaml:"buttons"`

	// Screen regions that act as hover targets
	Targets []Region `yaml:"targets,omitempty"`

	// IPC configuration (wiictl and UI integrations)
	IPC IPCConfig `yaml:"ipc"`

	// HTTP server for the event stream
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WatchFileConfig is the user-facing form of WatchConfig.
// The poll interval is represented in milliseconds.
type WatchFileConfig struct {
	CloseOnLeave   bool    `yaml:"close_on_leave"`
	ReplaceCurrent bool    `yaml:"replace_current"`
	DistanceBuffer float64 `yaml:"distance_buffer"`
	RotationBuffer float64 `yaml:"rotation_buffer"`
	LateralBuffer  float64 `yaml:"lateral_buffer"`
	VerticalBuffer float64 `yaml:"vertical_buffer"`
	RepeatMS       int     `yaml:"repeat_ms"`
	RotationAdjust float64 `yaml:"rotation_adjust"`
}

type InputConfig struct {
	Devices       []string `yaml:"devices,omitempty"` // evdev devices, one per slot
	DistanceScale float64  `yaml:"distance_scale"`    // multiplier applied to ABS_DISTANCE
}

type ButtonsConfig struct {
	Preset string         `yaml:"preset"`
	Codes  map[int]string `yaml:"codes,omitempty"` // overrides; empty name removes a code
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	w := DefaultWatchConfig()
	return Config{
		Watch: WatchFileConfig{
			CloseOnLeave:   w.CloseOnLeave,
			ReplaceCurrent: w.ReplaceCurrent,
			DistanceBuffer: w.DistanceBuffer,
			RotationBuffer: w.RotationBuffer,
			LateralBuffer:  w.LateralBuffer,
			VerticalBuffer: w.VerticalBuffer,
			RepeatMS:       defaultWatchRepeatMS,
			RotationAdjust: w.RotationAdjust,
		},
		Input: InputConfig{
			DistanceScale: 1.0,
		},
		Buttons: ButtonsConfig{
			Preset: defaultButtonsName,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		Server: ServerConfig{
			Port: defaultServerPort,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries flag values to apply on top of a loaded config.
// Each override is only applied if its pointer is non-nil; main.go decides
// which flags exist.
type FlagOverrides struct {
	InputDevices []string

	WatchRepeatMS       *int
	WatchCloseOnLeave   *bool
	WatchReplaceCurrent *bool

	ButtonsPreset *string

	IPCSocketPath *string
	ServerPort    *int

	LogLevel *string
}

// Apply merges the overrides into cfg. A non-nil pointer is applied even if
// it holds a zero value.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevices != nil {
		cfg.Input.Devices = append([]string(nil), o.InputDevices...)
	}

	if o.WatchRepeatMS != nil {
		cfg.Watch.RepeatMS = *o.WatchRepeatMS
	}
	if o.WatchCloseOnLeave != nil {
		cfg.Watch.CloseOnLeave = *o.WatchCloseOnLeave
	}
	if o.WatchReplaceCurrent != nil {
		cfg.Watch.ReplaceCurrent = *o.WatchReplaceCurrent
	}

	if o.ButtonsPreset != nil {
		cfg.Buttons.Preset = *o.ButtonsPreset
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.ServerPort != nil {
		cfg.Server.Port = *o.ServerPort
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks structural invariants and returns a user-friendly error.
// Thresholds are not checked: any buffer value is accepted.
func (c *Config) Validate() error {
	// Watch
	if c.Watch.RepeatMS <= 0 {
		return errors.New("watch.repeat_ms must be > 0")
	}

	// Input
	if len(c.Input.Devices) > maxSourceSlots {
		return fmt.Errorf("input.devices supports at most %d devices", maxSourceSlots)
	}
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.DistanceScale == 0 {
		return errors.New("input.distance_scale must not be 0")
	}

	// Buttons
	if _, ok := buttonPresets[c.Buttons.Preset]; !ok {
		return fmt.Errorf("buttons.preset %q is unknown", c.Buttons.Preset)
	}

	// Targets
	seen := make(map[string]struct{}, len(c.Targets))
	for i, r := range c.Targets {
		if r.Name == "" {
			return fmt.Errorf("targets[%d].name must not be empty", i)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("targets[%d].name %q is duplicated", i, r.Name)
		}
		seen[r.Name] = struct{}{}
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("targets[%d] (%s) must have a positive width and height", i, r.Name)
		}
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ToWatchConfig converts the file config into the watcher's config.
func (c *Config) ToWatchConfig() WatchConfig {
	return WatchConfig{
		CloseOnLeave:   c.Watch.CloseOnLeave,
		ReplaceCurrent: c.Watch.ReplaceCurrent,
		DistanceBuffer: c.Watch.DistanceBuffer,
		RotationBuffer: c.Watch.RotationBuffer,
		LateralBuffer:  c.Watch.LateralBuffer,
		VerticalBuffer: c.Watch.VerticalBuffer,
		Repeat:         time.Duration(c.Watch.RepeatMS) * time.Millisecond,
		RotationAdjust: c.Watch.RotationAdjust,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
