package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got, want := cfg.ToWatchConfig(), DefaultWatchConfig(); got != want {
		t.Fatalf("ToWatchConfig() = %+v, want %+v", got, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wiimoter.yaml")
	body := `
watch:
  replace_current: true
  lateral_buffer: 80
  repeat_ms: 40
input:
  devices: [/dev/input/event7]
  distance_scale: 0.01
buttons:
  preset: hid-wiimote
  codes:
    304: wiiButtonB
    258: ""
targets:
  - {name: canvas, x: 0, y: 0, width: 640, height: 480}
server:
  port: 4000
logging:
  level: debug
`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	w := cfg.ToWatchConfig()
	if !w.ReplaceCurrent || w.LateralBuffer != 80 || w.Repeat != 40*time.Millisecond {
		t.Fatalf("unexpected watch config: %+v", w)
	}
	// Fields not in the file keep their defaults.
	if !w.CloseOnLeave || w.VerticalBuffer != defaultVerticalBuffer || cfg.IPC.SocketPath != defaultSocketPath {
		t.Fatalf("defaults lost: %+v ipc=%+v", w, cfg.IPC)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].Width != 640 {
		t.Fatalf("unexpected targets: %+v", cfg.Targets)
	}

	buttons, err := newButtonMap(cfg.Buttons.Preset, cfg.Buttons.Codes)
	if err != nil {
		t.Fatalf("newButtonMap: %v", err)
	}
	if buttons[0x130] != EventButtonB {
		t.Fatalf("override not applied: %v", buttons[0x130])
	}
	if _, ok := buttons[0x102]; ok {
		t.Fatalf("empty override should remove the code")
	}
}

func TestLoadConfigFile_Rejects(t *testing.T) {
	cases := map[string]string{
		"watch:\n  repaet_ms: 10\n":          "field repaet_ms not found",
		"logging:\n  level: info\n---\n{}\n": "unexpected trailing document",
	}
	for body, want := range cases {
		_, err := parseConfig([]byte(body))
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("parseConfig(%q) error = %v, want containing %q", body, err, want)
		}
	}

	if _, err := LoadConfigFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"repeat", func(c *Config) { c.Watch.RepeatMS = 0 }, "watch.repeat_ms"},
		{"devices", func(c *Config) { c.Input.Devices = []string{""} }, "input.devices[0]"},
		{"too many devices", func(c *Config) { c.Input.Devices = []string{"a", "b", "c", "d", "e"} }, "at most"},
		{"preset", func(c *Config) { c.Buttons.Preset = "gamepad" }, "buttons.preset"},
		{"region name", func(c *Config) { c.Targets = []Region{{Width: 1, Height: 1}} }, "name must not be empty"},
		{"region dup", func(c *Config) {
			c.Targets = []Region{{Name: "a", Width: 1, Height: 1}, {Name: "a", Width: 1, Height: 1}}
		}, "duplicated"},
		{"region size", func(c *Config) { c.Targets = []Region{{Name: "a"}} }, "positive width"},
		{"socket", func(c *Config) { c.IPC.SocketPath = "" }, "ipc.socket_path"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		c.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Errorf("%s: Validate() = %v, want containing %q", c.name, err, c.want)
		}
	}

	// Buffers are accepted as-is.
	cfg := DefaultConfig()
	cfg.Watch.LateralBuffer = -10
	if err := cfg.Validate(); err != nil {
		t.Fatalf("negative buffer rejected: %v", err)
	}
}

func TestFlagOverridesApply(t *testing.T) {
	cfg := DefaultConfig()
	port := 0
	closeOnLeave := false
	level := "debug"

	FlagOverrides{
		InputDevices:      []string{"/dev/input/event3"},
		ServerPort:        &port,
		WatchCloseOnLeave: &closeOnLeave,
		LogLevel:          &level,
	}.Apply(&cfg)

	if cfg.Server.Port != 0 || cfg.Watch.CloseOnLeave || cfg.Logging.Level != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Input.Devices) != 1 || cfg.Input.Devices[0] != "/dev/input/event3" {
		t.Fatalf("devices not applied: %v", cfg.Input.Devices)
	}
	if cfg.IPC.SocketPath != defaultSocketPath {
		t.Fatalf("unset override changed socket path")
	}

	FlagOverrides{}.Apply(nil) // must not panic
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/x.yaml"); got != filepath.Join(home, "x.yaml") {
		t.Fatalf("ExpandPath = %q", got)
	}
	if got := ExpandPath("/etc/x"); got != "/etc/x" {
		t.Fatalf("absolute path changed: %q", got)
	}
	if got := ExpandPath("~user/x"); got != "~user/x" {
		t.Fatalf("~user form should be left alone: %q", got)
	}
}
