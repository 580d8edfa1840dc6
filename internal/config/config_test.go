package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/solar-tracker/internal/store"
	"github.com/sweeney/solar-tracker/internal/tracker"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solar-tracker.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.TrackerConfig() != tracker.DefaultConfig() {
		t.Errorf("default tracker config does not match tracker.DefaultConfig()")
	}
	if cfg.Store.Backend != store.BackendNone {
		t.Errorf("store backend = %q, want none", cfg.Store.Backend)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
poll: 50ms
gpio:
  backend: rpio
  pin_east: 17
  pin_west: 27
adc:
  east_channel: 3
  west_channel: 4
sensor:
  filter_tau: 5s
tracker:
  tolerance_percent: 15
  adjustment_period: 2m
  default_west_enabled: true
store:
  backend: redis
  redis_addr: localhost:6379
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Poll != 50*time.Millisecond {
		t.Errorf("poll = %v, want 50ms", cfg.Poll)
	}
	if cfg.GPIO.Backend != "rpio" || cfg.GPIO.PinEast != 17 || cfg.GPIO.PinWest != 27 {
		t.Errorf("gpio = %+v", cfg.GPIO)
	}
	if cfg.GPIO.Chip != "gpiochip0" {
		t.Errorf("chip = %q, want default kept", cfg.GPIO.Chip)
	}
	if cfg.ADC.EastChannel != 3 || cfg.ADC.WestChannel != 4 {
		t.Errorf("adc channels = %d/%d", cfg.ADC.EastChannel, cfg.ADC.WestChannel)
	}
	if cfg.ADC.Backend != ADCMCP3008 {
		t.Errorf("adc backend = %q, want default kept", cfg.ADC.Backend)
	}
	if cfg.SensorConfig().FilterTau != 5*time.Second {
		t.Errorf("filter tau = %v", cfg.SensorConfig().FilterTau)
	}

	tc := cfg.TrackerConfig()
	if tc.TolerancePercent != 15 {
		t.Errorf("tolerance = %v, want 15", tc.TolerancePercent)
	}
	if tc.AdjustmentPeriod != 2*time.Minute {
		t.Errorf("adjustment period = %v, want 2m", tc.AdjustmentPeriod)
	}
	if !tc.DefaultWestEnabled {
		t.Error("default west should be enabled")
	}
	if tc.NightThreshold != tracker.DefaultConfig().NightThreshold {
		t.Errorf("night threshold = %v, want default", tc.NightThreshold)
	}

	opts := cfg.StoreOptions()
	if opts.Backend != store.BackendRedis || opts.RedisAddr != "localhost:6379" {
		t.Errorf("store options = %+v", opts)
	}
	if opts.RedisKey != store.DefaultRedisKey {
		t.Errorf("redis key = %q, want default", opts.RedisKey)
	}
}

func TestLoadEmptyFileGivesDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("empty file should yield defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "gpio: [unclosed"))
	if err == nil || !strings.Contains(err.Error(), "unmarshal yaml") {
		t.Fatalf("err = %v, want unmarshal error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"poll too short", func(c *Config) { c.Poll = 0 }, "poll"},
		{"unknown gpio backend", func(c *Config) { c.GPIO.Backend = "sysfs" }, "gpio backend"},
		{"same pins", func(c *Config) { c.GPIO.PinWest = c.GPIO.PinEast }, "must differ"},
		{"unknown adc backend", func(c *Config) { c.ADC.Backend = "ads1115" }, "adc backend"},
		{"channel out of range", func(c *Config) { c.ADC.WestChannel = 8 }, "adc channel"},
		{"negative channel", func(c *Config) { c.ADC.EastChannel = -1 }, "adc channel"},
		{"same channels", func(c *Config) { c.ADC.WestChannel = c.ADC.EastChannel }, "must differ"},
		{"negative tau", func(c *Config) { c.Sensor.FilterTau = -time.Second }, "sensor"},
		{"negative dead time", func(c *Config) { c.Motor.DeadTime = -time.Millisecond }, "motor"},
		{"night below brightness", func(c *Config) { c.Tracker.NightThreshold = c.Tracker.BrightnessThreshold }, "tracker"},
		{"tolerance out of range", func(c *Config) { c.Tracker.TolerancePercent = 101 }, "tracker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeFile(t, "tracker:\n  max_reversal_tries: 0\n"))
	if err == nil || !strings.Contains(err.Error(), "max_reversal_tries") {
		t.Fatalf("err = %v, want max_reversal_tries violation", err)
	}
}

func TestFromTrackerRoundTrip(t *testing.T) {
	tc := tracker.DefaultConfig()
	tc.MovementHistorySize = 7
	tc.UseAverageMovement = true

	cfg := Default()
	cfg.Tracker = FromTracker(tc)
	if cfg.TrackerConfig() != tc {
		t.Errorf("TrackerConfig() = %+v, want %+v", cfg.TrackerConfig(), tc)
	}
}
