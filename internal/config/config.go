// Package config loads the daemon's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/solar-tracker/internal/adc"
	"github.com/sweeney/solar-tracker/internal/gpio"
	"github.com/sweeney/solar-tracker/internal/motor"
	"github.com/sweeney/solar-tracker/internal/sensor"
	"github.com/sweeney/solar-tracker/internal/store"
	"github.com/sweeney/solar-tracker/internal/terminal"
	"github.com/sweeney/solar-tracker/internal/tracker"
)

// ADC backend names.
const (
	ADCMCP3008 = "mcp3008"
	ADCFake    = "fake"
)

// GPIOConfig selects the motor output lines.
type GPIOConfig struct {
	Backend string `yaml:"backend"` // cdev, rpio or fake
	Chip    string `yaml:"chip"`
	PinEast int    `yaml:"pin_east"` // BCM
	PinWest int    `yaml:"pin_west"` // BCM
}

// ADCConfig describes the converter the photoresistors are wired to.
type ADCConfig struct {
	Backend     string `yaml:"backend"`
	SPIPort     string `yaml:"spi_port"` // empty picks the first registered port
	SPIHz       int    `yaml:"spi_hz"`
	EastChannel int    `yaml:"east_channel"`
	WestChannel int    `yaml:"west_channel"`
}

// SensorConfig is shared by both light sensors.
type SensorConfig struct {
	SeriesResistorOhms int32         `yaml:"series_resistor_ohms"`
	MaxResistanceOhms  int32         `yaml:"max_resistance_ohms"`
	SamplePeriod       time.Duration `yaml:"sample_period"`
	FilterTau          time.Duration `yaml:"filter_tau"`
}

// MotorConfig holds actuator timing.
type MotorConfig struct {
	DeadTime    time.Duration `yaml:"dead_time"`
	MaxMoveTime time.Duration `yaml:"max_move_time"`
}

// TrackerConfig holds the factory tracking parameters. Stored parameter
// values override these at startup.
type TrackerConfig struct {
	TolerancePercent       float64       `yaml:"tolerance_percent"`
	MaxMovementTime        time.Duration `yaml:"max_movement_time"`
	AdjustmentPeriod       time.Duration `yaml:"adjustment_period"`
	SamplingRate           time.Duration `yaml:"sampling_rate"`
	BrightnessThreshold    float64       `yaml:"brightness_threshold_ohms"`
	BrightnessFilterTau    time.Duration `yaml:"brightness_filter_tau"`
	NightThreshold         float64       `yaml:"night_threshold_ohms"`
	NightHysteresisPercent float64       `yaml:"night_hysteresis_percent"`
	NightDetectionTime     time.Duration `yaml:"night_detection_time"`
	ReversalDeadTime       time.Duration `yaml:"reversal_dead_time"`
	ReversalTimeLimit      time.Duration `yaml:"reversal_time_limit"`
	MaxReversalTries       int           `yaml:"max_reversal_tries"`
	DefaultWestEnabled     bool          `yaml:"default_west_enabled"`
	DefaultWestTime        time.Duration `yaml:"default_west_time"`
	UseAverageMovement     bool          `yaml:"use_average_movement"`
	MovementHistorySize    int           `yaml:"movement_history_size"`
}

// MQTTConfig configures the event publisher.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"` // empty disables publishing
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables heartbeats
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	Addr      string `yaml:"addr"` // empty disables the server
	Advertise bool   `yaml:"advertise"`
}

// StoreConfig selects where parameters are persisted.
type StoreConfig struct {
	Backend       string `yaml:"backend"` // none, file, redis or memory
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

// TerminalConfig selects the command terminal transport.
type TerminalConfig struct {
	Serial string `yaml:"serial"` // serial device; empty uses stdin when Stdin is set
	Baud   int    `yaml:"baud"`
	Stdin  bool   `yaml:"stdin"`
}

// Config aggregates all daemon configuration.
type Config struct {
	Poll     time.Duration  `yaml:"poll"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	ADC      ADCConfig      `yaml:"adc"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Motor    MotorConfig    `yaml:"motor"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
	Store    StoreConfig    `yaml:"store"`
	Terminal TerminalConfig `yaml:"terminal"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	t := tracker.DefaultConfig()
	return Config{
		Poll: 100 * time.Millisecond,
		GPIO: GPIOConfig{
			Backend: gpio.BackendCdev,
			Chip:    gpio.DefaultChip,
			PinEast: gpio.DefaultPinEast,
			PinWest: gpio.DefaultPinWest,
		},
		ADC: ADCConfig{
			Backend:     ADCMCP3008,
			SPIHz:       adc.DefaultSPIHz,
			EastChannel: 0,
			WestChannel: 1,
		},
		Sensor: SensorConfig{
			SeriesResistorOhms: sensor.DefaultSeriesResistor,
			MaxResistanceOhms:  sensor.DefaultMaxResistanceOhms,
			SamplePeriod:       sensor.DefaultSamplePeriod,
			FilterTau:          2 * time.Second,
		},
		Motor: MotorConfig{
			DeadTime:    motor.DefaultDeadTime,
			MaxMoveTime: motor.DefaultMaxMoveTime,
		},
		Tracker: FromTracker(t),
		MQTT: MQTTConfig{
			Broker:    "tcp://192.168.1.200:1883",
			ClientID:  "solar-tracker",
			Heartbeat: 15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Store: StoreConfig{
			Backend:  store.BackendNone,
			RedisKey: store.DefaultRedisKey,
		},
		Terminal: TerminalConfig{
			Baud:  terminal.DefaultBaud,
			Stdin: true,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks hardware settings and the tracker parameters.
func (c Config) Validate() error {
	if c.Poll < time.Millisecond {
		return fmt.Errorf("poll must be at least 1ms, got %v", c.Poll)
	}
	switch c.GPIO.Backend {
	case gpio.BackendCdev, gpio.BackendRPi, gpio.BackendFake:
	default:
		return fmt.Errorf("unknown gpio backend %q", c.GPIO.Backend)
	}
	if c.GPIO.PinEast == c.GPIO.PinWest {
		return fmt.Errorf("gpio.pin_east and gpio.pin_west must differ, both are %d", c.GPIO.PinEast)
	}
	switch c.ADC.Backend {
	case ADCMCP3008, ADCFake:
	default:
		return fmt.Errorf("unknown adc backend %q", c.ADC.Backend)
	}
	for _, ch := range []int{c.ADC.EastChannel, c.ADC.WestChannel} {
		if ch < 0 || ch >= adc.Channels {
			return fmt.Errorf("adc channel must be in [0, %d], got %d", adc.Channels-1, ch)
		}
	}
	if c.ADC.EastChannel == c.ADC.WestChannel {
		return errors.New("adc.east_channel and adc.west_channel must differ")
	}
	if err := c.SensorConfig().Validate(); err != nil {
		return fmt.Errorf("sensor: %w", err)
	}
	if c.Motor.DeadTime < 0 || c.Motor.MaxMoveTime < 0 {
		return errors.New("motor timings must not be negative")
	}
	if err := c.TrackerConfig().Validate(); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	return nil
}

// SensorConfig returns the light sensor configuration.
func (c Config) SensorConfig() sensor.Config {
	return sensor.Config{
		SeriesResistorOhms: c.Sensor.SeriesResistorOhms,
		MaxResistanceOhms:  c.Sensor.MaxResistanceOhms,
		SamplePeriod:       c.Sensor.SamplePeriod,
		FilterTau:          c.Sensor.FilterTau,
	}
}

// MotorConfig returns the actuator configuration.
func (c Config) MotorConfig() motor.Config {
	return motor.Config{DeadTime: c.Motor.DeadTime, MaxMoveTime: c.Motor.MaxMoveTime}
}

// TrackerConfig returns the tracker parameters.
func (c Config) TrackerConfig() tracker.Config {
	t := c.Tracker
	return tracker.Config{
		TolerancePercent:       t.TolerancePercent,
		MaxMovementTime:        t.MaxMovementTime,
		AdjustmentPeriod:       t.AdjustmentPeriod,
		SamplingRate:           t.SamplingRate,
		BrightnessThreshold:    t.BrightnessThreshold,
		BrightnessFilterTau:    t.BrightnessFilterTau,
		NightThreshold:         t.NightThreshold,
		NightHysteresisPercent: t.NightHysteresisPercent,
		NightDetectionTime:     t.NightDetectionTime,
		ReversalDeadTime:       t.ReversalDeadTime,
		ReversalTimeLimit:      t.ReversalTimeLimit,
		MaxReversalTries:       t.MaxReversalTries,
		DefaultWestEnabled:     t.DefaultWestEnabled,
		DefaultWestTime:        t.DefaultWestTime,
		UseAverageMovement:     t.UseAverageMovement,
		MovementHistorySize:    t.MovementHistorySize,
	}
}

// StoreOptions returns the parameter store options.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Backend:       c.Store.Backend,
		Path:          c.Store.Path,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		RedisKey:      c.Store.RedisKey,
	}
}

// FromTracker converts tracker parameters to their file form.
func FromTracker(t tracker.Config) TrackerConfig {
	return TrackerConfig{
		TolerancePercent:       t.TolerancePercent,
		MaxMovementTime:        t.MaxMovementTime,
		AdjustmentPeriod:       t.AdjustmentPeriod,
		SamplingRate:           t.SamplingRate,
		BrightnessThreshold:    t.BrightnessThreshold,
		BrightnessFilterTau:    t.BrightnessFilterTau,
		NightThreshold:         t.NightThreshold,
		NightHysteresisPercent: t.NightHysteresisPercent,
		NightDetectionTime:     t.NightDetectionTime,
		ReversalDeadTime:       t.ReversalDeadTime,
		ReversalTimeLimit:      t.ReversalTimeLimit,
		MaxReversalTries:       t.MaxReversalTries,
		DefaultWestEnabled:     t.DefaultWestEnabled,
		DefaultWestTime:        t.DefaultWestTime,
		UseAverageMovement:     t.UseAverageMovement,
		MovementHistorySize:    t.MovementHistorySize,
	}
}
