package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"tinycore/core"
	"tinycore/host/serial"
)

// Config is the monitor configuration, loaded from JSON and overridden by
// command line flags.
type Config struct {
	Device           string    `json:"device"`
	Baud             int       `json:"baud"`
	ReadTimeoutMs    int       `json:"read_timeout_ms"`
	DriftToleranceMs int64     `json:"drift_tolerance_ms"`
	Verbose          bool      `json:"verbose"`
	Sim              SimConfig `json:"sim"`
}

// SimConfig describes the simulated board used in loopback mode.
type SimConfig struct {
	TimerClass       string `json:"timer_class"` // "A", "B" or "D"
	CPUFrequency     uint32 `json:"cpu_hz"`
	ReportIntervalMs uint32 `json:"report_interval_ms"`
	ToggleIntervalMs uint32 `json:"toggle_interval_ms"`
	Pin              uint8  `json:"pin"`
}

// LoadConfig parses a JSON configuration and fills in defaults
func LoadConfig(jsonData []byte) (*Config, error) {
	var config Config

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&config)

	if _, err := ParseTimerClass(config.Sim.TimerClass); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfigFile reads and parses a JSON configuration file
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return LoadConfig(data)
}

// DefaultConfig returns the configuration used without a config file
func DefaultConfig() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *Config) {
	serialDefaults := serial.DefaultConfig("")

	if config.Device == "" {
		config.Device = "/dev/ttyUSB0"
	}
	if config.Baud == 0 {
		config.Baud = serialDefaults.Baud
	}
	if config.ReadTimeoutMs == 0 {
		config.ReadTimeoutMs = int(serialDefaults.ReadTimeout.Milliseconds())
	}
	if config.DriftToleranceMs == 0 {
		config.DriftToleranceMs = 50
	}

	// Simulated board: an ATmega328P at 16 MHz on Timer2
	if config.Sim.TimerClass == "" {
		config.Sim.TimerClass = "B"
	}
	if config.Sim.CPUFrequency == 0 {
		config.Sim.CPUFrequency = 16000000
	}
	if config.Sim.ReportIntervalMs == 0 {
		config.Sim.ReportIntervalMs = 250
	}
	if config.Sim.ToggleIntervalMs == 0 {
		config.Sim.ToggleIntervalMs = 100
	}
}

// ParseTimerClass maps a class name to a core.TimerClass
func ParseTimerClass(name string) (core.TimerClass, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "A":
		return core.TimerClassA, nil
	case "B":
		return core.TimerClassB, nil
	case "D":
		return core.TimerClassD, nil
	case "16":
		return core.TimerClass16, nil
	}
	return 0, fmt.Errorf("unknown timer class %q", name)
}

// SerialConfig returns the serial port settings
func (c *Config) SerialConfig() serial.Config {
	cfg := serial.DefaultConfig(c.Device)
	cfg.Baud = c.Baud
	cfg.ReadTimeout = time.Duration(c.ReadTimeoutMs) * time.Millisecond
	return cfg
}
