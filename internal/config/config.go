package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Canvas Tunables     `yaml:"canvas"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Tunables holds the economic parameters of the canvas. Every value the
// pricing, eligibility and rate-limit rules depend on lives here so tests
// can substitute small numbers.
type Tunables struct {
	BoardSize              int      `yaml:"board_size"`
	BaseCost               int64    `yaml:"base_cost"`
	CostIncrement          int64    `yaml:"cost_increment"`
	InitialCap             int64    `yaml:"initial_cap"`
	LoweredCap             int64    `yaml:"lowered_cap"`
	CapTriggerCount        int64    `yaml:"cap_trigger_count"`
	InactivityThreshold    Duration `yaml:"inactivity_threshold"`
	FreeEligibilityMaxPaid int64    `yaml:"free_eligibility_max_paid"`
	RateLimitInterval      Duration `yaml:"rate_limit_interval"`
	EpochLength            Duration `yaml:"epoch_length"`
	EndOfEpochFreeWindow   Duration `yaml:"end_of_epoch_free_window"`
}

// Duration wraps time.Duration so YAML values like "30m" parse naturally.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// DefaultTunables returns the production economic parameters.
// Credits are thousandths of a cent: 1000 credits = $0.01 base cost,
// 200000 = $2.00 initial cap.
func DefaultTunables() Tunables {
	return Tunables{
		BoardSize:              1024,
		BaseCost:               1000,
		CostIncrement:          1000,
		InitialCap:             200000,
		LoweredCap:             150000,
		CapTriggerCount:        100,
		InactivityThreshold:    Duration(30 * time.Minute),
		FreeEligibilityMaxPaid: 500,
		RateLimitInterval:      Duration(1 * time.Second),
		EpochLength:            Duration(7 * 24 * time.Hour),
		EndOfEpochFreeWindow:   Duration(6 * time.Hour),
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "pixelcanvas.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Canvas: DefaultTunables(),
	}

	if path := os.Getenv("CANVAS_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("CANVAS_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("CANVAS_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CANVAS_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("CANVAS_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("CANVAS_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if size := os.Getenv("CANVAS_BOARD_SIZE"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CANVAS_BOARD_SIZE: %w", err)
		}
		cfg.Canvas.BoardSize = n
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
