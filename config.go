package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// SimPort is the serial port name that selects the built-in instrument
// emulator.
const SimPort = "sim"

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the CTD's serial port (e.g. "/dev/ttyUSB0"),
	// or "sim" for the emulator
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate of the CTD console (e.g. 9600)
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`

	// CommandTimeout bounds each prompt exchange
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// ModeDeadline bounds entering and leaving command mode
	ModeDeadline time.Duration `yaml:"mode_deadline"`
	// WakePulse is the width of the command mode wake pulse
	WakePulse time.Duration `yaml:"wake_pulse"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures record publishing. Publishing is off while Addr
// is empty.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
	Keep     int64  `yaml:"keep"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 9600
		c.LogLevel = "info"
		c.CommandTimeout = 2 * time.Second
		c.ModeDeadline = 30 * time.Second
		c.WakePulse = time.Second
		c.Redis.Channel = "ctd"
		c.Redis.Keep = 1000
		return nil
	}
}

// WithFile overlays the YAML file at path. Keys missing from the file keep
// their current values. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if timeout := os.Getenv("COMMAND_TIMEOUT"); timeout != "" {
			if d, err := time.ParseDuration(timeout); err == nil {
				c.CommandTimeout = d
			}
		}

		if deadline := os.Getenv("MODE_DEADLINE"); deadline != "" {
			if d, err := time.ParseDuration(deadline); err == nil {
				c.ModeDeadline = d
			}
		}

		if addr := os.Getenv("REDIS_ADDR"); addr != "" {
			c.Redis.Addr = addr
		}

		if password := os.Getenv("REDIS_PASSWORD"); password != "" {
			c.Redis.Password = password
		}

		if db := os.Getenv("REDIS_DB"); db != "" {
			if n, err := strconv.Atoi(db); err == nil {
				c.Redis.DB = n
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "command-timeout":
				if d, err := time.ParseDuration(f.Value.String()); err == nil {
					c.CommandTimeout = d
				}
			case "mode-deadline":
				if d, err := time.ParseDuration(f.Value.String()); err == nil {
					c.ModeDeadline = d
				}
			case "redis-addr":
				c.Redis.Addr = f.Value.String()
			}
		})
		return nil
	}
}
