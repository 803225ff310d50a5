// Package config loads knitctl configuration from YAML or TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-kh930/knitdata"
	"github.com/moffa90/go-kh930/protocol"
	"github.com/moffa90/go-kh930/serialport"
)

// Config is the complete knitctl configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial" toml:"serial"`
	Protocol ProtocolConfig `yaml:"protocol" toml:"protocol"`
	Data     DataConfig     `yaml:"data" toml:"data"`
	Archive  ArchiveConfig  `yaml:"archive" toml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// SerialConfig selects the serial device.
type SerialConfig struct {
	Port     string `yaml:"port" toml:"port"`
	BaudRate int    `yaml:"baud_rate" toml:"baud_rate"`

	ReadTimeout    time.Duration `yaml:"-" toml:"-"`
	ReadTimeoutRaw string        `yaml:"read_timeout" toml:"read_timeout"`
}

// ProtocolConfig holds the row streaming limits.
type ProtocolConfig struct {
	MaxRetries int `yaml:"max_retries" toml:"max_retries"`

	AckTimeout   time.Duration `yaml:"-" toml:"-"`
	TickInterval time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	AckTimeoutRaw   string `yaml:"ack_timeout" toml:"ack_timeout"`
	TickIntervalRaw string `yaml:"tick_interval" toml:"tick_interval"`
}

// DataConfig locates track files.
type DataConfig struct {
	Dir   string `yaml:"dir" toml:"dir"`
	Track int    `yaml:"track" toml:"track"`
}

// ArchiveConfig locates the pattern archive database.
type ArchiveConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// MetricsConfig controls run metrics.
type MetricsConfig struct {
	// Textfile, when set, receives Prometheus metrics after every send
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`

	// File, when set, receives logs through a rotating writer
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        serialport.DefaultPort,
			BaudRate:    serialport.DefaultBaudRate,
			ReadTimeout: serialport.DefaultReadTimeout,
		},
		Protocol: ProtocolConfig{
			MaxRetries:   protocol.DefaultMaxRetries,
			AckTimeout:   protocol.DefaultAckTimeout,
			TickInterval: protocol.DefaultTickInterval,
		},
		Data: DataConfig{
			Dir:   ".",
			Track: 1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "color",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads a configuration file from path, decoding TOML for .toml files and
// YAML otherwise. Unset fields keep their Default values.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial.port is required")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.Protocol.MaxRetries < 0 {
		return fmt.Errorf("protocol.max_retries must not be negative, got %d", c.Protocol.MaxRetries)
	}
	if c.Protocol.AckTimeout <= 0 {
		return fmt.Errorf("protocol.ack_timeout must be positive")
	}
	if c.Protocol.TickInterval <= 0 {
		return fmt.Errorf("protocol.tick_interval must be positive")
	}
	if c.Data.Track < 1 || c.Data.Track > knitdata.MaxTrack {
		return fmt.Errorf("data.track must be between 1 and %d, got %d", knitdata.MaxTrack, c.Data.Track)
	}

	switch c.Logging.Format {
	case "color", "text", "json":
	default:
		return fmt.Errorf("logging.format must be color, text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"serial.read_timeout", cfg.Serial.ReadTimeoutRaw, &cfg.Serial.ReadTimeout},
		{"protocol.ack_timeout", cfg.Protocol.AckTimeoutRaw, &cfg.Protocol.AckTimeout},
		{"protocol.tick_interval", cfg.Protocol.TickIntervalRaw, &cfg.Protocol.TickInterval},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}

// Path returns the config file location.
// Priority: KH930_CONFIG env var > XDG_CONFIG_HOME/knitctl/config.yaml > ~/.config/knitctl/config.yaml
func Path() string {
	if envPath := os.Getenv("KH930_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "knitctl", "config.yaml")
}

// SerialPort converts the serial section for serialport.Open.
func (c *Config) SerialPort() serialport.Config {
	return serialport.Config{
		Port:        c.Serial.Port,
		BaudRate:    c.Serial.BaudRate,
		ReadTimeout: c.Serial.ReadTimeout,
	}
}
