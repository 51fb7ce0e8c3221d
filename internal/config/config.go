// Package config provides the configuration structure for the speech-service.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/audio"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override file configuration.
const (
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvGeminiBaseURL = "GEMINI_BASE_URL"
	EnvNATSURL       = "NATS_URL"
	EnvConfigFile    = "SPEECH_SERVICE_CONFIG"
)

// Defaults.
const (
	defaultHost           = "0.0.0.0"
	defaultPort           = 5000
	defaultReadTimeout    = 15
	defaultWriteTimeout   = 300
	defaultIdleTimeout    = 120
	defaultMaxBodyBytes   = 1 << 20
	defaultSpeechSubject  = "speech.generate"
	defaultNATSQueueGroup = "speech-workers"
	maxPort               = 65535
)

// Static errors.
var (
	ErrPortRange       = errors.New("server port must be between 1 and 65535")
	ErrTimeoutNegative = errors.New("server timeouts must be non-negative")
	ErrMaxBodyBytes    = errors.New("server max_body_bytes must be positive")
	ErrSubjectEmpty    = errors.New("nats speech_subject cannot be empty when nats is enabled")
	ErrNATSURLEmpty    = errors.New("nats url cannot be empty when nats is enabled")
)

// ServerConfig holds the HTTP listener settings. Timeouts are in seconds.
type ServerConfig struct {
	Host                string `toml:"host"`
	Port                int    `toml:"port"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `toml:"idle_timeout_seconds"`
	MaxBodyBytes        int64  `toml:"max_body_bytes"`
}

// GeminiConfig holds the upstream credential and endpoint.
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// NATSConfig holds the configuration for the optional NATS transport.
type NATSConfig struct {
	Enabled       bool   `toml:"enabled"`
	URL           string `toml:"url"`
	SpeechSubject string `toml:"speech_subject"`
	QueueGroup    string `toml:"queue_group"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Server ServerConfig `toml:"server"`
	Gemini GeminiConfig `toml:"gemini"`
	Audio  audio.Format `toml:"audio"`
	NATS   NATSConfig   `toml:"nats"`
	Paths  PathsConfig  `toml:"paths"`
}

// Default returns a configuration that serves HTTP on port 5000 with NATS disabled.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:                defaultHost,
			Port:                defaultPort,
			ReadTimeoutSeconds:  defaultReadTimeout,
			WriteTimeoutSeconds: defaultWriteTimeout,
			IdleTimeoutSeconds:  defaultIdleTimeout,
			MaxBodyBytes:        defaultMaxBodyBytes,
		},
		Gemini: GeminiConfig{
			APIKey:  "",
			BaseURL: "",
		},
		Audio: audio.DefaultFormat(),
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			SpeechSubject: defaultSpeechSubject,
			QueueGroup:    defaultNATSQueueGroup,
		},
		Paths: PathsConfig{
			BaseLogsDir: os.TempDir(),
		},
	}
}

// Load loads the configuration through the central configurator on top of the
// defaults. Environment overrides are applied last. Use LoadFile to run from a
// local TOML file instead.
func Load(log *logger.Logger) (*Config, error) {
	return load(func(cfg *Config) error { return configurator.Load(cfg, log) })
}

func load(source func(*Config) error) (*Config, error) {
	cfg := Default()

	err := source(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finish(&cfg)
}

// LoadFile loads the configuration from a local TOML file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	return finish(cfg)
}

// Parse decodes TOML data on top of the defaults without applying the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal toml: %w", err)
	}

	return &cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvironment(os.LookupEnv)

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvironment overrides file values with any set environment variables.
func (c *Config) ApplyEnvironment(lookup func(string) (string, bool)) {
	if value, ok := lookup(EnvGeminiAPIKey); ok && value != "" {
		c.Gemini.APIKey = value
	}

	if value, ok := lookup(EnvGeminiBaseURL); ok && value != "" {
		c.Gemini.BaseURL = value
	}

	if value, ok := lookup(EnvNATSURL); ok && value != "" {
		c.NATS.URL = value
	}
}

// Validate checks the configuration for values the service cannot run with.
// An empty API key is allowed: generation requests then fail upstream.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: got %d", ErrPortRange, c.Server.Port)
	}

	if c.Server.ReadTimeoutSeconds < 0 || c.Server.WriteTimeoutSeconds < 0 || c.Server.IdleTimeoutSeconds < 0 {
		return ErrTimeoutNegative
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: got %d", ErrMaxBodyBytes, c.Server.MaxBodyBytes)
	}

	err := c.Audio.Validate()
	if err != nil {
		return fmt.Errorf("invalid [audio] section: %w", err)
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return ErrNATSURLEmpty
		}

		if c.NATS.SpeechSubject == "" {
			return ErrSubjectEmpty
		}
	}

	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ReadTimeout returns the server read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the server write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout returns the server idle timeout.
func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}
