package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Bytes per MB
const MB = 1024 * 1024

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultRoot              = "data"
	DefaultAddr              = ":8080"
	DefaultPublicDir         = "public"
	DefaultViewMaxAge        = time.Hour
	DefaultUploadMaxMemory   = 32 * MB
	DefaultLogLevel          = "info"
	DefaultMetrics           = false
	DefaultConnectionTimeout = time.Minute
	DefaultShutdownTimeout   = 5 * time.Second
	DefaultReadTimeout       = 0
	DefaultWriteTimeout      = 0
	DefaultIdleTimeout       = 2 * time.Minute
)

var DefaultCORSOrigins = []string{"*"}

// Config contains the runtime configuration of the server.
type Config struct {
	Root              string        // Directory every client path is confined to; created at startup
	Addr              string        // Listen address (Default :8080)
	PublicDir         string        // Static UI files served for non-API routes; empty disables
	ViewMaxAge        time.Duration // Cache-Control max-age for inline views (Default 1h)
	UploadMaxMemory   int64         // Multipart bytes kept in memory before spilling to disk (Default 32MB)
	LogLevel          string        // trace, debug, info, warn or error
	Metrics           bool          // Expose prometheus metrics on /metrics
	CORSOrigins       []string      // Allowed origins; "*" allows all
	ConnectionTimeout time.Duration // Idle timeout of websocket sessions (Default 1m)
	ShutdownTimeout   time.Duration // Grace period for in-flight requests on shutdown (Default 5s)
	ReadTimeout       time.Duration // http.Server ReadTimeout; 0 means none so large uploads are not cut
	WriteTimeout      time.Duration // http.Server WriteTimeout; 0 means none so large downloads are not cut
	IdleTimeout       time.Duration // http.Server IdleTimeout (Default 2m)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	Root              *string   `yaml:"root,omitempty" json:"root,omitempty"`
	Addr              *string   `yaml:"addr,omitempty" json:"addr,omitempty"`
	PublicDir         *string   `yaml:"public_dir,omitempty" json:"public_dir,omitempty"`
	ViewMaxAge        *Duration `yaml:"view_max_age,omitempty" json:"view_max_age,omitempty"`
	UploadMaxMemory   *int64    `yaml:"upload_max_memory,omitempty" json:"upload_max_memory,omitempty"`
	LogLevel          *string   `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	Metrics           *bool     `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	CORSOrigins       []string  `yaml:"cors_origins,omitempty" json:"cors_origins,omitempty"`
	ConnectionTimeout *Duration `yaml:"connection_timeout,omitempty" json:"connection_timeout,omitempty"`
	ShutdownTimeout   *Duration `yaml:"shutdown_timeout,omitempty" json:"shutdown_timeout,omitempty"`
	ReadTimeout       *Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout      *Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
	IdleTimeout       *Duration `yaml:"idle_timeout,omitempty" json:"idle_timeout,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		Root:              DefaultRoot,
		Addr:              DefaultAddr,
		PublicDir:         DefaultPublicDir,
		ViewMaxAge:        DefaultViewMaxAge,
		UploadMaxMemory:   DefaultUploadMaxMemory,
		LogLevel:          DefaultLogLevel,
		Metrics:           DefaultMetrics,
		CORSOrigins:       append([]string(nil), DefaultCORSOrigins...),
		ConnectionTimeout: DefaultConnectionTimeout,
		ShutdownTimeout:   DefaultShutdownTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
}

// Merge applies non-nil values from override onto this Config.
func (c *Config) Merge(override *ConfigOverride) {
	if override.Root != nil {
		c.Root = *override.Root
	}
	if override.Addr != nil {
		c.Addr = *override.Addr
	}
	if override.PublicDir != nil {
		c.PublicDir = *override.PublicDir
	}
	if override.ViewMaxAge != nil {
		c.ViewMaxAge = override.ViewMaxAge.Duration
	}
	if override.UploadMaxMemory != nil {
		c.UploadMaxMemory = *override.UploadMaxMemory
	}
	if override.LogLevel != nil {
		c.LogLevel = *override.LogLevel
	}
	if override.Metrics != nil {
		c.Metrics = *override.Metrics
	}
	if override.CORSOrigins != nil {
		c.CORSOrigins = override.CORSOrigins
	}
	if override.ConnectionTimeout != nil {
		c.ConnectionTimeout = override.ConnectionTimeout.Duration
	}
	if override.ShutdownTimeout != nil {
		c.ShutdownTimeout = override.ShutdownTimeout.Duration
	}
	if override.ReadTimeout != nil {
		c.ReadTimeout = override.ReadTimeout.Duration
	}
	if override.WriteTimeout != nil {
		c.WriteTimeout = override.WriteTimeout.Duration
	}
	if override.IdleTimeout != nil {
		c.IdleTimeout = override.IdleTimeout.Duration
	}
}

// Validate checks the values that cannot be defaulted away.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return fmt.Errorf("root must not be empty")
	}
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.UploadMaxMemory <= 0 {
		return fmt.Errorf("upload_max_memory must be positive, got %d", c.UploadMaxMemory)
	}
	if c.ViewMaxAge < 0 {
		return fmt.Errorf("view_max_age must not be negative")
	}
	return nil
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
