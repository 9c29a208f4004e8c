// Package config provides YAML and TOML configuration parsing for the
// procedurelab binary.
//
// Example configuration (YAML):
//
//	title: ${LAB_TITLE:-Procedure Lab}
//	port: 8080
//	max_fib_n: 10000
//	shutdown_timeout: 10s
//
//	log:
//	  level: info
//	  format: json
//
//	items:
//	  greeting:
//	    text: hello
//	  counters: [1, 2, 3]
//
// The same fields are accepted in a file ending in .toml:
//
//	title = "Procedure Lab"
//	port = 8080
//
//	[log]
//	level = "debug"
//
//	[items.greeting]
//	text = "hello"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/procedurelab/internal/store"
)

const (
	defaultPort            = 8080
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
)

// Config is the root configuration structure for procedurelab.
//
// Use [Load], [Parse] or [ParseTOML] to create a Config.
type Config struct {
	// Title is the form page title. Defaults to "Procedure Lab" if not set.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Title string `yaml:"title" toml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port" toml:"port"`

	// ContentSecurityPolicy overrides the header added to HTML responses.
	// Supports environment variable substitution.
	ContentSecurityPolicy string `yaml:"content_security_policy" toml:"content_security_policy"`

	// MaxFibN caps the n accepted by /fib. Zero means unlimited.
	MaxFibN int `yaml:"max_fib_n" toml:"max_fib_n"`

	// ShutdownTimeout bounds graceful shutdown after SIGINT/SIGTERM.
	// Accepts duration strings like "10s", "1m". Defaults to 10s.
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`

	// Log configures the CLI logger.
	Log LogConfig `yaml:"log" toml:"log"`

	// Items are stored before the server starts accepting requests.
	// Values may be any scalar, list or table.
	Items map[string]any `yaml:"items" toml:"items"`
}

// LogConfig selects the level and output format of the CLI logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level" toml:"level"`

	// Format is json or text. Defaults to json.
	Format string `yaml:"format" toml:"format"`
}

// Duration wraps time.Duration for YAML and TOML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler, which the TOML decoder
// uses for string values.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a configuration file. Files ending in .toml are
// parsed as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(data)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in Title and ContentSecurityPolicy.
// Defaults are applied for Port (8080), ShutdownTimeout (10s) and Log.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return finish(&cfg)
}

// ParseTOML parses TOML configuration data. It applies the same defaults,
// expansion and validation as [Parse].
func ParseTOML(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return finish(&cfg)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg, _ := finish(&Config{})
	return cfg
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = Duration(defaultShutdownTimeout)
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	expanded, err := expandEnvVars(c.Title)
	if err != nil {
		return fmt.Errorf("title: %w", err)
	}
	c.Title = expanded

	if c.ContentSecurityPolicy != "" {
		expanded, err := expandEnvVars(c.ContentSecurityPolicy)
		if err != nil {
			return fmt.Errorf("content_security_policy: %w", err)
		}
		if strings.TrimSpace(expanded) == "" {
			return errors.New("content_security_policy: cannot be empty once expanded")
		}
		c.ContentSecurityPolicy = expanded
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.MaxFibN < 0 {
		return fmt.Errorf("max_fib_n cannot be negative, got %d", c.MaxFibN)
	}

	if c.ShutdownTimeout.Duration() < 0 {
		return fmt.Errorf("shutdown_timeout cannot be negative, got %s", c.ShutdownTimeout.Duration())
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	for key, value := range c.Items {
		if key == "" {
			return errors.New("items: key cannot be empty")
		}
		if _, err := store.NewValue(value); err != nil {
			return fmt.Errorf("items[%s]: %w", key, err)
		}
	}

	return nil
}
