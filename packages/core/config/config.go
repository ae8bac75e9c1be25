package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/smokecheck/packages/core/env"
	"gopkg.in/yaml.v3"
)

// Target is one remote service cases can address by name.
type Target struct {
	BaseURL string            `yaml:"baseURL"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Config represents the smokecheck configuration
type Config struct {
	Targets         map[string]Target `yaml:"targets,omitempty"`
	Timeout         int               `yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects *bool             `yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `yaml:"validateSSL,omitempty"`
	Proxy           string            `yaml:"proxy,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"` // Default headers for all requests
	Rate            float64           `yaml:"rate,omitempty"`    // requests per second, 0 = unlimited
	Cases           []string          `yaml:"cases,omitempty"`   // case files or directories
	Builtin         *bool             `yaml:"builtin,omitempty"`
	SchemaDir       string            `yaml:"schemaDir,omitempty"`
	Reporters       []string          `yaml:"reporters,omitempty"`
	AttachmentsDir  string            `yaml:"attachmentsDir,omitempty"`
	History         string            `yaml:"history,omitempty"` // SQLite file
	Bail            *bool             `yaml:"bail,omitempty"`
	Verbose         *bool             `yaml:"verbose,omitempty"`
	NoColor         *bool             `yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetBuiltin reports whether the built-in catalog runs, defaulting to true
func (c *Config) GetBuiltin() bool {
	return getBool(c.Builtin, true)
}

func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration converts Timeout to a duration, falling back to the default.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return time.Duration(DefaultTimeoutMs) * time.Millisecond
	}
	return time.Duration(c.Timeout) * time.Millisecond
}

// TargetURLs maps target names to base URLs.
func (c *Config) TargetURLs() map[string]string {
	urls := make(map[string]string, len(c.Targets))
	for name, t := range c.Targets {
		urls[name] = t.BaseURL
	}
	return urls
}

// TargetHeaders returns the headers configured for a target.
func (c *Config) TargetHeaders(name string) map[string]string {
	return c.Targets[name].Headers
}

// Validate reports settings that would make every run fail.
func (c *Config) Validate() error {
	for name, t := range c.Targets {
		if t.BaseURL == "" {
			return fmt.Errorf("target %q has no baseURL", name)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must not be negative")
	}
	for _, r := range c.Reporters {
		switch r {
		case "console", "json", "junit":
		default:
			return fmt.Errorf("unknown reporter %q", r)
		}
	}
	return nil
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	"smokecheck.yaml",
	"smokecheck.yml",
	".smokecheck.yaml",
	".smokecheck.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// Path returns the config file LoadConfig would read, or "" when none exists.
func Path(path string) string {
	if path != "" {
		return path
	}
	for _, filename := range ConfigFilenames {
		if _, err := os.Stat(filename); err == nil {
			return filename
		}
	}
	return ""
}

// loadConfigFromFile reads a YAML file, expands ${VAR} references and
// layers the result over the defaults.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal([]byte(env.Expand(string(data))), &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	merged := DefaultConfig().Merge(&fileConfig)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return merged, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Rate > 0 {
		result.Rate = other.Rate
	}
	if other.SchemaDir != "" {
		result.SchemaDir = other.SchemaDir
	}
	if other.AttachmentsDir != "" {
		result.AttachmentsDir = other.AttachmentsDir
	}
	if other.History != "" {
		result.History = other.History
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Builtin != nil {
		result.Builtin = other.Builtin
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	result.Headers = mergeHeaders(c.Headers, other.Headers)

	// Targets merge per name; headers merge per key
	if len(other.Targets) > 0 {
		targets := make(map[string]Target, len(c.Targets)+len(other.Targets))
		for name, t := range c.Targets {
			targets[name] = t
		}
		for name, t := range other.Targets {
			base := targets[name]
			if t.BaseURL != "" {
				base.BaseURL = t.BaseURL
			}
			base.Headers = mergeHeaders(base.Headers, t.Headers)
			targets[name] = base
		}
		result.Targets = targets
	}

	if len(other.Cases) > 0 {
		result.Cases = other.Cases
	}
	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

func mergeHeaders(base, over map[string]string) map[string]string {
	if len(over) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
