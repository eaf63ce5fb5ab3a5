package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yiblet/halen/internal/cachefs"
)

// Popup positioning modes.
const (
	PositionMouse    = "mouse"
	PositionScreen   = "screen"
	PositionAbsolute = "absolute"
)

// Config represents the halen configuration
type Config struct {
	MaxLines      int    `yaml:"max_lines"`
	MaxLineLength int    `yaml:"max_line_length"`
	HistoryLimit  int    `yaml:"history_limit"`
	HistoryFile   string `yaml:"history_file,omitempty"`
	OverflowDir   string `yaml:"overflow_dir,omitempty"`
	TrackPrimary  bool   `yaml:"track_primary"`

	// Timeout is how many seconds a popup may stay up without an active
	// chord before it is hidden.
	Timeout int `yaml:"timeout"`

	Font             string `yaml:"font"`
	FontSize         int    `yaml:"font_size"`
	Background       string `yaml:"background"`
	Foreground       string `yaml:"foreground"`
	CountColor       string `yaml:"count_color"`
	Position         string `yaml:"position"`
	PositionX        int    `yaml:"position_x"`
	PositionY        int    `yaml:"position_y"`
	Anchor           int    `yaml:"anchor"`
	MarginVertical   int    `yaml:"margin_vertical"`
	MarginHorizontal int    `yaml:"margin_horizontal"`

	Verbose bool   `yaml:"verbose"`
	LogFile string `yaml:"log_file,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxLines:         10,
		MaxLineLength:    80,
		HistoryLimit:     50,
		Timeout:          2,
		Font:             "fixed",
		FontSize:         12,
		Background:       "#FFFFFF",
		Foreground:       "#000000",
		CountColor:       "#FF0000",
		Position:         PositionMouse,
		Anchor:           5,
		MarginVertical:   10,
		MarginHorizontal: 10,
	}
}

// HistoryPath returns the configured history log, or the default location.
func (c *Config) HistoryPath() (string, error) {
	if c.HistoryFile != "" {
		return expandHome(c.HistoryFile)
	}
	return cachefs.DefaultHistoryFile()
}

// OverflowPath returns the configured overflow directory, or the default
// location.
func (c *Config) OverflowPath() (string, error) {
	if c.OverflowDir != "" {
		return expandHome(c.OverflowDir)
	}
	return cachefs.DefaultOverflowDir()
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ParseColor parses a #RRGGBB colour into 0xRRGGBB.
func ParseColor(value string) (uint32, error) {
	hex, ok := strings.CutPrefix(value, "#")
	if !ok || len(hex) != 6 {
		return 0, fmt.Errorf("invalid colour %q (must be #RRGGBB)", value)
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid colour %q (must be #RRGGBB)", value)
	}
	return uint32(rgb), nil
}

// ConfigManager manages configuration persistence
type ConfigManager struct {
	configPath string
}

// NewConfigManager creates a configuration manager for the resolved config
// file. When no user config exists, a system-wide one is copied into place.
func NewConfigManager() (*ConfigManager, error) {
	configPath, err := cachefs.ResolveConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config file: %w", err)
	}

	return &ConfigManager{
		configPath: configPath,
	}, nil
}

// NewConfigManagerWithPath creates a config manager with custom config path
func NewConfigManagerWithPath(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// Load reads the configuration from file, or returns default if file doesn't exist.
// Keys missing from the file keep their default values.
func (cm *ConfigManager) Load() (*Config, error) {
	if _, err := os.Stat(cm.configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cm.validateAndSetDefaults(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save writes the configuration to file
func (cm *ConfigManager) Save(config *Config) error {
	if err := cm.validateAndSetDefaults(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configDir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func checkRange(name string, value, lo, hi int) error {
	if value < lo || value > hi {
		return fmt.Errorf("%s must be between %d and %d", name, lo, hi)
	}
	return nil
}

// validateAndSetDefaults validates configuration and sets defaults for empty
// string fields
func (cm *ConfigManager) validateAndSetDefaults(config *Config) error {
	defaults := DefaultConfig()

	ranges := []struct {
		name   string
		value  int
		lo, hi int
	}{
		{"max_lines", config.MaxLines, 1, 100},
		{"max_line_length", config.MaxLineLength, 1, 500},
		{"history_limit", config.HistoryLimit, 1, 1000},
		{"timeout", config.Timeout, 1, 60},
		{"font_size", config.FontSize, 1, 72},
		{"anchor", config.Anchor, 1, 9},
	}
	for _, r := range ranges {
		if err := checkRange(r.name, r.value, r.lo, r.hi); err != nil {
			return err
		}
	}

	if config.MarginVertical < 0 || config.MarginHorizontal < 0 {
		return fmt.Errorf("margins cannot be negative")
	}

	if config.Font == "" {
		config.Font = defaults.Font
	}
	if config.Position == "" {
		config.Position = defaults.Position
	}
	switch config.Position {
	case PositionMouse, PositionScreen, PositionAbsolute:
	default:
		return fmt.Errorf("position must be one of %s, %s or %s", PositionMouse, PositionScreen, PositionAbsolute)
	}

	colors := []struct {
		name  string
		value *string
		def   string
	}{
		{"background", &config.Background, defaults.Background},
		{"foreground", &config.Foreground, defaults.Foreground},
		{"count_color", &config.CountColor, defaults.CountColor},
	}
	for _, c := range colors {
		if *c.value == "" {
			*c.value = c.def
		}
		if _, err := ParseColor(*c.value); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}

	return nil
}

// GetConfigPath returns the path to the config file
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

type field struct {
	get func(c *Config) string
	set func(c *Config, value string) error
}

func intField(name string, ptr func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, value string) error {
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer value for %s: %s", name, value)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func boolField(name string, ptr func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, value string) error {
			switch value {
			case "true":
				*ptr(c) = true
			case "false":
				*ptr(c) = false
			default:
				return fmt.Errorf("invalid boolean value for %s: %s (must be 'true' or 'false')", name, value)
			}
			return nil
		},
	}
}

// stringField reports "[default]" for an empty value when defaultable.
func stringField(ptr func(c *Config) *string, defaultable bool) field {
	return field{
		get: func(c *Config) string {
			if defaultable && *ptr(c) == "" {
				return "[default]"
			}
			return *ptr(c)
		},
		set: func(c *Config, value string) error {
			*ptr(c) = value
			return nil
		},
	}
}

var fields = map[string]field{
	"max-lines":         intField("max-lines", func(c *Config) *int { return &c.MaxLines }),
	"max-line-length":   intField("max-line-length", func(c *Config) *int { return &c.MaxLineLength }),
	"history-limit":     intField("history-limit", func(c *Config) *int { return &c.HistoryLimit }),
	"history-file":      stringField(func(c *Config) *string { return &c.HistoryFile }, true),
	"overflow-dir":      stringField(func(c *Config) *string { return &c.OverflowDir }, true),
	"track-primary":     boolField("track-primary", func(c *Config) *bool { return &c.TrackPrimary }),
	"timeout":           intField("timeout", func(c *Config) *int { return &c.Timeout }),
	"font":              stringField(func(c *Config) *string { return &c.Font }, false),
	"font-size":         intField("font-size", func(c *Config) *int { return &c.FontSize }),
	"background":        stringField(func(c *Config) *string { return &c.Background }, false),
	"foreground":        stringField(func(c *Config) *string { return &c.Foreground }, false),
	"count-color":       stringField(func(c *Config) *string { return &c.CountColor }, false),
	"position":          stringField(func(c *Config) *string { return &c.Position }, false),
	"position-x":        intField("position-x", func(c *Config) *int { return &c.PositionX }),
	"position-y":        intField("position-y", func(c *Config) *int { return &c.PositionY }),
	"anchor":            intField("anchor", func(c *Config) *int { return &c.Anchor }),
	"margin-vertical":   intField("margin-vertical", func(c *Config) *int { return &c.MarginVertical }),
	"margin-horizontal": intField("margin-horizontal", func(c *Config) *int { return &c.MarginHorizontal }),
	"verbose":           boolField("verbose", func(c *Config) *bool { return &c.Verbose }),
	"log-file":          stringField(func(c *Config) *string { return &c.LogFile }, true),
}

// Keys returns every configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Update modifies a specific configuration value
func (cm *ConfigManager) Update(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	config, err := cm.Load()
	if err != nil {
		return err
	}

	if err := f.set(config, value); err != nil {
		return err
	}

	return cm.Save(config)
}

// Get returns the value for a specific configuration key
func (cm *ConfigManager) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}

	config, err := cm.Load()
	if err != nil {
		return "", err
	}

	return f.get(config), nil
}

// List returns all configuration keys and values
func (cm *ConfigManager) List() (map[string]string, error) {
	config, err := cm.Load()
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(fields))
	for key, f := range fields {
		result[key] = f.get(config)
	}

	return result, nil
}
