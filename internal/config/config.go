package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. UEKB_DB_PATH
const EnvPrefix = "UEKB"

// Config is the full server configuration
type Config struct {
	// DBPath is the SQLite file; ":memory:" keeps everything in memory
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Hierarchy HierarchyConfig `yaml:"hierarchy" mapstructure:"hierarchy"`
}

// LogConfig configures the stderr logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SearchConfig configures result limits and the search cache
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int `yaml:"max_limit" mapstructure:"max_limit"`
	// 0 disables the cache
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
}

// HierarchyConfig bounds hierarchy walks when a request leaves them unset
type HierarchyConfig struct {
	DepthLimit          int `yaml:"depth_limit" mapstructure:"depth_limit"`
	MaxChildrenPerLevel int `yaml:"max_children_per_level" mapstructure:"max_children_per_level"`
	MaxTotal            int `yaml:"max_total" mapstructure:"max_total"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DBPath: filepath.Join("~", ".ue-knowledge", "knowledge.db"),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
			CacheSize:    256,
		},
		Hierarchy: HierarchyConfig{
			DepthLimit:          10,
			MaxChildrenPerLevel: 50,
			MaxTotal:            200,
		},
	}
}

// New returns a viper instance carrying the defaults and environment
// bindings. Callers may bind command-line flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("search.default_limit", d.Search.DefaultLimit)
	v.SetDefault("search.max_limit", d.Search.MaxLimit)
	v.SetDefault("search.cache_size", d.Search.CacheSize)
	v.SetDefault("hierarchy.depth_limit", d.Hierarchy.DepthLimit)
	v.SetDefault("hierarchy.max_children_per_level", d.Hierarchy.MaxChildrenPerLevel)
	v.SetDefault("hierarchy.max_total", d.Hierarchy.MaxTotal)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration into a Config. Precedence, lowest first:
// defaults, the config file, UEKB_* environment variables, bound flags.
// An explicit configPath must exist; otherwise DefaultConfigPath is read
// when present.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if v == nil {
		v = New()
	}

	path := configPath
	if path == "" {
		path = DefaultConfigPath()
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(ExpandHome(path))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.DBPath = ExpandHome(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unusable limits and unknown log settings
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path must not be empty"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	positive := map[string]int{
		"search.default_limit":             c.Search.DefaultLimit,
		"search.max_limit":                 c.Search.MaxLimit,
		"hierarchy.depth_limit":            c.Hierarchy.DepthLimit,
		"hierarchy.max_children_per_level": c.Hierarchy.MaxChildrenPerLevel,
		"hierarchy.max_total":              c.Hierarchy.MaxTotal,
	}
	for _, key := range []string{
		"search.default_limit", "search.max_limit",
		"hierarchy.depth_limit", "hierarchy.max_children_per_level", "hierarchy.max_total",
	} {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, positive[key]))
		}
	}
	if c.Search.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("search.cache_size must not be negative, got %d", c.Search.CacheSize))
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit && c.Search.MaxLimit > 0 {
		errs = append(errs, fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// DefaultConfigPath returns ~/.ue-knowledge/config.yaml
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ue-knowledge", "config.yaml")
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Marshal renders the config as YAML in the same layout Load reads
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteFile writes cfg to path, creating parent directories. An existing
// file is only replaced when overwrite is set.
func WriteFile(path string, cfg *Config, overwrite bool) error {
	path = ExpandHome(path)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
