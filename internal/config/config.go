// Package config loads lexsearch configuration from defaults, the user
// config file, the project config file and LEXSEARCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
)

// Config represents the complete lexsearch configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Lexicon LexiconConfig `yaml:"lexicon" json:"lexicon"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// LexiconConfig locates the lexicon database and its source file.
type LexiconConfig struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path" json:"db_path"`

	// Source is the YAML/JSON lexicon file imported by 'lexsearch import'
	// when no file argument is given, and watched by 'serve --watch'.
	Source string `yaml:"source" json:"source"`

	// IndexBackend selects the fallback index: "sqlite" (FTS5) or "bleve".
	IndexBackend string `yaml:"index_backend" json:"index_backend"`

	// BlevePath overrides the bleve index directory (default: <db_path>.bleve).
	BlevePath string `yaml:"bleve_path" json:"bleve_path"`

	// CacheSize is the number of per-entry value lists cached. Negative disables the cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig configures lookups.
type SearchConfig struct {
	// MaxResults is the default result cap (1-50).
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport     string `yaml:"transport" json:"transport"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
	Watch         bool   `yaml:"watch" json:"watch"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

const (
	projectConfigYAML = ".lexsearch.yaml"
	projectConfigYML  = ".lexsearch.yml"
	maxResultsCeiling = 50
)

// NewConfig returns a configuration with defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Lexicon: LexiconConfig{
			DBPath:       DefaultDBPath(),
			IndexBackend: "sqlite",
			CacheSize:    4096,
		},
		Search: SearchConfig{
			MaxResults: maxResultsCeiling,
		},
		Server: ServerConfig{
			Transport:     "stdio",
			LogLevel:      "info",
			WatchDebounce: "300ms",
		},
	}
}

// DefaultDataDir returns ~/.lexsearch, or LEXSEARCH_HOME when set.
func DefaultDataDir() string {
	if dir := os.Getenv("LEXSEARCH_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".lexsearch")
	}
	return filepath.Join(home, ".lexsearch")
}

// DefaultDBPath returns the default lexicon database path.
func DefaultDBPath() string {
	return filepath.Join(DefaultDataDir(), "lexicon.db")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory layout:
//   - $XDG_CONFIG_HOME/lexsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/lexsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lexsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "lexsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "lexsearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user config.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether a user config file is present.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := &Config{}
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/lexsearch/config.yaml)
//  3. Project config (.lexsearch.yaml in dir)
//  4. Environment variables (LEXSEARCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, lexerrors.ConfigError("invalid configuration", err).
			WithSuggestion("Run 'lexsearch config show' to inspect the effective configuration")
	}

	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if none.
// .lexsearch.yaml wins over .lexsearch.yml.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{projectConfigYAML, projectConfigYML} {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

func (c *Config) loadFromFile(dir string) error {
	path := ProjectConfigPath(dir)
	if path == "" {
		return nil
	}
	var parsed Config
	if err := parsed.loadYAML(path); err != nil {
		return err
	}
	c.mergeWith(&parsed)
	return nil
}

// loadYAML parses path into c. Relative lexicon paths are resolved against
// the directory holding the file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return lexerrors.New(lexerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return lexerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}

	base := filepath.Dir(path)
	c.Lexicon.DBPath = resolve(base, c.Lexicon.DBPath)
	c.Lexicon.Source = resolve(base, c.Lexicon.Source)
	c.Lexicon.BlevePath = resolve(base, c.Lexicon.BlevePath)
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return filepath.Join(base, p)
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Lexicon.DBPath != "" {
		c.Lexicon.DBPath = other.Lexicon.DBPath
	}
	if other.Lexicon.Source != "" {
		c.Lexicon.Source = other.Lexicon.Source
	}
	if other.Lexicon.IndexBackend != "" {
		c.Lexicon.IndexBackend = other.Lexicon.IndexBackend
	}
	if other.Lexicon.BlevePath != "" {
		c.Lexicon.BlevePath = other.Lexicon.BlevePath
	}
	if other.Lexicon.CacheSize != 0 {
		c.Lexicon.CacheSize = other.Lexicon.CacheSize
	}

	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	// Files only turn watching on; LEXSEARCH_WATCH=false turns it off.
	if other.Server.Watch {
		c.Server.Watch = true
	}
	if other.Server.WatchDebounce != "" {
		c.Server.WatchDebounce = other.Server.WatchDebounce
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LEXSEARCH_DB"); v != "" {
		c.Lexicon.DBPath = v
	}
	if v := os.Getenv("LEXSEARCH_SOURCE"); v != "" {
		c.Lexicon.Source = v
	}
	if v := os.Getenv("LEXSEARCH_INDEX_BACKEND"); v != "" {
		c.Lexicon.IndexBackend = strings.ToLower(v)
	}
	if v := os.Getenv("LEXSEARCH_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Lexicon.CacheSize = n
		}
	}
	if v := os.Getenv("LEXSEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("LEXSEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("LEXSEARCH_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Server.Watch = b
		}
	}
}

// FindProjectRoot walks up from startDir to the nearest directory holding a
// project config file or .git. Returns the absolute startDir if none is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if ProjectConfigPath(currentDir) != "" || dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Lexicon.DBPath == "" {
		return fmt.Errorf("lexicon.db_path must not be empty")
	}

	switch strings.ToLower(c.Lexicon.IndexBackend) {
	case "sqlite", "bleve":
	default:
		return fmt.Errorf("lexicon.index_backend must be 'sqlite' or 'bleve', got %s", c.Lexicon.IndexBackend)
	}

	if c.Search.MaxResults < 1 || c.Search.MaxResults > maxResultsCeiling {
		return fmt.Errorf("search.max_results must be between 1 and %d, got %d", maxResultsCeiling, c.Search.MaxResults)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	if _, err := c.WatchDebounce(); err != nil {
		return err
	}

	return nil
}

// WatchDebounce parses Server.WatchDebounce.
func (c *Config) WatchDebounce() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.WatchDebounce)
	if err != nil {
		return 0, fmt.Errorf("server.watch_debounce: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("server.watch_debounce must be positive, got %s", c.Server.WatchDebounce)
	}
	return d, nil
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
