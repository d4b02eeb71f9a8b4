package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxDownloadBytes is the per-download byte ceiling (50MB)
	DefaultMaxDownloadBytes = int64(50 * 1024 * 1024)

	// DefaultFetchTimeout is the network timeout for a single download
	DefaultFetchTimeout = 60 * time.Second

	// DefaultWordCeiling is the maximum serialised word count a governed
	// response may carry before truncation/metadata substitution applies
	DefaultWordCeiling = 3500

	// DefaultTokensPerWord is a fixed heuristic multiplier for token
	// estimation, not measured against any specific tokenizer
	DefaultTokensPerWord = 1.3

	// DefaultCharsPerWord is the assumed average word length used when
	// relating the word ceiling to character budgets
	DefaultCharsPerWord = 5

	// DefaultPerFileCharCap limits how much of a single archived text file
	// is included in extracted output
	DefaultPerFileCharCap = 50000
)

// Environment variable overrides
const (
	CacheRootEnvVar        = "DOCVAULT_CACHE_DIR"
	MaxDownloadSizeEnvVar  = "DOCVAULT_MAX_DOWNLOAD_MB"
	FetchTimeoutEnvVar     = "DOCVAULT_FETCH_TIMEOUT_SECONDS"
	WordCeilingEnvVar      = "DOCVAULT_WORD_CEILING"
	ConfigFileEnvVar       = "DOCVAULT_CONFIG_FILE"
)

// Config carries the cache location, size ceilings and timeouts shared by
// the fetcher, extractor, resolver and governor. It is constructed once in
// main and passed by reference into each component constructor - there is
// no ambient global state.
type Config struct {
	CacheRoot        string        `yaml:"cache_dir"`
	MaxDownloadBytes int64         `yaml:"max_download_bytes"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	WordCeiling      int           `yaml:"word_ceiling"`
	TokensPerWord    float64       `yaml:"tokens_per_word"`
	CharsPerWord     int           `yaml:"chars_per_word"`
	PerFileCharCap   int           `yaml:"per_file_char_cap"`
}

// Default returns a Config populated with the built-in defaults. The cache
// root defaults to ~/.docvault/cache.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		CacheRoot:        filepath.Join(homeDir, ".docvault", "cache"),
		MaxDownloadBytes: DefaultMaxDownloadBytes,
		FetchTimeout:     DefaultFetchTimeout,
		WordCeiling:      DefaultWordCeiling,
		TokensPerWord:    DefaultTokensPerWord,
		CharsPerWord:     DefaultCharsPerWord,
		PerFileCharCap:   DefaultPerFileCharCap,
	}
}

// Load builds the effective configuration: defaults, then the optional YAML
// config file, then environment variable overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges settings from a YAML file into the config. A missing file
// is only an error when the path was explicitly configured.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && os.Getenv(ConfigFileEnvVar) == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv applies environment variable overrides on top of the current
// values.
func (c *Config) applyEnv() {
	if root := os.Getenv(CacheRootEnvVar); root != "" {
		c.CacheRoot = root
	}
	if mb := os.Getenv(MaxDownloadSizeEnvVar); mb != "" {
		if v, err := strconv.ParseInt(mb, 10, 64); err == nil && v > 0 {
			c.MaxDownloadBytes = v * 1024 * 1024
		}
	}
	if secs := os.Getenv(FetchTimeoutEnvVar); secs != "" {
		if v, err := strconv.Atoi(secs); err == nil && v > 0 {
			c.FetchTimeout = time.Duration(v) * time.Second
		}
	}
	if ceiling := os.Getenv(WordCeilingEnvVar); ceiling != "" {
		if v, err := strconv.Atoi(ceiling); err == nil && v > 0 {
			c.WordCeiling = v
		}
	}
}

// Validate checks the configuration for values the components cannot work
// with.
func (c *Config) Validate() error {
	if c.CacheRoot == "" {
		return fmt.Errorf("cache directory must not be empty")
	}
	if c.MaxDownloadBytes <= 0 {
		return fmt.Errorf("max download size must be positive, got %d", c.MaxDownloadBytes)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.WordCeiling <= 0 {
		return fmt.Errorf("word ceiling must be positive, got %d", c.WordCeiling)
	}
	if c.TokensPerWord <= 0 {
		return fmt.Errorf("tokens per word must be positive, got %f", c.TokensPerWord)
	}
	return nil
}

// EnsureCacheRoot creates the cache directory if it does not exist.
func (c *Config) EnsureCacheRoot() error {
	if err := os.MkdirAll(c.CacheRoot, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", c.CacheRoot, err)
	}
	return nil
}

// configFilePath returns the config file location: the explicit env var if
// set, otherwise ~/.docvault/config.yaml.
func configFilePath() string {
	if custom := os.Getenv(ConfigFileEnvVar); custom != "" {
		return custom
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".docvault", "config.yaml")
}
