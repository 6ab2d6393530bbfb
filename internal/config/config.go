package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/feedback-coach/internal/chunker"
	"github.com/ziadkadry99/feedback-coach/internal/workspace"
)

// EnvPrefix marks environment overrides. A double underscore descends into
// a section: COACH_EDITING__RESPLIT_DELAY_MS -> editing.resplit_delay_ms.
const EnvPrefix = "COACH_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (COACH_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLogLevels = map[LogLevel]bool{
	LogDebug: true,
	LogInfo:  true,
	LogWarn:  true,
	LogError: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if err := validateBaseURL(c.BaseURL); err != nil {
		return err
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("request_timeout_ms must be positive")
	}
	if c.ListTimeoutMS <= 0 {
		return fmt.Errorf("list_timeout_ms must be positive")
	}

	return c.Editing.validate()
}

func (e EditingConfig) validate() error {
	if e.ResplitDelayMS <= 0 || e.AutosaveDelayMS <= 0 || e.PollIntervalMS <= 0 {
		return fmt.Errorf("editing delays must be positive")
	}
	if e.MinWords <= 0 {
		return fmt.Errorf("editing.min_words must be positive")
	}
	if e.MinWords > e.TargetWords || e.TargetWords > e.MaxWords {
		return fmt.Errorf("editing word sizes must satisfy min_words <= target_words <= max_words (got %d, %d, %d)",
			e.MinWords, e.TargetWords, e.MaxWords)
	}
	if e.MaxContentBytes <= 0 {
		return fmt.Errorf("editing.max_content_bytes must be positive")
	}
	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base_url %q: must be an http(s) URL", raw)
	}
	return nil
}

// DBPath is the local database holding the session and review history.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "coach.db")
}

// Chunking returns the chunk sizes for the chunk builder.
func (c *Config) Chunking() chunker.Config {
	return chunker.Config{
		TargetWords: c.Editing.TargetWords,
		MinWords:    c.Editing.MinWords,
		MaxWords:    c.Editing.MaxWords,
	}
}

// Workspace returns the editing timings for a document workspace.
func (c *Config) Workspace() workspace.Config {
	return workspace.Config{
		ResplitDelay:    c.Editing.ResplitDelay(),
		AutosaveDelay:   c.Editing.AutosaveDelay(),
		PollInterval:    c.Editing.PollInterval(),
		SaveTimeout:     c.RequestTimeout(),
		MaxContentBytes: c.Editing.MaxContentBytes,
		Chunking:        c.Chunking(),
	}
}
