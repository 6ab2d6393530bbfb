package config

import "time"

// LogLevel controls how much coach writes to stderr.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// Config holds the full coach configuration.
type Config struct {
	BaseURL           string        `yaml:"base_url" koanf:"base_url"`
	DataDir           string        `yaml:"data_dir" koanf:"data_dir"`
	LogLevel          LogLevel      `yaml:"log_level" koanf:"log_level"`
	Editor            string        `yaml:"editor,omitempty" koanf:"editor"`
	RequestsPerSecond int           `yaml:"requests_per_second" koanf:"requests_per_second"`
	RequestTimeoutMS  int           `yaml:"request_timeout_ms" koanf:"request_timeout_ms"`
	ListTimeoutMS     int           `yaml:"list_timeout_ms" koanf:"list_timeout_ms"`
	Editing           EditingConfig `yaml:"editing" koanf:"editing"`
}

// EditingConfig tunes chunking, re-splitting and auto-save.
type EditingConfig struct {
	ResplitDelayMS  int `yaml:"resplit_delay_ms" koanf:"resplit_delay_ms"`
	AutosaveDelayMS int `yaml:"autosave_delay_ms" koanf:"autosave_delay_ms"`
	PollIntervalMS  int `yaml:"poll_interval_ms" koanf:"poll_interval_ms"`
	TargetWords     int `yaml:"target_words" koanf:"target_words"`
	MinWords        int `yaml:"min_words" koanf:"min_words"`
	MaxWords        int `yaml:"max_words" koanf:"max_words"`
	MaxContentBytes int `yaml:"max_content_bytes" koanf:"max_content_bytes"`
}

// RequestTimeout bounds a single backend request.
func (c *Config) RequestTimeout() time.Duration { return ms(c.RequestTimeoutMS) }

// ListTimeout bounds the document list fetch.
func (c *Config) ListTimeout() time.Duration { return ms(c.ListTimeoutMS) }

func (e EditingConfig) ResplitDelay() time.Duration  { return ms(e.ResplitDelayMS) }
func (e EditingConfig) AutosaveDelay() time.Duration { return ms(e.AutosaveDelayMS) }
func (e EditingConfig) PollInterval() time.Duration  { return ms(e.PollIntervalMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
