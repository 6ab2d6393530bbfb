package config

import (
	"os"
	"path/filepath"

	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/chunker"
)

// FileName is the config file coach init writes to the working directory.
const FileName = ".coach.yml"

// DefaultDataDir returns ~/.coach, or .coach when the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".coach"
	}
	return filepath.Join(home, ".coach")
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	chunks := chunker.DefaultConfig()
	return &Config{
		BaseURL:           backend.DefaultBaseURL,
		DataDir:           DefaultDataDir(),
		LogLevel:          LogInfo,
		RequestsPerSecond: backend.DefaultRateLimit,
		RequestTimeoutMS:  int(backend.DefaultTimeout.Milliseconds()),
		ListTimeoutMS:     int(backend.DefaultListTimeout.Milliseconds()),
		Editing: EditingConfig{
			ResplitDelayMS:  3000,
			AutosaveDelayMS: 2000,
			PollIntervalMS:  100,
			TargetWords:     chunks.TargetWords,
			MinWords:        chunks.MinWords,
			MaxWords:        chunks.MaxWords,
			MaxContentBytes: backend.MaxContentBytes,
		},
	}
}
