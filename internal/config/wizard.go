package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to coach! Let's point it at your Feedback Coach server.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Server.
	urlPrompt := promptui.Prompt{
		Label:    "Server URL",
		Default:  cfg.BaseURL,
		Validate: validateBaseURL,
	}
	baseURL, err := urlPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	cfg.BaseURL = baseURL

	// 2. Local data.
	dirPrompt := promptui.Prompt{
		Label:   "Directory for the session and feedback history",
		Default: cfg.DataDir,
	}
	dataDir, err := dirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 3. Logging.
	levelPrompt := promptui.Select{
		Label: "Log level",
		Items: []string{string(LogInfo), string(LogDebug), string(LogWarn), string(LogError)},
	}
	_, level, err := levelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.LogLevel = LogLevel(level)

	// 4. Auto-save.
	autosavePrompt := promptui.Prompt{
		Label:    "Auto-save delay in milliseconds",
		Default:  strconv.Itoa(cfg.Editing.AutosaveDelayMS),
		Validate: positiveInt,
	}
	autosave, err := autosavePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("auto-save delay: %w", err)
	}
	cfg.Editing.AutosaveDelayMS, _ = strconv.Atoi(autosave)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	fmt.Println("Run `coach signup` or `coach login` next.")
	return cfg, nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}
