package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Preferences holds the user's persistent choices, layered on top of the
// environment configuration. Stored as JSON under the user config dir.
type Preferences struct {
	Provider    string   `json:"provider,omitempty"`    // groq, openai, anthropic
	Model       string   `json:"model,omitempty"`       // default model name
	Temperature *float32 `json:"temperature,omitempty"` // nil = use default
	BaseURL     string   `json:"base_url,omitempty"`    // optional API endpoint override
}

// Manager handles loading and saving the preferences file.
type Manager struct {
	configDir string
}

// NewManager creates a new preferences manager.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}

	return &Manager{
		configDir: filepath.Join(configDir, "csvchat"),
	}, nil
}

// NewManagerAt creates a preferences manager rooted at an explicit directory.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// GetConfigPath returns the absolute path to the preferences file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the preferences from disk.
// If the file does not exist, it returns empty Preferences and no error.
func (m *Manager) Load() (*Preferences, error) {
	path := m.GetConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Preferences{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to parse config json: %w", err)
	}

	return &prefs, nil
}

// Save writes the preferences to disk with restricted permissions (0600).
func (m *Manager) Save(prefs *Preferences) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := m.GetConfigPath()
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if the preferences file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}

// Apply overlays non-empty preferences onto a runtime config.
func (p *Preferences) Apply(cfg *Config) {
	if p.Provider != "" {
		cfg.Provider = p.Provider
	}
	if p.Model != "" {
		cfg.Model = p.Model
	}
	if p.Temperature != nil {
		cfg.Temperature = *p.Temperature
	}
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
	}
}
