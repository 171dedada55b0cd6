package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models teamhub.yml.
type Config struct {
	Workspace struct {
		Name        string `yaml:"name"`
		SnapshotKey string `yaml:"snapshot_key"`
	} `yaml:"workspace"`
	Assistant struct {
		BaseURL        string `yaml:"base_url"`
		APIKeyEnv      string `yaml:"api_key_env"`
		Model          string `yaml:"model"`
		AnalysisModel  string `yaml:"analysis_model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"assistant"`
	Server struct {
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Workspace.Name == "" {
		return fmt.Errorf("config.workspace.name is required")
	}
	if c.Workspace.SnapshotKey == "" {
		return fmt.Errorf("config.workspace.snapshot_key is required")
	}
	if c.Assistant.TimeoutSeconds < 0 {
		return fmt.Errorf("config.assistant.timeout_seconds must not be negative")
	}
	if c.Assistant.BaseURL != "" && c.Assistant.Model == "" {
		return fmt.Errorf("config.assistant.model is required when base_url is set")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "teamhub.yml")
}

// Load reads and validates config from the workspace, falling back to
// defaults when no file exists.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default("teamhub"), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a workspace name.
func Default(name string) *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(fmt.Sprintf(defaultTemplate, name)), &cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault(name string) string {
	return fmt.Sprintf(defaultTemplate, name)
}

const defaultTemplate = `workspace:
  name: %s
  snapshot_key: teamhub_state_v8

assistant:
  # base_url left empty keeps the copilot offline; point it at an
  # OpenAI-compatible chat completions endpoint to enable it.
  base_url: ""
  api_key_env: TEAMHUB_API_KEY
  model: gemini-3-pro-preview
  analysis_model: gemini-3-flash-preview
  timeout_seconds: 60

server:
  base_path: /v0
  jwt_secret: ""
`
