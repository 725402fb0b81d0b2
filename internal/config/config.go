// Package config provides configuration loading and structs for the Attesta server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	GenAI   GenAIConfig   `yaml:"genai"`
	Policy  PolicyConfig  `yaml:"policy"`
	Prompts PromptsConfig `yaml:"prompts"`
	Library LibraryConfig `yaml:"library"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database, the library index, and blobs.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
	BlobDir        string `yaml:"blob_dir"`
}

// GenAIConfig holds generative text service client settings. The API key is
// read from the environment variable named by APIKeyEnv so keys never land in
// config files.
type GenAIConfig struct {
	BaseURL               string  `yaml:"base_url"`
	APIKeyEnv             string  `yaml:"api_key_env"`
	Model                 string  `yaml:"model"`
	FilterTemperature     float64 `yaml:"filter_temperature"`
	GenerationTemperature float64 `yaml:"generation_temperature"`
	RefineTemperature     float64 `yaml:"refine_temperature"`
	MaxOutputTokens       int     `yaml:"max_output_tokens"`
}

// APIKey returns the API key from the configured environment variable, or ""
// when unset.
func (g *GenAIConfig) APIKey() string {
	if g.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(g.APIKeyEnv)
}

// PolicyConfig holds document-numbering and date policy.
type PolicyConfig struct {
	DocumentCode         string `yaml:"document_code"`
	EffectiveOffsetDays  int    `yaml:"effective_offset_days"`
	ReviewIntervalMonths int    `yaml:"review_interval_months"`
	OrganizationName     string `yaml:"organization_name"`
}

// PromptsConfig holds externally configured instruction templates. The filter
// instruction has no default: the pipeline refuses to run without one rather
// than fabricating its own.
type PromptsConfig struct {
	FilterInstruction string `yaml:"filter_instruction"`
}

// LibraryConfig holds legacy-document library settings.
type LibraryConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (l *LibraryConfig) RecursiveOrDefault() bool {
	if l.Recursive != nil {
		return *l.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.BlobDir = expandPath(cfg.Storage.BlobDir, configDir)
	for i := range cfg.Library.Directories {
		cfg.Library.Directories[i] = expandPath(cfg.Library.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting library directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
