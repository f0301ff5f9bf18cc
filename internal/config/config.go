package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the campusqa API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Index      IndexConfig      `yaml:"index"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"` // empty disables auth
}

// StorageConfig holds SQLite storage settings.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// EmbeddingConfig holds dense-backend embedding provider settings.
// An empty APIKey means no dense backend is available and the index
// falls back to the sparse backend.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// GeneratorConfig holds optional answer-generator settings.
// An empty APIKey means the deterministic template answerer is used.
type GeneratorConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// IndexConfig holds retrieval index settings.
type IndexConfig struct {
	Backend string `yaml:"backend"` // auto, dense, sparse (default: auto)
}

// AssistantConfig holds query pipeline settings.
type AssistantConfig struct {
	TopK               int `yaml:"top_k"`
	MaxTopK            int `yaml:"max_top_k"`
	StoreTimeoutSec    int `yaml:"store_timeout_sec"`
	GenerateTimeoutSec int `yaml:"generate_timeout_sec"`
	MaxEditDistance    int `yaml:"max_edit_distance"`
}

// VocabularyConfig points at an optional YAML overlay extending the
// built-in campus gazetteer.
type VocabularyConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Index.Backend == "" {
		c.Index.Backend = "auto"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Generator.Model == "" {
		c.Generator.Model = "gpt-4o-mini"
	}
	if c.Assistant.TopK <= 0 {
		c.Assistant.TopK = 5
	}
	if c.Assistant.MaxTopK <= 0 {
		c.Assistant.MaxTopK = 20
	}
	if c.Assistant.StoreTimeoutSec <= 0 {
		c.Assistant.StoreTimeoutSec = 5
	}
	if c.Assistant.GenerateTimeoutSec <= 0 {
		c.Assistant.GenerateTimeoutSec = 25
	}
	if c.Assistant.MaxEditDistance <= 0 {
		c.Assistant.MaxEditDistance = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Index.Backend {
	case "auto", "dense", "sparse":
		// ok
	default:
		return fmt.Errorf(
			"index.backend must be \"auto\", \"dense\" or \"sparse\", got %q", c.Index.Backend,
		)
	}
	if c.Index.Backend == "dense" && c.Embedding.APIKey == "" {
		return fmt.Errorf("index.backend is \"dense\" but embedding.api_key is empty")
	}
	if c.Assistant.TopK > c.Assistant.MaxTopK {
		return fmt.Errorf(
			"assistant.top_k (%d) must not exceed assistant.max_top_k (%d)",
			c.Assistant.TopK, c.Assistant.MaxTopK,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
