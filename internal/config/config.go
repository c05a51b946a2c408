// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	GitHub    GitHubConfig    `mapstructure:"github" yaml:"github"`
	Analysis  AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port    int           `mapstructure:"port" yaml:"port"`
	Mode    string        `mapstructure:"mode" yaml:"mode"` // fast, full
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// GitHubConfig contains GitHub API configuration.
type GitHubConfig struct {
	Token      string `mapstructure:"token" yaml:"token"` // usually from env, not file
	IssueLimit int    `mapstructure:"issue_limit" yaml:"issue_limit"`
	BodyLimit  int    `mapstructure:"body_limit" yaml:"body_limit"` // max chars of issue/PR body kept
}

// AnalysisConfig contains repository analysis limits and patterns.
type AnalysisConfig struct {
	MaxFileSize    int64    `mapstructure:"max_file_size" yaml:"max_file_size"`     // bytes, per-file content cap
	MaxStatFiles   int      `mapstructure:"max_stat_files" yaml:"max_stat_files"`   // files inspected for line counts
	TopFiles       int      `mapstructure:"top_files" yaml:"top_files"`             // largest-files list length
	MaxDirectories int      `mapstructure:"max_directories" yaml:"max_directories"` // directory list cap
	IgnoreDirs     []string `mapstructure:"ignore_dirs" yaml:"ignore_dirs"`
	KeyFiles       []string `mapstructure:"key_files" yaml:"key_files"`
	TextExts       []string `mapstructure:"text_exts" yaml:"text_exts"` // extensions treated as text
	Watch          bool     `mapstructure:"watch" yaml:"watch"`         // re-analyze on file changes
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// SearchConfig contains search configuration.
type SearchConfig struct {
	ChunkSize     int `mapstructure:"chunk_size" yaml:"chunk_size"`       // chars per chunk
	ChunkOverlap  int `mapstructure:"chunk_overlap" yaml:"chunk_overlap"` // chars of overlap
	MaxIndexFiles int `mapstructure:"max_index_files" yaml:"max_index_files"`
	DefaultLimit  int `mapstructure:"default_limit" yaml:"default_limit"`
}

// HistoryConfig contains chat history configuration.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"` // sqlite file, empty = <config dir>/history.db
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8501,
			Mode:    "full",
			Timeout: 30 * time.Second,
		},
		GitHub: GitHubConfig{
			IssueLimit: 50,
			BodyLimit:  500,
		},
		Analysis: AnalysisConfig{
			MaxFileSize:    50000,
			MaxStatFiles:   2000,
			TopFiles:       10,
			MaxDirectories: 200,
			IgnoreDirs: []string{
				".git", "__pycache__", "node_modules", ".venv", "venv",
				"dist", "build", "vendor", "target",
			},
			KeyFiles: []string{
				"readme.md", "license", "makefile", "dockerfile",
				"docker-compose.yml", "requirements.txt", "setup.py",
				"pyproject.toml", "package.json", "yarn.lock", "poetry.lock",
				"pom.xml", "cargo.toml", "go.mod", "main.py", "app.py",
			},
			TextExts: []string{
				".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".c",
				".cpp", ".cs", ".rs", ".rb", ".php", ".swift", ".kt",
				".md", ".txt", ".yml", ".yaml", ".json", ".xml", ".html", ".css",
			},
			Watch: true,
		},
		Embedding: EmbeddingConfig{
			Endpoint: "https://api.openai.com/v1",
			Model:    "text-embedding-3-small",
		},
		Search: SearchConfig{
			ChunkSize:     800,
			ChunkOverlap:  100,
			MaxIndexFiles: 200,
			DefaultLimit:  10,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the path to the .askrepo directory.
func ConfigDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".askrepo")
}

// ConfigPath returns the path to config.yaml.
func ConfigPath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "config.yaml")
}

// HistoryDBPath returns the path to the chat history database.
func HistoryDBPath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "history.db")
}

// IndexDBPath returns the path to the semantic index database.
func IndexDBPath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "index.db")
}

// Load loads configuration from file, falling back to defaults.
// Environment variables override file values for credentials.
func Load(projectRoot string) (*Config, []string, error) {
	cfg := DefaultConfig()
	warnings := []string{}

	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	configPath := ConfigPath(projectRoot)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		warnings = append(warnings, "No config file found, using defaults")
	} else {
		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, warnings, nil
}

// applyEnv overlays credentials and mode switches from the environment.
func applyEnv(cfg *Config) {
	if tok := os.Getenv("ASKREPO_GITHUB_TOKEN"); tok != "" {
		cfg.GitHub.Token = tok
	} else if tok := os.Getenv("GITHUB_TOKEN"); tok != "" && cfg.GitHub.Token == "" {
		cfg.GitHub.Token = tok
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = key
	}
	if os.Getenv("FAST_MODE") == "1" {
		cfg.Server.Mode = "fast"
	}
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = def.Server.Mode
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = def.Server.Timeout
	}
	if cfg.GitHub.IssueLimit == 0 {
		cfg.GitHub.IssueLimit = def.GitHub.IssueLimit
	}
	if cfg.GitHub.BodyLimit == 0 {
		cfg.GitHub.BodyLimit = def.GitHub.BodyLimit
	}
	if cfg.Analysis.MaxFileSize == 0 {
		cfg.Analysis.MaxFileSize = def.Analysis.MaxFileSize
	}
	if cfg.Analysis.MaxStatFiles == 0 {
		cfg.Analysis.MaxStatFiles = def.Analysis.MaxStatFiles
	}
	if cfg.Analysis.TopFiles == 0 {
		cfg.Analysis.TopFiles = def.Analysis.TopFiles
	}
	if cfg.Analysis.MaxDirectories == 0 {
		cfg.Analysis.MaxDirectories = def.Analysis.MaxDirectories
	}
	if len(cfg.Analysis.IgnoreDirs) == 0 {
		cfg.Analysis.IgnoreDirs = def.Analysis.IgnoreDirs
	}
	if len(cfg.Analysis.KeyFiles) == 0 {
		cfg.Analysis.KeyFiles = def.Analysis.KeyFiles
	}
	if len(cfg.Analysis.TextExts) == 0 {
		cfg.Analysis.TextExts = def.Analysis.TextExts
	}
	if cfg.Embedding.Endpoint == "" {
		cfg.Embedding.Endpoint = def.Embedding.Endpoint
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Search.ChunkSize == 0 {
		cfg.Search.ChunkSize = def.Search.ChunkSize
	}
	if cfg.Search.ChunkOverlap == 0 {
		cfg.Search.ChunkOverlap = def.Search.ChunkOverlap
	}
	if cfg.Search.MaxIndexFiles == 0 {
		cfg.Search.MaxIndexFiles = def.Search.MaxIndexFiles
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = def.Search.DefaultLimit
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

// Save saves configuration to file. Credentials are never written.
func Save(projectRoot string, cfg *Config) error {
	configDir := ConfigDir(projectRoot)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(ConfigPath(projectRoot))
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("github", map[string]any{
		"issue_limit": cfg.GitHub.IssueLimit,
		"body_limit":  cfg.GitHub.BodyLimit,
	})
	v.Set("analysis", cfg.Analysis)
	v.Set("embedding", map[string]any{
		"endpoint": cfg.Embedding.Endpoint,
		"model":    cfg.Embedding.Model,
	})
	v.Set("search", cfg.Search)
	v.Set("history", cfg.History)
	v.Set("logging", cfg.Logging)

	return v.WriteConfig()
}

// Validate validates the configuration.
func Validate(cfg *Config) []error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", cfg.Server.Port))
	}

	validModes := map[string]bool{"fast": true, "full": true}
	if !validModes[cfg.Server.Mode] {
		errs = append(errs, fmt.Errorf("invalid mode: %s (valid: fast, full)", cfg.Server.Mode))
	}

	if cfg.Search.ChunkOverlap >= cfg.Search.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			cfg.Search.ChunkOverlap, cfg.Search.ChunkSize))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", cfg.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Errorf("invalid log format: %s", cfg.Logging.Format))
	}

	return errs
}

// SemanticEnabled reports whether semantic search can run: full mode plus
// an embedding API key.
func (c *Config) SemanticEnabled() bool {
	return c.Server.Mode == "full" && c.Embedding.APIKey != ""
}
