package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultChunkSize is the default character count per document chunk
	// sent to the extraction oracle.
	DefaultChunkSize = 12000

	// DefaultChunkOverlap is the default character overlap between
	// adjacent chunks.
	DefaultChunkOverlap = 500

	// DefaultConcurrency is the default number of chunks extracted in
	// parallel.
	DefaultConcurrency = 2
)

// Config holds all configuration for loanguard.
type Config struct {
	Claude  ClaudeConfig  `mapstructure:"claude"`
	Extract ExtractConfig `mapstructure:"extract"`
	Fiscal  FiscalConfig  `mapstructure:"fiscal"`
	Query   QueryConfig   `mapstructure:"query"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
	Logging LoggingConfig `mapstructure:"logging"`
	API     APIConfig     `mapstructure:"api"`
}

// ClaudeConfig holds Anthropic Claude API settings.
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation of ClaudeConfig with the API key masked.
func (c ClaudeConfig) String() string {
	return fmt.Sprintf("ClaudeConfig{APIKey:%s, Model:%s}", maskAPIKey(c.APIKey), c.Model)
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// ExtractConfig holds document chunking and oracle retry settings.
type ExtractConfig struct {
	ChunkSize          int  `mapstructure:"chunk_size"`
	ChunkOverlap       int  `mapstructure:"chunk_overlap"`
	Concurrency        int  `mapstructure:"concurrency"`
	MaxRetries         int  `mapstructure:"max_retries"`
	CallTimeoutSeconds int  `mapstructure:"call_timeout_seconds"`
	Mock               bool `mapstructure:"mock"`
}

// CallTimeout returns the per-call oracle timeout as a duration.
func (e ExtractConfig) CallTimeout() time.Duration {
	return time.Duration(e.CallTimeoutSeconds) * time.Second
}

// FiscalConfig sets the borrower's fiscal year end used when computing
// annual deadline dates.
type FiscalConfig struct {
	YearEndMonth int `mapstructure:"year_end_month"`
	YearEndDay   int `mapstructure:"year_end_day"`
}

// QueryConfig holds natural-language query ranking settings.
type QueryConfig struct {
	TopK     int     `mapstructure:"top_k"`
	MinScore float64 `mapstructure:"min_score"`
}

// AlertsConfig holds deadline alert horizons in days.
type AlertsConfig struct {
	UpcomingDays         int `mapstructure:"upcoming_days"`
	CriticalUpcomingDays int `mapstructure:"critical_upcoming_days"`
}

// Neo4jConfig holds graph store connection settings. Enabled is false by
// default; without it profiles live in process memory only.
type Neo4jConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("claude.model", "claude-sonnet-4-20250514")

	v.SetDefault("extract.chunk_size", DefaultChunkSize)
	v.SetDefault("extract.chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("extract.concurrency", DefaultConcurrency)
	v.SetDefault("extract.max_retries", 2)
	v.SetDefault("extract.call_timeout_seconds", 120)
	v.SetDefault("extract.mock", false)

	v.SetDefault("fiscal.year_end_month", 12)
	v.SetDefault("fiscal.year_end_day", 31)

	v.SetDefault("query.top_k", 3)
	v.SetDefault("query.min_score", 0.05)

	v.SetDefault("alerts.upcoming_days", 7)
	v.SetDefault("alerts.critical_upcoming_days", 30)

	v.SetDefault("neo4j.enabled", false)
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".loanguard"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("LOANGUARD")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("claude.model", "LOANGUARD_CLAUDE_MODEL")
	_ = v.BindEnv("extract.mock", "LOANGUARD_EXTRACT_MOCK")
	_ = v.BindEnv("neo4j.uri", "LOANGUARD_NEO4J_URI")
	_ = v.BindEnv("neo4j.password", "LOANGUARD_NEO4J_PASSWORD")
	_ = v.BindEnv("api.listen_addr", "LOANGUARD_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "LOANGUARD_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Extract.ChunkSize <= 0 {
		return fmt.Errorf("extract.chunk_size must be greater than 0")
	}
	if c.Extract.ChunkOverlap < 0 {
		return fmt.Errorf("extract.chunk_overlap must be >= 0")
	}
	if c.Extract.ChunkOverlap >= c.Extract.ChunkSize {
		return fmt.Errorf("extract.chunk_overlap (%d) must be less than extract.chunk_size (%d)", c.Extract.ChunkOverlap, c.Extract.ChunkSize)
	}
	if c.Extract.Concurrency <= 0 {
		return fmt.Errorf("extract.concurrency must be greater than 0")
	}
	if c.Extract.MaxRetries < 0 {
		return fmt.Errorf("extract.max_retries must be >= 0")
	}
	if c.Fiscal.YearEndMonth < 1 || c.Fiscal.YearEndMonth > 12 {
		return fmt.Errorf("fiscal.year_end_month must be between 1 and 12")
	}
	if c.Fiscal.YearEndDay < 1 || c.Fiscal.YearEndDay > 31 {
		return fmt.Errorf("fiscal.year_end_day must be between 1 and 31")
	}
	if c.Query.TopK <= 0 {
		return fmt.Errorf("query.top_k must be greater than 0")
	}
	if c.Query.MinScore < 0 || c.Query.MinScore > 1 {
		return fmt.Errorf("query.min_score must be between 0 and 1")
	}
	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty when neo4j is enabled")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
