package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Redis         RedisConfig         `yaml:"redis"`
	Observability ObservabilityConfig `yaml:"observability"`
	Queue         QueueConfig         `yaml:"queue"`
	Competition   CompetitionConfig   `yaml:"competition"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the leaderboard cache connection. An empty URL disables caching.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment     string  `yaml:"environment"`
	LogLevel        string  `yaml:"log_level"`
	LogFormat       string  `yaml:"log_format"`
	MetricsAddress  string  `yaml:"metrics_address"`
	OTLPEndpoint    string  `yaml:"otlp_endpoint"`
	OTLPInsecure    bool    `yaml:"otlp_insecure"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"`
}

// QueueConfig holds River worker settings.
type QueueConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxWorkers int  `yaml:"max_workers"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	cfg := defaultConfig()
	cfg.Competition.DefenseRankingBreakingBonus = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Competition.DefenseRankingBreakingBonus == nil {
		cfg.Competition.DefenseRankingBreakingBonus = DefaultCompetitionConfig().DefenseRankingBreakingBonus
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	cfg := defaultConfig()

	if os.Getenv("DATABASE_URL") == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Observability: ObservabilityConfig{
			LogLevel:        "info",
			LogFormat:       "json",
			TraceSampleRate: 0.1,
		},
		Queue: QueueConfig{
			Enabled:    true,
			MaxWorkers: 10,
		},
		Competition: DefaultCompetitionConfig(),
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		cfg.Observability.OTLPEndpoint = v
	}
	if v := os.Getenv("OTLP_INSECURE"); v != "" {
		cfg.Observability.OTLPInsecure = v == "true"
	}
	if v := os.Getenv("TRACE_SAMPLE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TRACE_SAMPLE_RATE value: %v", err)
		}
		cfg.Observability.TraceSampleRate = f
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("QUEUE_ENABLED"); v != "" {
		cfg.Queue.Enabled = v == "true"
	}
	if v := os.Getenv("COMP_PHASE"); v != "" {
		phase, err := sharedtypes.ParsePhase(v)
		if err != nil {
			return fmt.Errorf("invalid COMP_PHASE value: %w", err)
		}
		cfg.Competition.Phase = phase
	}
	if v := os.Getenv("BUDGET_MODE"); v != "" {
		cfg.Competition.BudgetMode = BudgetMode(v)
	}
	if v := os.Getenv("FINAL_SCORES_PATH"); v != "" {
		cfg.Competition.FinalScoresPath = v
	}
	if v := os.Getenv("LEADERBOARD_CACHE_EXPIRATION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LEADERBOARD_CACHE_EXPIRATION value: %v", err)
		}
		cfg.Competition.LeaderboardCacheExpiration = n
	}
	if v := os.Getenv("START_TIMESTAMP"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid START_TIMESTAMP value: %v", err)
		}
		cfg.Competition.StartTimestamp = n
	}
	if v := os.Getenv("LEADERBOARD_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LEADERBOARD_REFRESH_INTERVAL value: %v", err)
		}
		cfg.Competition.LeaderboardRefreshInterval = d
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn must be set")
	}
	return c.Competition.Validate()
}

func ToObsConfig(appCfg *Config) observability.Config {
	return observability.Config{
		ServiceName:  "llm-ctf",
		Environment:  appCfg.Observability.Environment,
		LogLevel:     appCfg.Observability.LogLevel,
		LogFormat:    appCfg.Observability.LogFormat,
		OTLPEndpoint: appCfg.Observability.OTLPEndpoint,
		OTLPInsecure: appCfg.Observability.OTLPInsecure,
		SampleRate:   appCfg.Observability.TraceSampleRate,
	}
}
