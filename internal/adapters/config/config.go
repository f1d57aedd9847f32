package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Pipeline   PipelineConfig   `envconfig:"PIPELINE"`
	Scoring    ScoringConfig    `envconfig:"SCORING"`
	Filter     FilterConfig     `envconfig:"FILTER"`
	Trends     TrendsConfig     `envconfig:"TRENDS"`
	Source     SourceConfig     `envconfig:"SOURCE"`
	Database   DatabaseConfig   `envconfig:"DATABASE"`
	ClickHouse ClickHouseConfig `envconfig:"CLICKHOUSE"`
	Telegram   TelegramConfig   `envconfig:"TELEGRAM"`
	Health     HealthConfig     `envconfig:"HEALTH"`
	Logging    LoggingConfig    `envconfig:"LOGGING"`
}

// PipelineConfig represents orchestrator parameters
type PipelineConfig struct {
	Interval        time.Duration `envconfig:"PIPELINE_INTERVAL" default:"1h"`
	RunTimeout      time.Duration `envconfig:"PIPELINE_RUN_TIMEOUT" default:"60s"`
	StopTimeout     time.Duration `envconfig:"PIPELINE_STOP_TIMEOUT" default:"30s"`
	RunHistoryLimit int           `envconfig:"PIPELINE_RUN_HISTORY_LIMIT" default:"200"`
}

// ScoringConfig represents scorer calibration parameters
type ScoringConfig struct {
	TrendWindow           time.Duration      `envconfig:"SCORING_TREND_WINDOW" default:"168h"`
	PopularityCalibration float64            `envconfig:"SCORING_POPULARITY_CALIBRATION" default:"500"`
	CommentsCalibration   float64            `envconfig:"SCORING_COMMENTS_CALIBRATION" default:"100"`
	CategoryWeights       map[string]float64 `envconfig:"SCORING_CATEGORY_WEIGHTS"`
	SentimentWeights      map[string]float64 `envconfig:"SCORING_SENTIMENT_WEIGHTS"`
}

// FilterConfig represents initial filter thresholds. Runtime values adapt
// from these via self-tuning and are persisted in the history store.
type FilterConfig struct {
	RelevanceThreshold float64 `envconfig:"FILTER_RELEVANCE_THRESHOLD" default:"0.55"`
	ImpactThreshold    float64 `envconfig:"FILTER_IMPACT_THRESHOLD" default:"0.4"`
	TrendThreshold     float64 `envconfig:"FILTER_TREND_THRESHOLD" default:"0.3"`
	SentimentThreshold float64 `envconfig:"FILTER_SENTIMENT_THRESHOLD" default:"0.1"`
	ThresholdFloor     float64 `envconfig:"FILTER_THRESHOLD_FLOOR" default:"0.05"`
	ThresholdCeiling   float64 `envconfig:"FILTER_THRESHOLD_CEILING" default:"0.95"`
}

// TrendsConfig represents trend detector parameters
type TrendsConfig struct {
	HistoryLimit int `envconfig:"TRENDS_HISTORY_LIMIT" default:"50"`
}

// SourceConfig represents signal source configuration
type SourceConfig struct {
	File string `envconfig:"SOURCE_FILE" required:"false"`
}

// DatabaseConfig represents database connection parameters
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"signal_intel"`
	User     string `envconfig:"DB_USER" required:"false"`
	Password string `envconfig:"DB_PASSWORD" required:"false"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	Enabled  bool   `envconfig:"DB_ENABLED" default:"false"`

	// HistoryDir is the fallback file store location when the database
	// is disabled.
	HistoryDir string `envconfig:"DB_HISTORY_DIR" default:"data/history"`

	MigrationsPath string `envconfig:"DB_MIGRATIONS_PATH" default:"migrations"`
}

// ClickHouseConfig represents the analytics sink configuration
type ClickHouseConfig struct {
	DSN           string        `envconfig:"CLICKHOUSE_DSN" default:"clickhouse://localhost:9000/signal_intel"`
	Enabled       bool          `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	BatchSize     int           `envconfig:"CLICKHOUSE_BATCH_SIZE" default:"100"`
	FlushInterval time.Duration `envconfig:"CLICKHOUSE_FLUSH_INTERVAL" default:"10s"`
}

// TelegramConfig represents digest delivery configuration
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
	Enabled  bool   `envconfig:"TELEGRAM_ENABLED" default:"false"`
}

// HealthConfig represents the probe endpoint configuration
type HealthConfig struct {
	Port    string `envconfig:"HEALTH_PORT" default:"8080"`
	Enabled bool   `envconfig:"HEALTH_ENABLED" default:"true"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Pipeline.Interval <= 0 {
		return fmt.Errorf("pipeline interval must be positive")
	}
	if c.Pipeline.RunTimeout <= 0 {
		return fmt.Errorf("pipeline run timeout must be positive")
	}

	if c.Filter.ThresholdFloor < 0 || c.Filter.ThresholdFloor >= c.Filter.ThresholdCeiling {
		return fmt.Errorf("filter threshold floor must be in [0, ceiling)")
	}
	if c.Filter.ThresholdCeiling > 1 {
		return fmt.Errorf("filter threshold ceiling must be at most 1")
	}
	for name, v := range map[string]float64{
		"relevance": c.Filter.RelevanceThreshold,
		"impact":    c.Filter.ImpactThreshold,
		"trend":     c.Filter.TrendThreshold,
		"sentiment": c.Filter.SentimentThreshold,
	} {
		if v < c.Filter.ThresholdFloor || v > c.Filter.ThresholdCeiling {
			return fmt.Errorf("%s threshold must be within [floor, ceiling]", name)
		}
	}

	if c.Scoring.PopularityCalibration <= 0 || c.Scoring.CommentsCalibration <= 0 {
		return fmt.Errorf("scoring calibration constants must be positive")
	}

	if c.Database.Enabled && c.Database.User == "" {
		return fmt.Errorf("db user is required when database is enabled")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram bot token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram chat_id is required when telegram is enabled")
		}
	}

	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
