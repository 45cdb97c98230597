package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	Env           string `mapstructure:"ENV"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	FeedPath      string `mapstructure:"FEED_PATH"`
	FeedURL       string `mapstructure:"FEED_URL"`
	FeedSample    int    `mapstructure:"FEED_SAMPLE"`
	BatchSize     int    `mapstructure:"BATCH_SIZE"`
	ReportDir     string `mapstructure:"REPORT_DIR"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	Seed          int64  `mapstructure:"SEED"`
}

// DefaultFeedURL is the public NIH chest X-ray metadata export the loader
// falls back to when no local feed file is configured.
const DefaultFeedURL = "https://huggingface.co/datasets/alkzar90/NIH-Chest-X-ray-dataset/resolve/main/data/Data_Entry_2017_v2020.csv"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("FEED_URL", DefaultFeedURL)
	v.SetDefault("FEED_SAMPLE", 10000)
	v.SetDefault("BATCH_SIZE", 2000)
	v.SetDefault("REPORT_DIR", "reports")
	v.SetDefault("SEED", 0)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("FEED_PATH")
	v.BindEnv("FEED_URL")
	v.BindEnv("FEED_SAMPLE")
	v.BindEnv("BATCH_SIZE")
	v.BindEnv("REPORT_DIR")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("SEED")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Println("WARNING: ENV=development and JWT_SECRET is unset.")
		log.Println("WARNING: The ops server will mint and accept tokens signed with an ephemeral key.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run with. In production
// the ops server refuses to start without a signing secret.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.FeedSample < 0 {
		return fmt.Errorf("FEED_SAMPLE must not be negative, got %d", c.FeedSample)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}
