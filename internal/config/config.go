package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

// Config holds all configuration for the application.
type Config struct {
	Store    Store    `mapstructure:"store"`
	Database Database `mapstructure:"database"`
	Remote   Remote   `mapstructure:"remote"`
	Auth     Auth     `mapstructure:"auth"`
	Engine   Engine   `mapstructure:"engine"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
}

// Store selects which data store implementation backs the engine.
type Store struct {
	Backend string `mapstructure:"backend"` // "sqlite" or "remote"
}

// Database holds the configuration for the local database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Remote holds the configuration for the hosted table store.
type Remote struct {
	URL            string  `mapstructure:"url"`
	APIKey         string  `mapstructure:"api_key"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxRetries     int     `mapstructure:"max_retries"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Auth holds the configuration for verifying identity tokens.
type Auth struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Engine holds the tunables of the progression engine.
type Engine struct {
	Timezone                   string  `mapstructure:"timezone"`
	MarketTimezone             string  `mapstructure:"market_timezone"`
	ViolationPenaltyXP         int     `mapstructure:"violation_penalty_xp"`
	UnitXPBonus                int     `mapstructure:"unit_xp_bonus"`
	ConflictRetries            int     `mapstructure:"conflict_retries"`
	AchievementCacheTTLSeconds int     `mapstructure:"achievement_cache_ttl_seconds"`
	RevengeWindowMinutes       int     `mapstructure:"revenge_window_minutes"`
	BaseGrowthMultiplier       float64 `mapstructure:"base_growth_multiplier"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Server holds the configuration for the HTTP API.
type Server struct {
	Port                 int `mapstructure:"port"`
	OnboardingTTLMinutes int `mapstructure:"onboarding_ttl_minutes"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and environment apply.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional, real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("database.dsn", "journal.db")

	v.SetDefault("remote.url", "")
	v.SetDefault("remote.api_key", "")
	v.SetDefault("remote.rate_limit", 10)      // requests per second
	v.SetDefault("remote.rate_limit_burst", 5) // burst size
	v.SetDefault("remote.max_retries", 1)
	v.SetDefault("remote.timeout_seconds", 10)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("engine.timezone", "UTC")
	v.SetDefault("engine.market_timezone", "America/New_York")
	v.SetDefault("engine.violation_penalty_xp", 10)
	v.SetDefault("engine.unit_xp_bonus", 50)
	v.SetDefault("engine.conflict_retries", 3)
	v.SetDefault("engine.achievement_cache_ttl_seconds", 300)
	v.SetDefault("engine.revenge_window_minutes", 30)
	v.SetDefault("engine.base_growth_multiplier", 1.0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 3)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.onboarding_ttl_minutes", 30)
}
