// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig       `mapstructure:"bot"`
	Database DatabaseConfig  `mapstructure:"database"`
	HTTP     HTTPConfig      `mapstructure:"http"`
	Owner    AccountConfig   `mapstructure:"owner"`
	Admins   []AccountConfig `mapstructure:"admins"`
	Arena    ArenaConfig     `mapstructure:"arena"`
	Strategy StrategyConfig  `mapstructure:"strategy"`
	Log      LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
// When Enabled is false the arena runs purely in memory.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// HTTPConfig holds the ops endpoint configuration.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// AccountConfig is a seeded owner or admin login.
type AccountConfig struct {
	ID       string `mapstructure:"id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DemoUserConfig is a seeded player with an opening balance.
type DemoUserConfig struct {
	ID             string `mapstructure:"id"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	Email          string `mapstructure:"email"`
	OpeningBalance string `mapstructure:"opening_balance"`
}

// ArenaConfig holds tournament behaviour settings.
type ArenaConfig struct {
	RoomWindow      time.Duration    `mapstructure:"room_window"`
	PersistInterval time.Duration    `mapstructure:"persist_interval"`
	Currency        string           `mapstructure:"currency"`
	DemoUsers       []DemoUserConfig `mapstructure:"demo_users"`
}

// StrategyConfig holds the text generation settings for /strategy.
type StrategyConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float32       `mapstructure:"temperature"`
	TopP        float32       `mapstructure:"top_p"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_ENABLED, STRATEGY_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.poll_timeout", "10s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arena")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "arena")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("owner.id", "owner-1")
	v.SetDefault("owner.username", "owner")
	v.SetDefault("owner.password", "")

	v.SetDefault("arena.room_window", "15m")
	v.SetDefault("arena.persist_interval", "30s")
	v.SetDefault("arena.currency", "₹")

	v.SetDefault("strategy.api_key", "")
	v.SetDefault("strategy.model", "gemini-2.5-flash")
	v.SetDefault("strategy.timeout", "20s")
	v.SetDefault("strategy.temperature", 0.7)
	v.SetDefault("strategy.top_p", 0.95)

	v.SetDefault("log.level", "info")
}

// Validate rejects configurations the arena cannot start with.
func (c *Config) Validate() error {
	if c.Owner.ID == "" || c.Owner.Username == "" || c.Owner.Password == "" {
		return errors.New("owner id, username and password are required")
	}
	if c.Arena.RoomWindow <= 0 {
		return fmt.Errorf("arena.room_window must be positive, got %s", c.Arena.RoomWindow)
	}
	if c.Database.Enabled && c.Arena.PersistInterval <= 0 {
		return fmt.Errorf("arena.persist_interval must be positive, got %s", c.Arena.PersistInterval)
	}
	for i, a := range c.Admins {
		if a.ID == "" || a.Username == "" || a.Password == "" {
			return fmt.Errorf("admins[%d]: id, username and password are required", i)
		}
	}
	return nil
}
