// Package config loads settings for the server and the terminal client.
//
// Sources, highest precedence first:
//
//	environment variables  VIBECODERS_SERVER_ADDR, VIBECODERS_CLIENT_BASE_URL, ...
//	.env in the working directory (never overrides a variable already set)
//	config.yaml in the working directory, or the file passed to Load
//	defaults below
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "VIBECODERS"

type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Server   ServerConfig `mapstructure:"server"`
	Client   ClientConfig `mapstructure:"client"`
}

type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	DBPath        string        `mapstructure:"db_path"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	PasswordCost  int           `mapstructure:"password_cost"`
	RedisAddr     string        `mapstructure:"redis_addr"` // empty: revocations live in SQLite
	CORSOrigins   []string      `mapstructure:"cors_origins"`
	LoginRate     float64       `mapstructure:"login_rate"` // requests per second per IP
	LoginBurst    int           `mapstructure:"login_burst"`
	PurgeSchedule string        `mapstructure:"purge_schedule"` // cron spec
	GitHub        GitHubConfig  `mapstructure:"github"`
}

// GitHubConfig enables "sign in with GitHub" when ClientID is set.
type GitHubConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	CallbackURL  string `mapstructure:"callback_url"`
}

func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type ClientConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	SessionDB string        `mapstructure:"session_db"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Load reads the configuration. configFile may be empty, in which case an
// optional ./config.yaml is used.
func Load(configFile string) (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("config: reading config.yaml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshalling: %w", err)
	}
	return cfg, nil
}

// Every key needs a default so that AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db_path", "data/vibecoders.db")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", "24h")
	v.SetDefault("server.password_cost", 12)
	v.SetDefault("server.redis_addr", "")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.login_rate", 1.0)
	v.SetDefault("server.login_burst", 5)
	v.SetDefault("server.purge_schedule", "@every 1h")
	v.SetDefault("server.github.client_id", "")
	v.SetDefault("server.github.client_secret", "")
	v.SetDefault("server.github.callback_url", "http://localhost:8080/auth/github/callback")

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.session_db", "data/session.db")
	v.SetDefault("client.timeout", "10s")
}

// Validate checks what the server cannot start without.
func (s ServerConfig) Validate() error {
	if len(s.JWTSecret) < 16 {
		return errors.New("config: server.jwt_secret must be at least 16 characters (set VIBECODERS_SERVER_JWT_SECRET)")
	}
	if s.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if s.LoginRate <= 0 || s.LoginBurst <= 0 {
		return errors.New("config: server.login_rate and server.login_burst must be positive")
	}
	return nil
}

// Validate checks what the client cannot start without.
func (c ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("config: client.base_url is required")
	}
	if c.Timeout <= 0 {
		return errors.New("config: client.timeout must be positive")
	}
	return nil
}

// NewLogger builds the text logger used by both binaries. Unknown levels fall
// back to info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
