// Package config loads the botforge configuration from defaults, an optional
// YAML file and BOTFORGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	errs "github.com/edgard/botforge/internal/errors"
)

// Config holds the application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig configures the manager bot and token verification.
// Token is only required by the serve command.
type TelegramConfig struct {
	Token          string        `mapstructure:"token"`
	ServerURL      string        `mapstructure:"server_url"      validate:"omitempty,url"`
	VerifyTokens   bool          `mapstructure:"verify_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=1s,max=5m"`
	AllowedUserIDs []int64       `mapstructure:"allowed_user_ids"`
	BlockedUserIDs []int64       `mapstructure:"blocked_user_ids"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// GeneratorConfig controls where artifacts are written and how they are built and run.
type GeneratorConfig struct {
	OutputDir            string        `mapstructure:"output_dir"            validate:"required"`
	GoBinary             string        `mapstructure:"go_binary"             validate:"required"`
	ModuleDir            string        `mapstructure:"module_dir"`
	BuildTimeout         time.Duration `mapstructure:"build_timeout"         validate:"min=1s"`
	StopTimeout          time.Duration `mapstructure:"stop_timeout"          validate:"min=100ms"`
	ReconcileConcurrency int           `mapstructure:"reconcile_concurrency" validate:"min=1,max=64"`
}

type SessionsConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=memory redis"`
	TTL     time.Duration `mapstructure:"ttl"     validate:"min=1m"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       validate:"min=0"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

var defaults = map[string]any{
	"log.level": "info",
	"log.json":  false,

	"telegram.token":           "",
	"telegram.server_url":      "",
	"telegram.verify_tokens":   true,
	"telegram.request_timeout": 30 * time.Second,

	"database.path": "botforge.db",

	"generator.output_dir":            "generated",
	"generator.module_dir":            "",
	"generator.go_binary":             "go",
	"generator.build_timeout":         2 * time.Minute,
	"generator.stop_timeout":          5 * time.Second,
	"generator.reconcile_concurrency": 4,

	"sessions.backend": "memory",
	"sessions.ttl":     time.Hour,

	"sessions.redis.addr":     "",
	"sessions.redis.password": "",
	"sessions.redis.db":       0,

	"scheduler.tasks.sql_maintenance.enabled":  true,
	"scheduler.tasks.sql_maintenance.schedule": "0 0 4 * * *",
	"scheduler.tasks.process_sweep.enabled":    true,
	"scheduler.tasks.process_sweep.schedule":   "0 */5 * * * *",
}

// LoadConfig reads configPath if it exists, applies BOTFORGE_* environment
// overrides and validates the result. An empty path skips the file.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("BOTFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, errs.NewConfigError(fmt.Sprintf("failed to read config file %s", configPath), err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.NewConfigError("failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints that the struct tags express.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		s := sl.Current().Interface().(SessionsConfig)
		if s.Backend == "redis" && s.Redis.Addr == "" {
			sl.ReportError(s.Redis.Addr, "Redis.Addr", "Addr", "required_for_redis", "")
		}
	}, SessionsConfig{})

	if err := v.Struct(c); err != nil {
		return errs.NewConfigError("invalid configuration", err)
	}

	return nil
}

// IsUserAuthorized applies the allow and block lists. Blocked users are always
// denied; an empty allow list admits everyone else.
func (c *TelegramConfig) IsUserAuthorized(userID int64) bool {
	for _, id := range c.BlockedUserIDs {
		if id == userID {
			return false
		}
	}
	if len(c.AllowedUserIDs) == 0 {
		return true
	}
	for _, id := range c.AllowedUserIDs {
		if id == userID {
			return true
		}
	}

	return false
}
