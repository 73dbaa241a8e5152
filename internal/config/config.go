package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string       `yaml:"discord_token"`
	DatabasePath  string       `yaml:"database_path"`
	LogLevel      string       `yaml:"log_level"`
	OwnerID       string       `yaml:"owner_id"`
	Notifications NotifyConfig `yaml:"notifications"`
	Web           WebConfig    `yaml:"web"`
}

// NotifyConfig controls the embeds and direct messages the bot sends
// when a moderation decision fires.
type NotifyConfig struct {
	OwnerDMEnabled  bool        `yaml:"owner_dm_enabled"`
	TransientSecs   int         `yaml:"transient_secs"`
	DefaultLogColor int         `yaml:"default_log_color"`
	EmbedColors     EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

// WebConfig is the admin HTTP API. Disabled by default; the bot runs
// fine without it.
type WebConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr"`
	AdminKey     string `yaml:"admin_key"`
	JWTSecret    string `yaml:"jwt_secret"`
	AllowOrigins string `yaml:"allow_origins"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/warden.db",
		LogLevel:     "info",
		Notifications: NotifyConfig{
			OwnerDMEnabled:  true,
			TransientSecs:   5,
			DefaultLogColor: 0x5865F2,
			EmbedColors: EmbedColors{
				Action:  0xF59E0B,
				Warning: 0xEF4444,
				Error:   0xF97316,
			},
		},
		Web: WebConfig{
			Enabled:      false,
			Addr:         ":8090",
			AllowOrigins: "*",
		},
	}
}

// Load reads config.yaml (or CONFIG_PATH) over the defaults, then lets
// environment variables override both. A .env file is folded into the
// environment first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.Web.Enabled {
		if cfg.Web.AdminKey == "" {
			return Config{}, errors.New("WEB_ADMIN_KEY is required when the web API is enabled")
		}
		if cfg.Web.JWTSecret == "" {
			return Config{}, errors.New("WEB_JWT_SECRET is required when the web API is enabled")
		}
	}
	if cfg.Notifications.TransientSecs <= 0 {
		cfg.Notifications.TransientSecs = 5
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.OwnerID = envString("OWNER_ID", cfg.OwnerID)
	cfg.Notifications.OwnerDMEnabled = envBool("OWNER_DM_ENABLED", cfg.Notifications.OwnerDMEnabled)
	cfg.Notifications.TransientSecs = envInt("TRANSIENT_SECS", cfg.Notifications.TransientSecs)
	cfg.Notifications.DefaultLogColor = envInt("DEFAULT_LOG_COLOR", cfg.Notifications.DefaultLogColor)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
	cfg.Web.Enabled = envBool("WEB_ENABLED", cfg.Web.Enabled)
	cfg.Web.Addr = envString("WEB_ADDR", cfg.Web.Addr)
	cfg.Web.AdminKey = envString("WEB_ADMIN_KEY", cfg.Web.AdminKey)
	cfg.Web.JWTSecret = envString("WEB_JWT_SECRET", cfg.Web.JWTSecret)
	cfg.Web.AllowOrigins = envString("WEB_ALLOW_ORIGINS", cfg.Web.AllowOrigins)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
