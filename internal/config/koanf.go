package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces environment overrides: MLOMAP_DISCORD_BOT_TOKEN -> discord.bot_token
const EnvPrefix = "MLOMAP_"

// ConfigPathEnvVar overrides the config file location
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mlomap/config.yaml",
}

// legacyEnv keeps the short variable names used by earlier deployments
var legacyEnv = map[string]string{
	"PORT":              "server.addr",
	"DB_PATH":           "database.path",
	"JWT_SECRET":        "security.jwt_secret",
	"DISCORD_BOT_TOKEN": "discord.bot_token",
	"LOG_LEVEL":         "logging.level",
	"LOG_FORMAT":        "logging.format",
}

var sections = []string{
	"server", "database", "logging", "security", "discord", "gameserver", "smtp", "storage", "claim",
}

// Default returns the built-in configuration before any file or env layer
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			MaxUploadBytes:  5 << 20,
		},
		Database: DatabaseConfig{
			Path: "./data/mlomap.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			TokenTTL:        24 * time.Hour,
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			ClaimRateReqs:   5,
			ClaimRateWindow: 10 * time.Minute,
		},
		Discord: DiscordConfig{
			APIBaseURL:     "https://discord.com/api/v10",
			RequestTimeout: 5 * time.Second,
			SyncQueueSize:  64,
		},
		GameServer: GameServerConfig{
			BaseURL:        "https://servers-frontend.fivem.net",
			RequestTimeout: 5 * time.Second,
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		Storage: StorageConfig{
			Path: "./data/objects",
		},
		Claim: ClaimConfig{
			PinTTL: 10 * time.Minute,
		},
	}
}

// Load 加载配置: defaults, then an optional YAML file, then environment variables
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// PORT=8080 style values carry no host part
	if cfg.Server.Addr != "" && !strings.Contains(cfg.Server.Addr, ":") {
		cfg.Server.Addr = ":" + cfg.Server.Addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps an environment variable to a koanf path, or "" to skip it.
//
//	MLOMAP_SERVER_ADDR        -> server.addr
//	MLOMAP_CLAIM_PIN_TTL      -> claim.pin_ttl
//	JWT_SECRET                -> security.jwt_secret
func envTransformFunc(key string) string {
	if path, ok := legacyEnv[key]; ok {
		return path
	}

	if !strings.HasPrefix(key, EnvPrefix) {
		return ""
	}
	rest := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	for _, section := range sections {
		if strings.HasPrefix(rest, section+"_") {
			return section + "." + strings.TrimPrefix(rest, section+"_")
		}
	}

	return ""
}
