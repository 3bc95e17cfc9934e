package config

import (
	"errors"
	"fmt"
	"time"
)

// Config 应用配置
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Logging    LoggingConfig    `koanf:"logging"`
	Security   SecurityConfig   `koanf:"security"`
	Discord    DiscordConfig    `koanf:"discord"`
	GameServer GameServerConfig `koanf:"gameserver"`
	SMTP       SMTPConfig       `koanf:"smtp"`
	Storage    StorageConfig    `koanf:"storage"`
	Claim      ClaimConfig      `koanf:"claim"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
}

// DatabaseConfig holds the sqlite file location
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig mirrors logging.Config
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds auth and rate limit settings
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	ClaimRateReqs   int           `koanf:"claim_rate_reqs"`
	ClaimRateWindow time.Duration `koanf:"claim_rate_window"`
}

// DiscordConfig holds chat platform credentials
type DiscordConfig struct {
	APIBaseURL     string        `koanf:"api_base_url"`
	BotToken       string        `koanf:"bot_token"`
	ForumChannelID string        `koanf:"forum_channel_id"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	SiteURL        string        `koanf:"site_url"`
	SyncQueueSize  int           `koanf:"sync_queue_size"`
}

// GameServerConfig points at the FiveM server list API
type GameServerConfig struct {
	BaseURL        string        `koanf:"base_url"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// SMTPConfig holds moderator notification mail settings
type SMTPConfig struct {
	Host          string `koanf:"host"`
	Port          int    `koanf:"port"`
	Username      string `koanf:"username"`
	Password      string `koanf:"password"`
	From          string `koanf:"from"`
	ModeratorAddr string `koanf:"moderator_addr"`
}

// StorageConfig holds the image store location
type StorageConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// ClaimConfig holds listing claim settings
type ClaimConfig struct {
	PinTTL time.Duration `koanf:"pin_ttl"`
}

// Validate checks settings that would make the server unusable
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Security.JWTSecret == "" {
		errs = append(errs, errors.New("security.jwt_secret is required"))
	}
	if c.Discord.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("discord.request_timeout must be positive, got %s", c.Discord.RequestTimeout))
	}
	if c.GameServer.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gameserver.request_timeout must be positive, got %s", c.GameServer.RequestTimeout))
	}
	if c.Claim.PinTTL <= 0 {
		errs = append(errs, fmt.Errorf("claim.pin_ttl must be positive, got %s", c.Claim.PinTTL))
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required unless storage.in_memory is set"))
	}

	return errors.Join(errs...)
}
