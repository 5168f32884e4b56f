package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port        string `env:"PORT"        envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"   envDefault:"info"`

	MongoURI string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DBName   string `env:"MONGODB_DB"  envDefault:"danaliph"`

	JWTSecret    string        `env:"JWT_SECRET"   envDefault:"change-me-in-production"`
	SessionTTL   time.Duration `env:"SESSION_TTL"  envDefault:"4h"`
	SiteURL      string        `env:"SITE_URL"     envDefault:"http://localhost:3000"`
	CookieSecure bool          `env:"COOKIE_SECURE"`

	// Cloudflare R2 or any S3 compatible store
	R2Bucket    string `env:"R2_BUCKET"`
	R2Endpoint  string `env:"R2_ENDPOINT"`
	R2Region    string `env:"R2_REGION"            envDefault:"auto"`
	R2AccessKey string `env:"R2_ACCESS_KEY_ID"`
	R2SecretKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2PublicURL string `env:"R2_PUBLIC_URL"`
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB"        envDefault:"50"`

	SMTPHost   string `env:"SMTP_HOST"`
	SMTPPort   int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser   string `env:"SMTP_USER"`
	SMTPPass   string `env:"SMTP_PASS"`
	SMTPFrom   string `env:"SMTP_FROM"`
	AdminEmail string `env:"ADMIN_EMAIL"`

	RedisURL         string        `env:"REDIS_URL"`
	FeaturedCacheTTL time.Duration `env:"FEATURED_CACHE_TTL" envDefault:"2m"`

	CORSOrigins    []string `env:"CORS_ORIGINS"     envSeparator:"," envDefault:"http://localhost:3000"`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS"   envDefault:"1"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	cfg.R2PublicURL = strings.TrimRight(cfg.R2PublicURL, "/")
	return cfg, nil
}

// Validate rejects configurations the server must not start with and logs
// which optional integrations are disabled.
func (c *Config) Validate(logger *slog.Logger) error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" || c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set to a strong secret"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}

	r2 := []string{c.R2Bucket, c.R2Endpoint, c.R2AccessKey, c.R2SecretKey, c.R2PublicURL}
	switch countSet(r2) {
	case 0:
		logger.Warn("R2 storage not configured; uploads are disabled")
	case len(r2):
	default:
		errs = append(errs, errors.New("R2_BUCKET, R2_ENDPOINT, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_PUBLIC_URL must be set together"))
	}

	if c.SMTPHost == "" {
		logger.Warn("SMTP not configured; notifications are dropped")
	} else if c.SMTPFrom == "" && c.SMTPUser == "" {
		errs = append(errs, errors.New("SMTP_FROM or SMTP_USER is required when SMTP_HOST is set"))
	}
	if c.RedisURL == "" {
		logger.Info("REDIS_URL not set; featured list is served uncached")
	}
	return errors.Join(errs...)
}

func (c *Config) BlobConfigured() bool { return c.R2Bucket != "" }

func (c *Config) MailConfigured() bool { return c.SMTPHost != "" }

// MailFrom falls back to the SMTP login when no explicit sender is set.
func (c *Config) MailFrom() string {
	if c.SMTPFrom != "" {
		return c.SMTPFrom
	}
	return c.SMTPUser
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func countSet(vals []string) int {
	n := 0
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}
