package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/mailer"
	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Settings is the process configuration of goaccountd.
type Settings struct {
	Server   ServerSettings   `toml:"server"`
	Security SecuritySettings `toml:"security"`
	Redis    RedisSettings    `toml:"redis"`
	Database DatabaseSettings `toml:"database"`
	Email    EmailSettings    `toml:"email"`
	Audit    AuditSettings    `toml:"audit"`
}

type ServerSettings struct {
	Port         int      `toml:"port" env:"PORT"`
	Env          string   `toml:"env" env:"NODE_ENV"`
	LogLevel     string   `toml:"log_level" env:"LOG_LEVEL"`
	CookieDomain string   `toml:"cookie_domain" env:"COOKIE_DOMAIN"`
	ShutdownWait Duration `toml:"shutdown_wait" env:"SHUTDOWN_WAIT"`
}

type SecuritySettings struct {
	ActivationSecret string   `toml:"activation_secret" env:"ACTIVATION_SECRET"`
	CryptoSecret     string   `toml:"crypto_secret" env:"CRYPTO_SECRET"`
	FixedIV          string   `toml:"fixed_iv" env:"BYTE_KEY_16"`
	AccessSecret     string   `toml:"access_secret" env:"ACCESS_TOKEN"`
	AccessTTL        Duration `toml:"access_ttl" env:"ACCESS_TOKEN_EXPIRE"`
	ActivationTTL    Duration `toml:"activation_ttl" env:"ACTIVATION_TOKEN_EXPIRE"`
	RememberMeMaxAge Duration `toml:"remember_me_max_age" env:"REMEMBER_ME_MAX_AGE"`
}

type RedisSettings struct {
	URL    string `toml:"url" env:"REDIS_URL"`
	Prefix string `toml:"prefix" env:"REDIS_PREFIX"`
}

type DatabaseSettings struct {
	Driver string `toml:"driver" env:"DATABASE_DRIVER"`
	URL    string `toml:"url" env:"DATABASE_URL"`
}

type EmailSettings struct {
	Host     string `toml:"host" env:"EMAIL_HOST"`
	Port     int    `toml:"port" env:"EMAIL_PORT"`
	Username string `toml:"username" env:"EMAIL_USERNAME"`
	Password string `toml:"password" env:"EMAIL_PASSWORD"`
	From     string `toml:"from" env:"EMAIL_FROM"`
	Subject  string `toml:"subject" env:"EMAIL_SUBJECT"`
}

type AuditSettings struct {
	Enabled bool `toml:"enabled" env:"AUDIT_ENABLED"`
}

// Defaults returns the settings used before the file and environment are
// applied.
func Defaults() Settings {
	return Settings{
		Server: ServerSettings{
			Port:         8000,
			Env:          "development",
			LogLevel:     "info",
			ShutdownWait: Duration(10 * time.Second),
		},
		Security: SecuritySettings{
			AccessTTL:        Duration(5 * time.Minute),
			ActivationTTL:    Duration(3 * time.Minute),
			RememberMeMaxAge: Duration(7 * 24 * time.Hour),
		},
		Redis: RedisSettings{
			URL: "redis://localhost:6379/0",
		},
		Database: DatabaseSettings{
			Driver: "sqlite",
			URL:    "goaccount.db",
		},
		Email: EmailSettings{
			Port: 587,
		},
	}
}

// Load applies defaults, then the TOML file at path (skipped when empty),
// then environment variables, and validates the result.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("reading config file: %w", err)
		}
		if _, err := toml.Decode(string(data), &s); err != nil {
			return Settings{}, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("validating config: %w", err)
	}
	return s, nil
}

// Production reports whether the server runs with production settings.
func (s Settings) Production() bool {
	return strings.EqualFold(s.Server.Env, "production")
}

// MailerEnabled reports whether SMTP delivery is configured. Without it the
// server logs codes instead, which Validate only allows outside production.
func (s Settings) MailerEnabled() bool {
	return s.Email.Host != ""
}

// Validate checks required secrets and the shape of every section.
func (s Settings) Validate() error {
	err := validation.Errors{
		"server": validation.ValidateStruct(&s.Server,
			validation.Field(&s.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			validation.Field(&s.Server.Env, validation.Required),
			validation.Field(&s.Server.LogLevel, validation.In("debug", "info", "warn", "error")),
		),
		"security": validation.ValidateStruct(&s.Security,
			validation.Field(&s.Security.ActivationSecret, validation.Required),
			validation.Field(&s.Security.CryptoSecret, validation.Required),
			validation.Field(&s.Security.AccessSecret, validation.Required),
			validation.Field(&s.Security.AccessTTL, validation.Required),
			validation.Field(&s.Security.ActivationTTL, validation.Required),
		),
		"redis": validation.ValidateStruct(&s.Redis,
			validation.Field(&s.Redis.URL, validation.Required),
		),
		"database": validation.ValidateStruct(&s.Database,
			validation.Field(&s.Database.Driver, validation.Required, validation.In("sqlite", "pgx")),
			validation.Field(&s.Database.URL, validation.Required),
		),
		"email": s.validateEmail(),
	}.Filter()
	if err != nil {
		return err
	}
	if s.Production() && !s.MailerEnabled() {
		return errors.New("email: host is required in production")
	}
	return nil
}

func (s Settings) validateEmail() error {
	if !s.MailerEnabled() {
		return nil
	}
	return validation.ValidateStruct(&s.Email,
		validation.Field(&s.Email.From, validation.Required, is.Email),
		validation.Field(&s.Email.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// EngineConfig maps the settings onto goAccount.Config.
func (s Settings) EngineConfig() goAccount.Config {
	cfg := goAccount.DefaultConfig()

	cfg.Crypto.Secret = s.Security.CryptoSecret
	cfg.Crypto.FixedIV = s.Security.FixedIV

	cfg.Activation.Secret = s.Security.ActivationSecret
	cfg.Activation.TTL = s.Security.ActivationTTL.D()

	cfg.Access.Secret = s.Security.AccessSecret
	cfg.Access.TTL = s.Security.AccessTTL.D()

	cfg.Cookie.Domain = s.Server.CookieDomain
	cfg.Cookie.Secure = s.Production()
	cfg.Cookie.SameSite = http.SameSiteNoneMode
	if !cfg.Cookie.Secure {
		cfg.Cookie.SameSite = http.SameSiteLaxMode
	}
	cfg.Cookie.RememberMeMaxAge = s.Security.RememberMeMaxAge.D()

	cfg.Session.RedisPrefix = s.Redis.Prefix

	cfg.Audit.Enabled = s.Audit.Enabled
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

// MailerConfig maps the email section onto mailer.Config. SMTP delivery
// requires STARTTLS in production.
func (s Settings) MailerConfig() mailer.Config {
	return mailer.Config{
		Host:       s.Email.Host,
		Port:       s.Email.Port,
		Username:   s.Email.Username,
		Password:   s.Email.Password,
		From:       s.Email.From,
		Subject:    s.Email.Subject,
		RequireTLS: s.Production(),
	}
}

// SlogLevel returns the configured log level, defaulting to Info.
func (s Settings) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Server.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
