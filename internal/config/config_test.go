package config

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goaccount.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("ACTIVATION_SECRET", "activation-secret")
	t.Setenv("CRYPTO_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ACCESS_TOKEN", "access-secret")
}

func TestLoadDefaultsWithEnvSecrets(t *testing.T) {
	setSecrets(t)

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, s.Server.Port)
	assert.Equal(t, "development", s.Server.Env)
	assert.Equal(t, "sqlite", s.Database.Driver)
	assert.Equal(t, 5*time.Minute, s.Security.AccessTTL.D())
	assert.Equal(t, 3*time.Minute, s.Security.ActivationTTL.D())
	assert.False(t, s.Production())
	assert.False(t, s.MailerEnabled())
}

func TestLoadMissingSecrets(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security")
}

func TestLoadFileThenEnv(t *testing.T) {
	setSecrets(t)
	path := writeTOML(t, `
[server]
port = 9000
env = "staging"
log_level = "debug"

[security]
access_ttl = "15m"
remember_me_max_age = "14d"

[redis]
url = "redis://cache:6379/2"
prefix = "acct"

[database]
driver = "pgx"
url = "postgres://localhost/accounts"

[email]
host = "smtp.example.com"
port = 2525
from = "noreply@example.com"
`)
	t.Setenv("PORT", "9100")
	t.Setenv("ACCESS_TOKEN_EXPIRE", "2 hours")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, s.Server.Port, "env wins over file")
	assert.Equal(t, "staging", s.Server.Env)
	assert.Equal(t, "debug", s.Server.LogLevel)
	assert.Equal(t, 2*time.Hour, s.Security.AccessTTL.D())
	assert.Equal(t, 14*24*time.Hour, s.Security.RememberMeMaxAge.D())
	assert.Equal(t, "acct", s.Redis.Prefix)
	assert.Equal(t, "pgx", s.Database.Driver)
	assert.Equal(t, 2525, s.Email.Port)
	assert.True(t, s.MailerEnabled())
}

func TestLoadBadFile(t *testing.T) {
	setSecrets(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	_, err = Load(writeTOML(t, "[server\nport = "))
	require.Error(t, err)
}

func TestLoadBadDuration(t *testing.T) {
	setSecrets(t)
	t.Setenv("ACCESS_TOKEN_EXPIRE", "soon")

	_, err := Load("")
	require.Error(t, err)
}

func TestValidateRules(t *testing.T) {
	base := Defaults()
	base.Security.ActivationSecret = "a"
	base.Security.CryptoSecret = "c"
	base.Security.AccessSecret = "x"
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"port out of range", func(s *Settings) { s.Server.Port = 70000 }},
		{"unknown log level", func(s *Settings) { s.Server.LogLevel = "trace" }},
		{"unknown driver", func(s *Settings) { s.Database.Driver = "mysql" }},
		{"empty database url", func(s *Settings) { s.Database.URL = "" }},
		{"empty redis url", func(s *Settings) { s.Redis.URL = "" }},
		{"zero access ttl", func(s *Settings) { s.Security.AccessTTL = 0 }},
		{"mailer without from", func(s *Settings) { s.Email.Host = "smtp.example.com" }},
		{"mailer with bad from", func(s *Settings) {
			s.Email.Host = "smtp.example.com"
			s.Email.From = "not-an-address"
		}},
		{"production without mailer", func(s *Settings) { s.Server.Env = "production" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestEngineConfig(t *testing.T) {
	s := Defaults()
	s.Security.ActivationSecret = "activation-secret"
	s.Security.CryptoSecret = "crypto-secret"
	s.Security.FixedIV = "0123456789abcdef"
	s.Security.AccessSecret = "access-secret"
	s.Security.AccessTTL = Duration(10 * time.Minute)
	s.Server.CookieDomain = "example.com"
	s.Redis.Prefix = "acct"

	cfg := s.EngineConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "crypto-secret", cfg.Crypto.Secret)
	assert.Equal(t, "0123456789abcdef", cfg.Crypto.FixedIV)
	assert.Equal(t, 10*time.Minute, cfg.Access.TTL)
	assert.Equal(t, 3*time.Minute, cfg.Activation.TTL)
	assert.Equal(t, "example.com", cfg.Cookie.Domain)
	assert.False(t, cfg.Cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cfg.Cookie.SameSite)
	assert.Equal(t, "acct", cfg.Session.RedisPrefix)
	assert.True(t, cfg.Metrics.Enabled)

	s.Server.Env = "production"
	cfg = s.EngineConfig()
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, cfg.Cookie.SameSite)
}

func TestEngineConfigMissingSecretFailsEngineValidation(t *testing.T) {
	cfg := Defaults().EngineConfig()
	err := cfg.Validate()
	assert.True(t, errors.Is(err, goAccount.ErrConfiguration))
}

func TestMailerConfigAndLevel(t *testing.T) {
	s := Defaults()
	s.Email.Host = "smtp.example.com"
	s.Email.From = "noreply@example.com"
	s.Email.Username = "mailer"

	mc := s.MailerConfig()
	assert.Equal(t, "smtp.example.com", mc.Host)
	assert.Equal(t, 587, mc.Port)
	assert.Equal(t, "mailer", mc.Username)
	assert.False(t, mc.RequireTLS)

	s.Server.Env = "production"
	assert.True(t, s.MailerConfig().RequireTLS)

	assert.Equal(t, slog.LevelInfo, s.SlogLevel())
	s.Server.LogLevel = "debug"
	assert.Equal(t, slog.LevelDebug, s.SlogLevel())
	s.Server.LogLevel = "loud"
	assert.Equal(t, slog.LevelInfo, s.SlogLevel())
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5m", 5 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"100", 100 * time.Millisecond},
		{"7d", 7 * 24 * time.Hour},
		{"2 hours", 2 * time.Hour},
		{"1.5h", 90 * time.Minute},
		{"30 secs", 30 * time.Second},
		{"1w", 7 * 24 * time.Hour},
		{"250ms", 250 * time.Millisecond},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "soon", "5 fortnights"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}
