package goAccount

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goAccount/cryptox"
	internalaudit "github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/stores"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/otp"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts  AccountStore
	mailer    EmailDispatcher
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the remember-me cache and the
// activation-token ledger.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the persistent account store.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithMailer sets the dispatcher that delivers verification codes.
func (b *Builder) WithMailer(mailer EmailDispatcher) *Builder {
	b.mailer = mailer
	return b
}

// WithAuditSink sets the audit destination. It has no effect unless
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for best-effort failures.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for token timestamps, cookie expiry and status
// changes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled overrides Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms overrides Config.Metrics.EnableLatencyHistograms.
// Build fails if histograms are on while metrics are off.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. Errors from
// configuration problems wrap ErrConfiguration.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, configError("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.accounts == nil {
		return nil, configError("account store required")
	}
	if b.mailer == nil {
		return nil, configError("email dispatcher required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "goaccount")

	// -------- CRYPTO --------
	cipher, err := cryptox.NewCipher(cryptox.Config{
		FixedIV:        cfg.Crypto.FixedIV,
		RequireFullKey: cfg.Crypto.RequireFullKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	activationJWT, err := jwt.NewManager(jwt.Config{
		Secret:        []byte(cfg.Activation.Secret),
		TTL:           cfg.Activation.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Activation.SigningMethod),
		Now:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: activation token: %v", ErrConfiguration, err)
	}

	accessJWT, err := jwt.NewManager(jwt.Config{
		Secret:        []byte(cfg.Access.Secret),
		TTL:           cfg.Access.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Access.SigningMethod),
		Issuer:        cfg.Access.Issuer,
		Leeway:        cfg.Access.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: access token: %v", ErrConfiguration, err)
	}

	issuer, err := otp.NewIssuer(cipher, activationJWT, cfg.Crypto.Secret,
		otp.WithTTL(cfg.Activation.TTL),
		otp.WithCodeLength(cfg.Activation.CodeLength),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	verifier, err := otp.NewVerifier(cipher, activationJWT, cfg.Crypto.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	// -------- PASSWORDS --------
	argon, err := password.NewArgon2(password.Argon2Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	var legacy []password.Scheme
	if cfg.Password.AcceptBcrypt {
		bc, err := password.NewBcrypt(cfg.Password.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		legacy = append(legacy, bc)
	}
	hasher, err := password.NewHasher(argon, legacy...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	// -------- ENGINE --------
	engine := &Engine{
		config:    cfg,
		accounts:  b.accounts,
		mailer:    b.mailer,
		cipher:    cipher,
		issuer:    issuer,
		verifier:  verifier,
		accessJWT: accessJWT,
		passwords: hasher,
		sessions:  session.NewStore(b.redis, cfg.Session.RedisPrefix),
		logger:    logger,
		now:       now,
		audit:     internalaudit.NewDispatcher(internalaudit.Config(cfg.Audit), b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
	}
	if cfg.Activation.SingleUse {
		engine.ledger = stores.NewActivationLedger(b.redis, cfg.Activation.LedgerPrefix)
	}
	if recorder, ok := b.accounts.(SignInRecorder); ok {
		engine.signIns = recorder
	}

	b.built = true

	return engine, nil
}
