// Command goaccountd serves the account signup, verification and sign-in API.
//
// Settings come from an optional TOML file (-config or GOACCOUNT_CONFIG)
// overlaid by environment variables; see internal/config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/httpapi"
	"github.com/MrEthical07/goAccount/internal/config"
	"github.com/MrEthical07/goAccount/mailer"
	"github.com/MrEthical07/goAccount/metrics/export/prometheus"
	"github.com/MrEthical07/goAccount/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("GOACCOUNT_CONFIG"), "path to a TOML config file")
	trustedProxies := flag.Int("trusted-proxies", 1, "number of reverse proxies in front of the server")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *trustedProxies); err != nil {
		fmt.Fprintf(os.Stderr, "goaccountd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, trustedProxies int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	accounts, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("opening account store: %w", err)
	}
	defer accounts.Close()

	dispatcher, err := newDispatcher(cfg, logger)
	if err != nil {
		return err
	}

	builder := goAccount.New().
		WithConfig(cfg.EngineConfig()).
		WithRedis(rdb).
		WithAccountStore(accounts).
		WithMailer(dispatcher).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(goAccount.NewSlogSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer engine.Close()

	engineCfg := engine.Config()
	for _, w := range engineCfg.Lint() {
		logger.Warn("config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	if err := engine.Ping(ctx); err != nil {
		logger.Warn("redis not reachable at startup", "error", err)
	}

	srv, err := httpapi.New(engine,
		httpapi.WithLogger(logger.With("component", "httpapi")),
		httpapi.WithTrustedProxies(trustedProxies),
		httpapi.WithMetricsHandler(prometheus.NewExporter(engine).Handler()),
		httpapi.WithSignInHistory(accounts),
		httpapi.WithShutdownTimeout(cfg.Server.ShutdownWait.D()),
	)
	if err != nil {
		return err
	}

	logger.Info("starting goaccountd",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"database", cfg.Database.Driver,
		"mailer", cfg.MailerEnabled(),
	)
	return srv.Run(ctx, ":"+strconv.Itoa(cfg.Server.Port))
}

func setupLogger(cfg config.Settings) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Production() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func newDispatcher(cfg config.Settings, logger *slog.Logger) (goAccount.EmailDispatcher, error) {
	if !cfg.MailerEnabled() {
		logger.Warn("EMAIL_HOST not set, verification codes are written to the log")
		return mailer.NewLogDispatcher(logger), nil
	}
	d, err := mailer.NewSMTPDispatcher(cfg.MailerConfig())
	if err != nil {
		return nil, fmt.Errorf("configuring mailer: %w", err)
	}
	return d, nil
}
