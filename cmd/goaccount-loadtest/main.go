// Command goaccount-loadtest measures sign-in and profile latency against a
// real engine. Accounts live in a throwaway SQLite file; Redis is miniredis
// unless -redis-addr or REDIS_ADDR is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store"
)

const seedPassword = "correct-horse"

type nopMailer struct{}

func (nopMailer) SendVerificationCode(context.Context, goAccount.VerificationMessage) error {
	return nil
}

func main() {
	var (
		accounts    = flag.Int("accounts", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 5000, "operations per phase (signin + profile)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		argonMemory = flag.Uint("argon-memory", 8*1024, "argon2id memory in KB for seeded hashes")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}
	if err := run(*accounts, *concurrency, *ops, *redisAddr, uint32(*argonMemory)); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
}

func run(accounts, concurrency, ops int, redisAddr string, argonMemory uint32) error {
	ctx := context.Background()

	addr := redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("starting miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, PoolSize: concurrency})
	defer rdb.Close()

	dir, err := os.MkdirTemp("", "goaccount-loadtest")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(ctx, store.DriverSQLite, filepath.Join(dir, "accounts.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	cfg := goAccount.DefaultConfig()
	cfg.Crypto.Secret = "loadtest-crypto-secret-0123456789"
	cfg.Activation.Secret = "loadtest-activation-secret"
	cfg.Access.Secret = "loadtest-access-secret"
	cfg.Password.Memory = argonMemory
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goAccount.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(st).
		WithMailer(nopMailer{}).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	argon, err := password.NewArgon2(password.Argon2Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return err
	}
	hash, err := argon.Hash(seedPassword)
	if err != nil {
		return err
	}

	fmt.Printf("seeding %d accounts...\n", accounts)
	startSeed := time.Now()
	emails := make([]string, accounts)
	for i := range emails {
		emails[i] = fmt.Sprintf("user-%d@loadtest.local", i)
		if _, err := st.Create(ctx, goAccount.AccountInput{
			FirstName:    "Load",
			LastName:     fmt.Sprintf("Test%d", i),
			Email:        emails[i],
			PasswordHash: hash,
			Role:         goAccount.RoleUser,
			IsVerified:   true,
		}); err != nil {
			return fmt.Errorf("seeding account %d: %w", i, err)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	var ids sync.Map
	signinStats := runPhase(ops, concurrency, func(r *rand.Rand) error {
		email := emails[r.IntN(len(emails))]
		sess, err := engine.Signin(ctx, goAccount.SigninRequest{Email: email, Password: seedPassword, RememberMe: true})
		if err != nil {
			return err
		}
		ids.Store(sess.Profile.ID, struct{}{})
		return nil
	})

	var signedIn []string
	ids.Range(func(k, _ any) bool {
		signedIn = append(signedIn, k.(string))
		return true
	})
	if len(signedIn) == 0 {
		return fmt.Errorf("no successful sign-ins")
	}
	profileStats := runPhase(ops, concurrency, func(r *rand.Rand) error {
		_, err := engine.Profile(ctx, signedIn[r.IntN(len(signedIn))])
		return err
	})

	fmt.Println("---- results ----")
	printStats("signin", signinStats)
	printStats("profile", profileStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: signin_success=%d signin_failure=%d sessions_remembered=%d\n",
		snap.Counters[goAccount.MetricSigninSuccess],
		snap.Counters[goAccount.MetricSigninFailure],
		snap.Counters[goAccount.MetricSessionRemembered],
	)
	return nil
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := range concurrency {
		wg.Go(func() {
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(w)*7919))
			for {
				if int(cursor.Add(1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					failures.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures.Load())
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	slices.Sort(samples)
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
