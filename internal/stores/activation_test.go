package stores

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLedgerTest(t *testing.T) (*ActivationLedger, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewActivationLedger(rdb, ""), mr
}

func TestMarkOnce(t *testing.T) {
	ledger, mr := newLedgerTest(t)
	ctx := context.Background()

	ok, err := ledger.Mark(ctx, "tid", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first mark: ok=%v err=%v", ok, err)
	}
	ok, err = ledger.Mark(ctx, "tid", time.Minute)
	if err != nil || ok {
		t.Fatalf("second mark: ok=%v err=%v", ok, err)
	}

	if ttl := mr.TTL("aat:tid"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}
}

func TestMarkExpiresWithToken(t *testing.T) {
	ledger, mr := newLedgerTest(t)
	ctx := context.Background()

	if _, err := ledger.Mark(ctx, "tid", 0); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if ttl := mr.TTL("aat:tid"); ttl != time.Second {
		t.Fatalf("expected ttl clamped to 1s, got %s", ttl)
	}
	mr.FastForward(2 * time.Second)

	ok, err := ledger.Mark(ctx, "tid", time.Minute)
	if err != nil || !ok {
		t.Fatalf("mark after expiry: ok=%v err=%v", ok, err)
	}
}

func TestRelease(t *testing.T) {
	ledger, _ := newLedgerTest(t)
	ctx := context.Background()

	if _, err := ledger.Mark(ctx, "tid", time.Minute); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := ledger.Release(ctx, "tid"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err := ledger.Mark(ctx, "tid", time.Minute)
	if err != nil || !ok {
		t.Fatalf("mark after release: ok=%v err=%v", ok, err)
	}
}

func TestConcurrentMarkSingleWinner(t *testing.T) {
	ledger, _ := newLedgerTest(t)
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := ledger.Mark(ctx, "tid", time.Minute); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestMarkRedisDown(t *testing.T) {
	ledger, mr := newLedgerTest(t)
	mr.Close()

	if _, err := ledger.Mark(context.Background(), "tid", time.Minute); !errors.Is(err, ErrActivationRedisUnavailable) {
		t.Fatalf("expected ErrActivationRedisUnavailable, got %v", err)
	}
}
