package goAccount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type memStore struct {
	mu      sync.Mutex
	seq     int
	byID    map[string]Account
	byEmail map[string]string
	details map[string][]SignInDetail
	now     func() time.Time

	failFind error
	failSave error
	// afterFindByEmail runs once the lookup has returned its copy.
	afterFindByEmail func(Account)
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		byID:    map[string]Account{},
		byEmail: map[string]string{},
		details: map[string][]SignInDetail{},
		now:     now,
	}
}

func (s *memStore) FindByEmail(_ context.Context, email string) (Account, error) {
	s.mu.Lock()
	if s.failFind != nil {
		s.mu.Unlock()
		return Account{}, s.failFind
	}
	id, ok := s.byEmail[strings.ToLower(email)]
	a := s.byID[id]
	hook := s.afterFindByEmail
	s.mu.Unlock()
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	if hook != nil {
		hook(a)
	}
	return a, nil
}

func (s *memStore) FindByID(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (s *memStore) Create(_ context.Context, in AccountInput) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[in.Email]; ok {
		return Account{}, ErrDuplicateEmail
	}
	s.seq++
	now := s.now().UTC()
	a := Account{
		ID:           fmt.Sprintf("acc-%d", s.seq),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		IsVerified:   in.IsVerified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[a.ID] = a
	s.byEmail[a.Email] = a.ID
	return a, nil
}

func (s *memStore) Save(_ context.Context, a Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return Account{}, s.failSave
	}
	if _, ok := s.byID[a.ID]; !ok {
		return Account{}, ErrAccountNotFound
	}
	a.UpdatedAt = s.now().UTC()
	s.byID[a.ID] = a
	return a, nil
}

func (s *memStore) update(id string, apply func(*Account)) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return Account{}, s.failSave
	}
	a, ok := s.byID[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	apply(&a)
	a.UpdatedAt = s.now().UTC()
	s.byID[id] = a
	return a, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id string, status AccountStatus) (Account, error) {
	return s.update(id, func(a *Account) { a.Status = status })
}

func (s *memStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	_, err := s.update(id, func(a *Account) { a.PasswordHash = hash })
	return err
}

func (s *memStore) RecordLogin(_ context.Context, id, ip string) error {
	_, err := s.update(id, func(a *Account) {
		if a.LoginIP.First == "" {
			a.LoginIP.First = ip
		}
		a.LoginIP.Last = ip
	})
	return err
}

func (s *memStore) RecordSignIn(_ context.Context, id string, d SignInDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[id] = append(s.details[id], d)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type captureMailer struct {
	mu   sync.Mutex
	sent []VerificationMessage
	err  error
}

func (m *captureMailer) SendVerificationCode(_ context.Context, msg VerificationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last(t *testing.T) VerificationMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no verification message sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *captureMailer) codeFor(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == email {
			return m.sent[i].Code
		}
	}
	t.Fatalf("no code sent to %s", email)
	return ""
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type engineFixture struct {
	engine *Engine
	store  *memStore
	mailer *captureMailer
	clock  *testClock
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
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
	return mr, rdb
}

func engineTestConfig() Config {
	cfg := testConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	return cfg
}

func newEngineFixture(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *engineFixture {
	t.Helper()

	cfg := engineTestConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	mr, rdb := newTestRedis(t)
	f := &engineFixture{
		store:  newMemStore(clock.Now),
		mailer: &captureMailer{},
		clock:  clock,
		mr:     mr,
		rdb:    rdb,
	}

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(f.store).
		WithMailer(f.mailer).
		WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	f.engine = engine
	return f
}

func (f *engineFixture) signupAndVerify(t *testing.T, email, pw string) Account {
	t.Helper()
	ctx := context.Background()
	res, err := f.engine.Signup(ctx, SignupRequest{FirstName: "ada", LastName: "lovelace", Email: email, Password: pw})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	acc, err := f.engine.VerifyAccount(ctx, res.Token, f.mailer.codeFor(t, strings.ToLower(email)))
	if err != nil {
		t.Fatalf("VerifyAccount failed: %v", err)
	}
	return acc
}

var errBoom = errors.New("boom")
