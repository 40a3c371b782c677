package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/store/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// ErrUnsupportedDriver is returned by Open for any driver other than
// DriverSQLite and DriverPostgres.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// SQLStore implements goAccount.AccountStore and goAccount.SignInRecorder on
// SQLite or PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Option configures an SQLStore.
type Option func(*SQLStore)

// WithClock overrides time.Now for created_at, updated_at and status times.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects with driver and dsn and applies all pending migrations.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time; also keeps ":memory:" on a single database.
		db.SetMaxOpenConns(1)
	}

	s, err := New(db, driver, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// New wraps an open database without migrating it.
func New(db *sql.DB, driver string, opts ...Option) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("nil database")
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	s := &SQLStore{db: db, driver: driver, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate applies the embedded goose migrations.
func (s *SQLStore) Migrate(ctx context.Context) error {
	dialect := "sqlite3"
	if s.driver == DriverPostgres {
		dialect = "postgres"
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// DB exposes the underlying pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the pool.
func (s *SQLStore) Close() error { return s.db.Close() }

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const accountColumns = `id, first_name, last_name, email, password_hash, role, is_verified,
	is_banned, banned_reason, banned_at, is_disabled, disabled_reason, disabled_at,
	first_login_ip, last_login_ip, created_at, updated_at`

// Create inserts a new account with a random UUID.
func (s *SQLStore) Create(ctx context.Context, in goAccount.AccountInput) (goAccount.Account, error) {
	role := in.Role
	if role == "" {
		role = goAccount.RoleUser
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	account := goAccount.Account{
		ID:           uuid.NewString(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         role,
		IsVerified:   in.IsVerified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := s.rebind(`INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, accountArgs(account)...)
	if err != nil {
		if isUniqueViolation(err) {
			return goAccount.Account{}, goAccount.ErrDuplicateEmail
		}
		return goAccount.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return account, nil
}

// FindByEmail looks up an account by its normalized email.
func (s *SQLStore) FindByEmail(ctx context.Context, email string) (goAccount.Account, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+accountColumns+` FROM accounts WHERE email = ?`), email)
	return scanAccount(row)
}

// FindByID looks up an account by id.
func (s *SQLStore) FindByID(ctx context.Context, id string) (goAccount.Account, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), id)
	return scanAccount(row)
}

// Save overwrites every mutable column and bumps updated_at.
func (s *SQLStore) Save(ctx context.Context, account goAccount.Account) (goAccount.Account, error) {
	account.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	query := s.rebind(`UPDATE accounts SET
		first_name = ?, last_name = ?, email = ?, password_hash = ?, role = ?, is_verified = ?,
		is_banned = ?, banned_reason = ?, banned_at = ?,
		is_disabled = ?, disabled_reason = ?, disabled_at = ?,
		first_login_ip = ?, last_login_ip = ?, updated_at = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		account.FirstName, account.LastName, account.Email, account.PasswordHash, string(account.Role), account.IsVerified,
		account.Status.Banned.IsBanned, account.Status.Banned.Reason, nullMillis(account.Status.Banned.At),
		account.Status.Disabled.IsDisabled, account.Status.Disabled.Reason, nullMillis(account.Status.Disabled.At),
		account.LoginIP.First, account.LoginIP.Last, toMillis(account.UpdatedAt),
		account.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return goAccount.Account{}, goAccount.ErrDuplicateEmail
		}
		return goAccount.Account{}, fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goAccount.Account{}, fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return goAccount.Account{}, goAccount.ErrAccountNotFound
	}
	return s.FindByID(ctx, account.ID)
}

// UpdateStatus writes the ban and disable columns only.
func (s *SQLStore) UpdateStatus(ctx context.Context, id string, status goAccount.AccountStatus) (goAccount.Account, error) {
	err := s.updateRow(ctx, "update account status", `UPDATE accounts SET
		is_banned = ?, banned_reason = ?, banned_at = ?,
		is_disabled = ?, disabled_reason = ?, disabled_at = ?, updated_at = ?
		WHERE id = ?`,
		status.Banned.IsBanned, status.Banned.Reason, nullMillis(status.Banned.At),
		status.Disabled.IsDisabled, status.Disabled.Reason, nullMillis(status.Disabled.At),
		toMillis(s.now()), id,
	)
	if err != nil {
		return goAccount.Account{}, err
	}
	return s.FindByID(ctx, id)
}

// UpdatePasswordHash replaces the stored password hash.
func (s *SQLStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.updateRow(ctx, "update password hash",
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(s.now()), id,
	)
}

// RecordLogin sets last_login_ip, and first_login_ip when it is still empty.
func (s *SQLStore) RecordLogin(ctx context.Context, id, ip string) error {
	return s.updateRow(ctx, "record login ip", `UPDATE accounts SET
		first_login_ip = CASE WHEN first_login_ip = '' THEN ? ELSE first_login_ip END,
		last_login_ip = ?, updated_at = ?
		WHERE id = ?`,
		ip, ip, toMillis(s.now()), id,
	)
}

func (s *SQLStore) updateRow(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return goAccount.ErrAccountNotFound
	}
	return nil
}

// RecordSignIn appends one entry to the account's sign-in history.
func (s *SQLStore) RecordSignIn(ctx context.Context, accountID string, d goAccount.SignInDetail) error {
	at := d.SignedInAt
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO sign_in_details (id, account_id, ip, user_agent, signed_in_at) VALUES (?, ?, ?, ?, ?)`),
		uuid.NewString(), accountID, d.IP, d.UserAgent, toMillis(at),
	)
	if err != nil {
		return fmt.Errorf("insert sign-in detail: %w", err)
	}
	return nil
}

// SignIns returns up to limit history entries, newest first. A limit <= 0
// returns all of them.
func (s *SQLStore) SignIns(ctx context.Context, accountID string, limit int) ([]goAccount.SignInDetail, error) {
	query := `SELECT ip, user_agent, signed_in_at FROM sign_in_details WHERE account_id = ? ORDER BY signed_in_at DESC, id`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query sign-in details: %w", err)
	}
	defer rows.Close()

	var out []goAccount.SignInDetail
	for rows.Next() {
		var d goAccount.SignInDetail
		var at int64
		if err := rows.Scan(&d.IP, &d.UserAgent, &at); err != nil {
			return nil, fmt.Errorf("scan sign-in detail: %w", err)
		}
		d.SignedInAt = fromMillis(at)
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (goAccount.Account, error) {
	var (
		a                   goAccount.Account
		role                string
		bannedAt, disableAt sql.NullInt64
		createdAt, updated  int64
	)
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PasswordHash, &role, &a.IsVerified,
		&a.Status.Banned.IsBanned, &a.Status.Banned.Reason, &bannedAt,
		&a.Status.Disabled.IsDisabled, &a.Status.Disabled.Reason, &disableAt,
		&a.LoginIP.First, &a.LoginIP.Last, &createdAt, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goAccount.Account{}, goAccount.ErrAccountNotFound
		}
		return goAccount.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Role = goAccount.Role(role)
	if bannedAt.Valid {
		a.Status.Banned.At = fromMillis(bannedAt.Int64)
	}
	if disableAt.Valid {
		a.Status.Disabled.At = fromMillis(disableAt.Int64)
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}

func accountArgs(a goAccount.Account) []any {
	return []any{
		a.ID, a.FirstName, a.LastName, a.Email, a.PasswordHash, string(a.Role), a.IsVerified,
		a.Status.Banned.IsBanned, a.Status.Banned.Reason, nullMillis(a.Status.Banned.At),
		a.Status.Disabled.IsDisabled, a.Status.Disabled.Reason, nullMillis(a.Status.Disabled.At),
		a.LoginIP.First, a.LoginIP.Last, toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(t), Valid: true}
}

// rebind rewrites ? placeholders to $N for PostgreSQL. Queries in this file
// never contain a literal question mark.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var (
	_ goAccount.AccountStore   = (*SQLStore)(nil)
	_ goAccount.SignInRecorder = (*SQLStore)(nil)
)
