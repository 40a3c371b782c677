package goAccount

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/domain"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Role is the stored account role. It is a plain label, not a permission set.
type Role = domain.Role

const (
	// RoleUser is assigned to every account created by verification.
	RoleUser = domain.RoleUser
	// RoleAdmin may call the account status routes.
	RoleAdmin = domain.RoleAdmin
)

// BanState is the ban half of AccountStatus.
type BanState = domain.BanState

// DisableState is the disable half of AccountStatus.
type DisableState = domain.DisableState

// AccountStatus is always fully populated; the zero value is an active account.
type AccountStatus = domain.AccountStatus

// LoginIP records the first and most recent sign-in addresses.
type LoginIP = domain.LoginIP

// Account is the persisted account record.
type Account = domain.Account

// Profile is the public view of an Account.
type Profile = domain.Profile

// SignInDetail is one entry of an account's sign-in history.
type SignInDetail = domain.SignInDetail

// PendingRegistration is the signup payload carried inside the activation token.
type PendingRegistration = domain.PendingRegistration

// AccountInput is passed to AccountStore.Create.
type AccountInput = domain.AccountInput

// SignupRequest is the input of Engine.Signup.
type SignupRequest struct {
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Validate checks required fields and the email format. Surrounding
// whitespace is ignored; Signup trims it before use.
func (r SignupRequest) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// SignupResult carries the activation token handed back to the client.
type SignupResult struct {
	Token     string
	ExpiresAt time.Time
}

// VerifyRequest is the input of Engine.VerifyAccount.
type VerifyRequest struct {
	ActivationToken string `json:"activationToken"`
	Code            string `json:"otp"`
}

// Validate checks that both the token and the code are present.
func (r VerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ActivationToken, validation.Required),
		validation.Field(&r.Code, validation.Required),
	)
}

// SigninRequest is the input of Engine.Signin.
type SigninRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// Validate checks that credentials are present.
func (r SigninRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Session is the result of a successful sign-in.
type Session = domain.Session

// AccountStore persists accounts.
//
// FindByEmail and FindByID return ErrAccountNotFound on a miss. Create must
// enforce email uniqueness atomically and return ErrDuplicateEmail on conflict.
// The Update and Record methods write only the columns they name; Save
// overwrites the whole record.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, in AccountInput) (Account, error)
	Save(ctx context.Context, account Account) (Account, error)
	// UpdateStatus replaces the ban and disable state and returns the stored account.
	UpdateStatus(ctx context.Context, id string, status AccountStatus) (Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	// RecordLogin sets the last login IP, and the first one when it is unset.
	RecordLogin(ctx context.Context, id, ip string) error
}

// SignInRecorder is implemented by stores that keep sign-in history.
type SignInRecorder interface {
	RecordSignIn(ctx context.Context, accountID string, detail SignInDetail) error
}

// VerificationMessage is everything a dispatcher needs to deliver a code.
type VerificationMessage = domain.VerificationMessage

// EmailDispatcher delivers verification codes out of band.
type EmailDispatcher interface {
	SendVerificationCode(ctx context.Context, msg VerificationMessage) error
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives AuditEvent values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based AuditSink.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink forwards events to a slog.Logger.
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a SlogSink writing to logger at Info level.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
