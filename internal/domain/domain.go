// Package domain holds the account and session value types shared by the
// root package and internal/flows. The root package re-exports every type
// here under the same name.
package domain

import (
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/cryptox"
)

// Role is the stored account role. It is a plain label, not a permission set.
type Role string

const (
	// RoleUser is assigned to every account created by verification.
	RoleUser Role = "user"
	// RoleAdmin may call the account status routes.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// BanState is the ban half of AccountStatus.
type BanState struct {
	IsBanned bool      `json:"isBanned"`
	Reason   string    `json:"bannedReason"`
	At       time.Time `json:"bannedAt"`
}

// DisableState is the disable half of AccountStatus.
type DisableState struct {
	IsDisabled bool      `json:"isAccountDisabled"`
	Reason     string    `json:"disabledReason"`
	At         time.Time `json:"disabledAt"`
}

// AccountStatus is always fully populated; the zero value is an active account.
type AccountStatus struct {
	Banned   BanState     `json:"banned"`
	Disabled DisableState `json:"disabled"`
}

// Active reports whether the account may sign in.
func (s AccountStatus) Active() bool {
	return !s.Banned.IsBanned && !s.Disabled.IsDisabled
}

// LoginIP records the first and most recent sign-in addresses.
type LoginIP struct {
	First string `json:"firstLoginIp"`
	Last  string `json:"lastLoginIp"`
}

// Account is the persisted account record.
type Account struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	IsVerified   bool
	Status       AccountStatus
	LoginIP      LoginIP
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins the first and last name.
func (a Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Profile returns the public view of a. The password hash, status and login
// addresses are never part of it.
func (a Account) Profile() Profile {
	return Profile{
		ID:         a.ID,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		FullName:   a.FullName(),
		Email:      a.Email,
		Role:       a.Role,
		IsVerified: a.IsVerified,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// Profile is what responses echo and what the remember-me cache stores.
type Profile struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"fname"`
	LastName   string    `json:"lname"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SignInDetail is one entry of an account's sign-in history.
type SignInDetail struct {
	IP         string
	UserAgent  string
	SignedInAt time.Time
}

// PendingRegistration travels inside the activation token. The password is
// sealed; it is never hashed or stored until verification succeeds.
type PendingRegistration struct {
	FirstName string                `json:"fname"`
	LastName  string                `json:"lname"`
	Email     string                `json:"email"`
	Password  cryptox.EncryptedBlob `json:"password"`
}

// AccountInput is passed to AccountStore.Create.
type AccountInput struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	IsVerified   bool
}

// VerificationMessage is everything a dispatcher needs to deliver a code.
type VerificationMessage struct {
	To        string
	Name      string
	Code      string
	ExpiresAt time.Time
}

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken string
	Cookie      *http.Cookie
	Profile     Profile
	RememberMe  bool
}
