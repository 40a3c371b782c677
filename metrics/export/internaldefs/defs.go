package internaldefs

import (
	goAccount "github.com/MrEthical07/goAccount"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "goaccount_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goAccount.MetricSignupRequested, Name: "goaccount_signup_requested_total", Help: "Signups that sent a verification code."},
	{ID: goAccount.MetricSignupDuplicate, Name: "goaccount_signup_duplicate_total", Help: "Signups rejected because the email is registered."},
	{ID: goAccount.MetricSignupDispatchFailure, Name: "goaccount_signup_dispatch_failure_total", Help: "Signups whose verification email could not be sent."},
	{ID: goAccount.MetricVerifySuccess, Name: "goaccount_verify_success_total", Help: "Accounts created by verification."},
	{ID: goAccount.MetricVerifyFailure, Name: "goaccount_verify_failure_total", Help: "Verifications with an unusable token or wrong code."},
	{ID: goAccount.MetricVerifyReplay, Name: "goaccount_verify_replay_total", Help: "Verifications rejected because the token was already redeemed."},
	{ID: goAccount.MetricVerifyDuplicate, Name: "goaccount_verify_duplicate_total", Help: "Verifications that lost the race for an email."},
	{ID: goAccount.MetricSigninSuccess, Name: "goaccount_signin_success_total", Help: "Successful sign-ins."},
	{ID: goAccount.MetricSigninFailure, Name: "goaccount_signin_failure_total", Help: "Sign-ins rejected for invalid credentials."},
	{ID: goAccount.MetricSigninBlocked, Name: "goaccount_signin_blocked_total", Help: "Sign-ins refused for banned or disabled accounts."},
	{ID: goAccount.MetricSessionIssued, Name: "goaccount_session_issued_total", Help: "Access tokens issued."},
	{ID: goAccount.MetricSessionRemembered, Name: "goaccount_session_remembered_total", Help: "Profiles cached for remember-me sessions."},
	{ID: goAccount.MetricSessionIssueFailure, Name: "goaccount_session_issue_failure_total", Help: "Session issuance failures."},
	{ID: goAccount.MetricSignout, Name: "goaccount_signout_total", Help: "Signouts."},
	{ID: goAccount.MetricAccountBanned, Name: "goaccount_account_banned_total", Help: "Ban operations."},
	{ID: goAccount.MetricAccountUnbanned, Name: "goaccount_account_unbanned_total", Help: "Unban operations."},
	{ID: goAccount.MetricAccountDisabled, Name: "goaccount_account_disabled_total", Help: "Disable operations."},
	{ID: goAccount.MetricAccountEnabled, Name: "goaccount_account_enabled_total", Help: "Enable operations."},
	{ID: goAccount.MetricPasswordRehashed, Name: "goaccount_password_rehashed_total", Help: "Stored hashes upgraded to argon2id at sign-in."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricSigninLatency, Name: "goaccount_signin_latency_seconds", Help: "Sign-in latency."},
}

// HistogramBounds are the Prometheus le labels, matching the engine buckets.
var HistogramBounds = [goAccount.HistogramBucketCount]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = [goAccount.HistogramBucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// Buckets is one histogram's per-bucket counts.
type Buckets = [goAccount.HistogramBucketCount]uint64

// NormalizeBuckets copies raw into a fixed array; missing buckets are zero.
func NormalizeBuckets(raw []uint64) Buckets {
	var out Buckets
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw Buckets) Buckets {
	var out Buckets
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
