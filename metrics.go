package goAccount

import internalmetrics "github.com/MrEthical07/goAccount/internal/metrics"

// MetricID identifies one engine counter or histogram.
type MetricID = internalmetrics.MetricID

const (
	// MetricSignupRequested counts activation tokens handed out.
	MetricSignupRequested = internalmetrics.MetricSignupRequested
	// MetricSignupDuplicate counts signups refused because the email exists.
	MetricSignupDuplicate = internalmetrics.MetricSignupDuplicate
	// MetricSignupDispatchFailure counts signups whose verification email failed.
	MetricSignupDispatchFailure = internalmetrics.MetricSignupDispatchFailure
	// MetricVerifySuccess counts accounts created by verification.
	MetricVerifySuccess = internalmetrics.MetricVerifySuccess
	// MetricVerifyFailure counts rejected tokens and wrong codes.
	MetricVerifyFailure = internalmetrics.MetricVerifyFailure
	// MetricVerifyReplay counts second redemptions of the same token.
	MetricVerifyReplay = internalmetrics.MetricVerifyReplay
	// MetricVerifyDuplicate counts verifications that lost the email race.
	MetricVerifyDuplicate = internalmetrics.MetricVerifyDuplicate
	// MetricSigninSuccess counts sign-ins that produced a session.
	MetricSigninSuccess = internalmetrics.MetricSigninSuccess
	// MetricSigninFailure counts unknown emails and wrong passwords.
	MetricSigninFailure = internalmetrics.MetricSigninFailure
	// MetricSigninBlocked counts sign-ins refused for banned or disabled accounts.
	MetricSigninBlocked = internalmetrics.MetricSigninBlocked
	// MetricSessionIssued counts issued access tokens.
	MetricSessionIssued = internalmetrics.MetricSessionIssued
	// MetricSessionRemembered counts remember-me cache writes.
	MetricSessionRemembered = internalmetrics.MetricSessionRemembered
	// MetricSessionIssueFailure counts signing or cache failures during issuance.
	MetricSessionIssueFailure = internalmetrics.MetricSessionIssueFailure
	// MetricSignout counts explicit sign-outs.
	MetricSignout = internalmetrics.MetricSignout
	// MetricAccountBanned counts ban operations.
	MetricAccountBanned = internalmetrics.MetricAccountBanned
	// MetricAccountUnbanned counts unban operations.
	MetricAccountUnbanned = internalmetrics.MetricAccountUnbanned
	// MetricAccountDisabled counts disable operations.
	MetricAccountDisabled = internalmetrics.MetricAccountDisabled
	// MetricAccountEnabled counts enable operations.
	MetricAccountEnabled = internalmetrics.MetricAccountEnabled
	// MetricPasswordRehashed counts hashes upgraded during sign-in.
	MetricPasswordRehashed = internalmetrics.MetricPasswordRehashed
	// MetricSigninLatency is the sign-in latency histogram.
	MetricSigninLatency = internalmetrics.MetricSigninLatency
)

// HistogramBucketCount is the number of latency buckets in each histogram.
const HistogramBucketCount = internalmetrics.HistogramBucketCount

// Metrics is the engine's in-process counter set.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics builds a Metrics value from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
