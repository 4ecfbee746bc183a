package internaldefs

import (
	portalauth "github.com/campusworks/portalauth"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   portalauth.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   portalauth.MetricID
	Name string
	Help string
}

// CounterDefs maps every counter to its exposition name. Both exporters walk
// this slice so their outputs never diverge.
var CounterDefs = []CounterDef{
	{ID: portalauth.MetricLoginSuccess, Name: "portal_login_success_total", Help: "Successful logins."},
	{ID: portalauth.MetricLoginFailure, Name: "portal_login_failure_total", Help: "Rejected or failed logins."},
	{ID: portalauth.MetricLogout, Name: "portal_logout_total", Help: "Logouts."},
	{ID: portalauth.MetricRestoreActive, Name: "portal_restore_active_total", Help: "Startup restorations that ended with an active session."},
	{ID: portalauth.MetricRestoreAbsent, Name: "portal_restore_absent_total", Help: "Startup restorations that ended with no session."},
	{ID: portalauth.MetricRestoreLocalExpiry, Name: "portal_restore_local_expiry_total", Help: "Restorations resolved by the local expiry check without a network call."},
	{ID: portalauth.MetricValidateRejected, Name: "portal_validate_rejected_total", Help: "Stored credentials rejected by provider revalidation."},
	{ID: portalauth.MetricProfileUpdate, Name: "portal_profile_update_total", Help: "Accepted profile updates."},
	{ID: portalauth.MetricPasswordChangeSuccess, Name: "portal_password_change_success_total", Help: "Completed password changes."},
	{ID: portalauth.MetricPasswordChangeMismatch, Name: "portal_password_change_mismatch_total", Help: "Password changes rejected by the local confirmation check."},
	{ID: portalauth.MetricStoreWriteFailure, Name: "portal_store_write_failure_total", Help: "Durable or mirror session store write failures."},
	{ID: portalauth.MetricRecoveryRequest, Name: "portal_recovery_request_total", Help: "Accepted recovery requests."},
	{ID: portalauth.MetricRecoveryRateLimited, Name: "portal_recovery_rate_limited_total", Help: "Throttled recovery requests."},
	{ID: portalauth.MetricRecoveryResetSuccess, Name: "portal_recovery_reset_success_total", Help: "Completed recovery password resets."},
	{ID: portalauth.MetricRecoveryResetFailure, Name: "portal_recovery_reset_failure_total", Help: "Failed recovery password resets."},
	{ID: portalauth.MetricRecoveryTokenExpired, Name: "portal_recovery_token_expired_total", Help: "Recovery token validations that found an aged token."},
	{ID: portalauth.MetricRecoveryTokenReplay, Name: "portal_recovery_token_replay_total", Help: "Recovery token validations of already-used tokens."},
}

// HistogramDefs maps every histogram to its exposition name.
var HistogramDefs = []HistogramDef{
	{ID: portalauth.MetricValidateLatency, Name: "portal_validate_latency_seconds", Help: "Startup revalidation round-trip latency."},
}

// HistogramBounds are the upper bounds of the core histogram buckets, in
// seconds, as Prometheus le label values.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are the same bounds as metric-name-safe suffixes for
// backends without a histogram type.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
