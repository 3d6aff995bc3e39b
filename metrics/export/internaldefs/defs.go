package internaldefs

import (
	goBarber "github.com/MrEthical07/goBarber"
)

// CounterDef maps a session counter to its exported name.
type CounterDef struct {
	ID   goBarber.MetricID
	Name string
	Help string
}

// HistogramDef maps a session histogram to its exported name.
type HistogramDef struct {
	ID   goBarber.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter every exporter adds for dispatcher drops.
const AuditDroppedName = "gobarber_audit_dropped_total"

// Session state gauges. Exporters add them when the source can report a
// session snapshot, which *goBarber.SessionStore does.
const (
	SessionAuthenticatedName = "gobarber_session_authenticated"
	SessionLoadingName       = "gobarber_session_loading"

	SessionAuthenticatedHelp = "1 while a user is signed in."
	SessionLoadingHelp       = "1 until the persisted session has been read."
)

// StateSource reports the live session.
type StateSource interface {
	Snapshot() goBarber.Snapshot
}

// StateGauges returns the gauge values for snap as 0 or 1.
func StateGauges(snap goBarber.Snapshot) (authenticated, loading int64) {
	if snap.Authenticated {
		authenticated = 1
	}
	if snap.Loading {
		loading = 1
	}
	return authenticated, loading
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goBarber.MetricBootstrapRestored, Name: "gobarber_bootstrap_restored_total", Help: "Bootstraps that restored a persisted session."},
	{ID: goBarber.MetricBootstrapAnonymous, Name: "gobarber_bootstrap_anonymous_total", Help: "Bootstraps that found no persisted session."},
	{ID: goBarber.MetricBootstrapDiscarded, Name: "gobarber_bootstrap_discarded_total", Help: "Bootstraps that discarded an unusable persisted session."},
	{ID: goBarber.MetricSignInSuccess, Name: "gobarber_sign_in_success_total", Help: "Successful sign-ins."},
	{ID: goBarber.MetricSignInFailure, Name: "gobarber_sign_in_failure_total", Help: "Failed sign-ins."},
	{ID: goBarber.MetricSignOut, Name: "gobarber_sign_out_total", Help: "Sign-outs."},
	{ID: goBarber.MetricUserUpdated, Name: "gobarber_user_updated_total", Help: "Committed user record updates."},
	{ID: goBarber.MetricUserUpdateRejected, Name: "gobarber_user_update_rejected_total", Help: "User updates rejected for a missing session or foreign id."},
	{ID: goBarber.MetricPersistenceFailure, Name: "gobarber_persistence_failure_total", Help: "Key-value store failures."},
	{ID: goBarber.MetricSignUpSuccess, Name: "gobarber_sign_up_success_total", Help: "Successful account registrations."},
	{ID: goBarber.MetricSignUpFailure, Name: "gobarber_sign_up_failure_total", Help: "Failed account registrations."},
	{ID: goBarber.MetricProfileUpdateSuccess, Name: "gobarber_profile_update_success_total", Help: "Successful profile updates."},
	{ID: goBarber.MetricProfileUpdateFailure, Name: "gobarber_profile_update_failure_total", Help: "Failed profile updates."},
	{ID: goBarber.MetricAvatarUpdateSuccess, Name: "gobarber_avatar_update_success_total", Help: "Successful avatar uploads."},
	{ID: goBarber.MetricAvatarUpdateFailure, Name: "gobarber_avatar_update_failure_total", Help: "Failed avatar uploads."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goBarber.MetricSignInLatency, Name: "gobarber_sign_in_latency_seconds", Help: "Sign-in round trip latency."},
}

// HistogramBounds are the upper bounds in seconds, matching the store's buckets.
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

// HistogramBoundSuffix is HistogramBounds in instrument-name form.
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

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
