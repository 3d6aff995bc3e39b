// Package prometheus renders goBarber session metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] wraps a [goBarber.SessionStore] and exposes an
// [http.Handler]. Counter names are gobarber_*_total; the single histogram is
// gobarber_sign_in_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate session state.
package prometheus
