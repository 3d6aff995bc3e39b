// Package otel publishes goBarber session metrics through OpenTelemetry.
//
// [NewOTelExporter] registers an Int64ObservableCounter per session counter
// and an Int64ObservableGauge per histogram bucket. One callback reads
// [goBarber.SessionStore.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate session state.
package otel
