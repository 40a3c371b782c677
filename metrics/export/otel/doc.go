// Package otel binds goAccount engine metrics to OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per latency bucket. The caller owns the Meter and
// its provider.
package otel
