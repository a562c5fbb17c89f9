// Package otel publishes engine metrics as OpenTelemetry observable
// instruments. Values are read from an engine snapshot inside a single
// meter callback; the exporter holds no counters of its own.
package otel
