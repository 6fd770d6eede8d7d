// Package telemetry exposes state-manager metrics to Prometheus.
//
// The manager keeps its own aggregate counters; this package adapts them
// into a prometheus.Collector so a scrape reads the current values
// without a parallel write path.
package telemetry
