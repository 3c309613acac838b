// Package metrics exposes Prometheus instruments for the ingestion pipeline:
// stage durations and outcomes, in-flight runs, upload readiness waits,
// transcode sizes and HTTP traffic.
//
// A Manager owns its own registry so tests and multiple daemons in one
// process never collide on registration. All recording methods are safe on a
// nil or disabled Manager.
package metrics
