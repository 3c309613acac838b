// Package daemon coordinates the long-running swingcoach process.
//
// It wires configuration, the swing store, the pipeline runner and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. At startup it reports swings a previous process left mid-run;
// those are never resumed automatically and wait for an explicit reprocess.
//
// Keep orchestration logic here: pipeline stages live in their own packages
// while the daemon focuses on startup, shutdown and request routing.
package daemon
