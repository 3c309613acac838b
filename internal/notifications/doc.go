// Package notifications pushes swing analysis events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// pipeline code can notify unconditionally. The per-event toggles in the
// [notifications] config section silence analysis or error messages
// individually.
package notifications
