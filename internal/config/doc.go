// Package config loads, normalizes, and validates swingcoach configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEY and NTFY_TOPIC. Components receive their settings from the
// Config value at construction time; nothing reads configuration globally.
package config
