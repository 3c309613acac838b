// Package apiclient is the HTTP client the swingcoach CLI uses to talk to a
// running daemon.
//
// Every method maps to one route of the daemon API and decodes the shared
// DTOs from the api package. Connection failures are reported through
// IsAPIUnavailable so commands can print a "daemon not running" hint instead
// of a raw dial error.
package apiclient
