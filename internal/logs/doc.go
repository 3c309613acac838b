// Package logs reads the daemon log file for `swingcoach logs`.
//
// Last returns the trailing lines of the file together with the byte offset
// they end at, and Follow streams lines appended after an offset until the
// context is canceled. A missing file is treated as empty so the command
// works before the daemon has ever started.
package logs
