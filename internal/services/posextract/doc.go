// Package posextract runs the local pose-estimation program that measures
// joint angles at the four swing checkpoints.
//
// The program is invoked as `<command> <args...> <video>` and must print a
// single JSON document on stdout. Anything it writes to stderr is treated as
// progress chatter and logged. A non-zero exit or an "error" key in the JSON
// fails the extraction.
package posextract
