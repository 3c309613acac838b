// Package preflight provides readiness checks for external services
// and filesystem paths that swingcoach depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check. A
//     failed check never blocks startup; transcoding falls back and analysis
//     leaves swings unanalyzed.
//   - The CLI "swingcoach status" command renders the same results.
//
// FFmpeg is optional by design of the pipeline: without it uploads are
// analyzed as-is.
package preflight
