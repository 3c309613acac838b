// Package inference talks to the hosted multimodal model that estimates swing
// measurements, club speed, path and carry, writes coaching roadmaps, and reads
// launch monitor screenshots.
//
// Video analysis is asynchronous on the service side: the clip is uploaded,
// then polled until the service reports it ready, and only then referenced
// from a generateContent call. Client hides that protocol behind Analyze.
// Every failure is tagged with services.ErrAnalysisUnavailable so the
// pipeline can treat it as a recoverable stage failure.
package inference
