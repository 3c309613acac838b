// Package pipeline drives a swing from upload to stored analysis.
//
// Coordinator runs the stages for one swing strictly in order:
//
//	created -> transcoding -> analyzing -> coaching -> analyzed
//
// Each status change is written before the stage's work begins, so a crash
// leaves the swing visible in its last durable state. Transcode failures fall
// back to the uploaded file. Measurement or estimate failures end the run in
// unanalyzed. Coaching failures only mean the swing has no roadmaps. Store
// errors are the only failures returned to the caller.
//
// Runner executes Coordinator runs in the background with a concurrency cap
// and rejects a second run for a swing that is already in flight.
package pipeline
