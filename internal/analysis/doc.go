// Package analysis holds the swing analysis domain types and the merge step
// that turns stage outputs into a persisted AnalysisResult.
//
// Measurements (checkpoint timestamps and joint angles) come from either the
// local extractor or the inference service; Estimates (club speed, path, and
// carry) always come from the inference service. Merge combines the two and
// rejects anything incomplete, so a stored Result always carries all four
// checkpoints and all four angle sets. BuildRoadmaps applies the same
// all-or-nothing rule to coaching output.
package analysis
