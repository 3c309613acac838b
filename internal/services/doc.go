// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp swing IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Classify which sorts
//     failures into validation, recoverable, and fatal kinds.
//
// Subpackages hold the external collaborators: the remote inference client
// and the local measurement extractor.
package services
