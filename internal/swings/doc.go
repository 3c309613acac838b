// Package swings is the persistence gateway for swings and everything derived
// from them: analysis results, coaching roadmaps, and launch monitor readings.
//
// The store is SQLite (modernc.org/sqlite, WAL mode) with embedded, versioned
// migrations. Writes for a given swing are serialised through a per-swing
// lock so the pipeline, the API, and the CLI never interleave partial updates
// to the same record. Dependent rows cascade on swing deletion.
//
// Every database failure is tagged services.ErrPersistence; lookups of
// unknown IDs return services.ErrNotFound.
package swings
