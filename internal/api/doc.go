// Package api is the service layer shared by the HTTP adapter and the CLI.
// It validates caller input, drives the swing store and the pipeline
// runner, and translates internal models into transport-friendly DTOs.
//
// # Key Types
//
// SwingService: upload, list, detail, favorite, delete, reprocess and
// launch monitor attachment.
//
// SwingSummary / SwingDetail: list and detail DTOs. Headline speed and
// carry prefer launch monitor values over estimates.
//
// DaemonStatus: runner load plus dependency availability for `status`.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Errors keep their services markers so adapters can map them to status
// codes with services.Classify.
package api
