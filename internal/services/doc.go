// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and dataset references
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent target dispositions (abort vs fail vs skip).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
