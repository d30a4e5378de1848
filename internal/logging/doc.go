// Package logging builds the slog loggers used across the pipeline.
//
// Two output formats are supported: a compact console format for interactive
// runs and JSON for machine consumption. Loggers carry a component attribute
// plus run/stage/target fields derived from context so every record can be
// traced back to the dataset that produced it.
package logging
