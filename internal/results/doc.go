// Package results persists pipeline runs and per-target predictions in a
// SQLite database, tracks target status through the stage sequence, and
// exports predictions as CSV or JSON.
package results
