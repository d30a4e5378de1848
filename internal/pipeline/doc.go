// Package pipeline runs configured targets through the fetch, preprocess,
// and predict stages. Fetch and preprocess run per target under a bounded
// worker pool; prediction runs over shape-consistent batches. Per-target
// status lands in the results store, and a file lock keeps concurrent runs
// off the same output directory.
package pipeline
