// Package model submits preprocessed tensor batches to an externally hosted
// inference endpoint and decodes per-item predictions.
package model
