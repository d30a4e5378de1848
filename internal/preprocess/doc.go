// Package preprocess turns fetched image cutouts into model-ready tensors:
// center-cropping to the configured cutout size, elementwise normalization
// (min-max, z-score, or asinh stretch), optional clipping, and batching with
// shape consistency checks.
package preprocess
