// Command ripple is the CLI for the RIPPLe pipeline: it runs configured
// targets through fetch, preprocess, and predict, and provides preflight,
// one-off fetch, results inspection, cache maintenance, and config helpers.
package main
