// Package config loads, normalizes, and validates the RIPPLe configuration.
//
// Configuration is a single YAML file. Load applies defaults, expands paths,
// pulls the RSP access token from the environment when the file omits it, and
// validates the result so later stages can assume a coherent configuration.
// Invalid combinations (token auth without a resolvable token, unknown
// normalization method) are rejected at load time, before any network call.
package config
