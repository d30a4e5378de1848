// Package fetchcache provides the bounded TTL cache for Butler fetch
// responses.
//
// Entries are keyed by the fetch request identity and expire after a
// configurable time-to-live; eviction is by TTL and insertion pressure, not
// recency. The cache is safe for concurrent use by pipeline workers and can
// optionally persist to disk so repeated runs against the same targets skip
// the network entirely.
package fetchcache
