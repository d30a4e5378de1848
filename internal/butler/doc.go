// Package butler implements the remote data-access client for the Rubin
// Science Platform Butler service.
//
// Client fetches image cutouts and object catalogs over authenticated HTTPS
// with bounded retry. Only transient conditions (timeouts, 5xx, 408/429,
// connection resets) are retried; authentication failures and missing
// datasets are terminal on the first attempt and surface as typed errors.
// NewCachedClient decorates any Fetcher with the TTL response cache without
// changing the fetch contract.
package butler
