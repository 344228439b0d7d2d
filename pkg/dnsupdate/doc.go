// Package dnsupdate publishes a host's address records via RFC 2136
// Dynamic DNS updates.
//
// One Update call replaces the host's A and AAAA RRsets with the
// current addresses of the configured interface, in a single UPDATE
// transaction. Updates are authenticated with TSIG (RFC 2845); the
// unauthenticated variant is intentionally unsupported, matching the
// directory-integrated deployments this daemon targets.
//
// The package performs no retries and no scheduling. Callers decide
// when an update runs; see internal/refresh.
package dnsupdate
