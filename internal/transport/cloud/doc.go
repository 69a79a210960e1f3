// Package cloud implements the Govee cloud REST transport.
//
// All calls go through the developer API (developer-api.govee.com) and
// are guarded by circuit breakers: the shared bulk-API breaker for
// device listing and health probes, and a per-device breaker for
// control and state calls. Discovery results are cached so the last
// known device list can be served, marked stale, while the remote API
// is unreachable.
package cloud
