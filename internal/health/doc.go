// Package health caches and serves transport health snapshots.
//
// The service sits between callers (deck keys, the daemon's refresh
// loop, diagnostics) and the orchestrator's RefreshHealth. Reads within
// the cache TTL are served from the last snapshot; expired or forced
// reads trigger a refresh, with concurrent callers collapsed onto a
// single in-flight refresh via singleflight. A failed refresh still
// serves and caches whatever per-transport health the orchestrator
// holds after the attempt; the error is logged and recorded, not
// returned.
package health
