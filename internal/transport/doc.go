// Package transport defines the communication channel abstraction for
// reaching Govee devices, and the orchestrator that routes operations
// across the configured channels.
//
// A Transport wraps one channel (cloud REST, LAN UDP) behind a uniform
// contract: health check, device discovery, state reads, and command
// execution. The Orchestrator owns the set of transports and decides,
// per operation, which one to use:
//
//   - Discovery fans out to every transport concurrently and merges the
//     results, keyed by deviceID|model. Registration order breaks ties:
//     the later transport's record wins.
//   - Reads and commands go to the single best transport for the target
//     device: healthy transports ranked by latency, then unhealthy
//     ones, then transports that have never been health-checked.
//
// Health state is updated only by RefreshHealth; listeners registered
// via OnHealthChange receive a copy of each transport's health after
// every refresh.
package transport
