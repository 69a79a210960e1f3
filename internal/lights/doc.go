// Package lights is the device-facing service layer.
//
// It wraps the transport orchestrator with the behaviour deck keys
// need: discovery results cached under a TTL with request coalescing,
// capability normalization so callers never parse command lists, a
// persisted catalogue that survives restarts, and command execution
// with telemetry. Discovery failures degrade to the last known device
// list, marked stale, rather than an empty deck.
package lights
