// Package resilience provides circuit breakers for calls to the Govee API.
//
// A Breaker wraps an operation with a per-call timeout, consecutive-failure
// counting, and a cool-down period. It follows the classic three-state
// machine:
//
//	CLOSED ──(failureThreshold consecutive failures)──▶ OPEN
//	OPEN ──(recovery timeout elapses, one probe allowed)──▶ HALF_OPEN
//	HALF_OPEN ──(successThreshold consecutive successes)──▶ CLOSED
//	HALF_OPEN ──(any failure)──▶ OPEN
//
// While OPEN, calls fail immediately with an *OpenError carrying the next
// allowed attempt time; the wrapped operation is never invoked.
//
// The Factory supplies two pre-tuned breaker classes: one shared breaker for
// bulk API calls (device listing) and one lazily created breaker per device
// for control calls. A single misbehaving lamp trips its own breaker without
// taking the shared API path down with it.
package resilience
