// Package telemetry accumulates in-memory operational counters:
// health refresh timings, discovery runs, command outcomes and circuit
// breaker statistics. Snapshots are deep copies, safe to hand to
// exporters or diagnostics without racing the live counters.
package telemetry
