package telemetry

import "time"

// PointWriter is the subset of the InfluxDB client the exporter needs.
// Defined here so the exporter can be tested without a running server.
type PointWriter interface {
	WriteTransportHealth(kind string, healthy bool, latencyMS float64)
	WriteDiscoveryRun(deviceCount int, stale bool, durationMS float64, success bool)
	WriteCommandMetric(command string, durationMS float64, success bool)
	WriteBreakerStats(name string, state string, consecutiveFailures int, totalCalls uint64, totalFailures uint64)
}

// Exporter pushes telemetry snapshots to a time-series backend.
//
// The daemon calls Export on a timer. The exporter remembers the previous
// snapshot and only writes points for activity that happened since, so an
// idle daemon does not re-emit the same health refresh or discovery run
// every tick. Breaker counters are always written; they are cheap and
// dashboards expect a continuous series for state graphs.
type Exporter struct {
	writer PointWriter
	prev   Snapshot
}

// NewExporter creates an exporter writing to the given backend.
func NewExporter(writer PointWriter) *Exporter {
	return &Exporter{writer: writer}
}

// Export writes the points accumulated since the previous call.
//
// Writes are non-blocking on the underlying client, so this returns
// quickly even when the backend is slow.
//
// Not safe for concurrent use; the daemon drives it from a single loop.
func (e *Exporter) Export(snap Snapshot) {
	if snap.Health.LastRefreshAt.After(e.prev.Health.LastRefreshAt) {
		for _, h := range snap.Health.LastSnapshot {
			e.writer.WriteTransportHealth(
				string(h.Descriptor.Kind),
				h.Healthy,
				durationMS(h.Latency),
			)
		}
	}

	if snap.Discovery.Runs > e.prev.Discovery.Runs {
		success := snap.Discovery.Failures == e.prev.Discovery.Failures
		stale := snap.Discovery.StaleServed > e.prev.Discovery.StaleServed
		e.writer.WriteDiscoveryRun(
			snap.Discovery.LastCount,
			stale,
			durationMS(snap.Discovery.LastDuration),
			success,
		)
	}

	for name, agg := range snap.Commands.ByCommand {
		prev := e.prev.Commands.ByCommand[name]
		delta := agg.Count - prev.Count
		if delta <= 0 {
			continue
		}
		// Success and duration come from this command's own aggregate,
		// so one failing command does not taint the rest of the batch.
		success := agg.Failures == prev.Failures
		avg := (agg.Duration - prev.Duration) / time.Duration(delta)
		e.writer.WriteCommandMetric(name, durationMS(avg), success)
	}

	for name, stats := range snap.Breakers {
		e.writer.WriteBreakerStats(
			name,
			stats.State.String(),
			stats.ConsecutiveFailures,
			stats.TotalCalls,
			stats.TotalFailures,
		)
	}

	e.prev = snap
}

// durationMS converts a duration to fractional milliseconds.
func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
