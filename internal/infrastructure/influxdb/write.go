package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTransportHealth records one health probe result for a transport.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - kind: Transport kind ("cloud" or "lan")
//   - healthy: Whether the probe succeeded
//   - latencyMS: Probe round-trip time in milliseconds
//
// Example:
//
//	client.WriteTransportHealth("cloud", true, 120.5)
//	client.WriteTransportHealth("lan", false, 0)
func (c *Client) WriteTransportHealth(kind string, healthy bool, latencyMS float64) {
	if !c.IsConnected() {
		return
	}

	healthyVal := 0
	if healthy {
		healthyVal = 1
	}

	point := write.NewPoint(
		"transport_health",
		map[string]string{
			"transport": kind,
		},
		map[string]interface{}{
			"healthy":    healthyVal,
			"latency_ms": latencyMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDiscoveryRun records the outcome of one device discovery pass.
//
// Parameters:
//   - deviceCount: Number of devices in the merged result
//   - stale: Whether the result was served from an expired cache
//   - durationMS: Wall-clock duration of the pass in milliseconds
//   - success: Whether at least one transport reported successfully
func (c *Client) WriteDiscoveryRun(deviceCount int, stale bool, durationMS float64, success bool) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"device_count": deviceCount,
		"duration_ms":  durationMS,
		"success":      boolField(success),
		"stale":        boolField(stale),
	}

	point := write.NewPoint("discovery", nil, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WriteCommandMetric records one control command outcome.
//
// Parameters:
//   - command: The command name (e.g., "turn", "brightness", "color")
//   - durationMS: End-to-end command latency in milliseconds
//   - success: Whether the command was delivered
func (c *Client) WriteCommandMetric(command string, durationMS float64, success bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"commands",
		map[string]string{
			"command": command,
		},
		map[string]interface{}{
			"duration_ms": durationMS,
			"success":     boolField(success),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBreakerStats records a circuit breaker's counters.
//
// State is tagged so dashboards can graph open/closed transitions over time.
//
// Parameters:
//   - name: Breaker name (e.g., "api", "device:AA:BB:...")
//   - state: Breaker state string ("closed", "open", "half-open")
//   - consecutiveFailures: Current consecutive failure count
//   - totalCalls: Lifetime call count
//   - totalFailures: Lifetime failure count
func (c *Client) WriteBreakerStats(name string, state string, consecutiveFailures int, totalCalls uint64, totalFailures uint64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"circuit_breakers",
		map[string]string{
			"breaker": name,
			"state":   state,
		},
		map[string]interface{}{
			"consecutive_failures": consecutiveFailures,
			"total_calls":          int64(totalCalls), //nolint:gosec // Counter values never approach int64 max
			"total_failures":       int64(totalFailures),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "goveedeck-01"},
//	    map[string]interface{}{"goroutines": 42})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

// boolField converts a bool to the 0/1 integer convention used for
// InfluxDB fields, which keeps aggregation queries simple.
func boolField(b bool) int {
	if b {
		return 1
	}
	return 0
}
