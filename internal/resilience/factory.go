package resilience

import (
	"sync"
	"time"
)

// Preset tuning for the two call classes.
//
// The bulk API breaker is tolerant: the device list endpoint is shared
// across all keys on the deck, so tripping it blacks out everything.
// The per-device breaker trips faster and waits longer before probing,
// since a single misbehaving lamp should not be retried aggressively,
// but one good probe is enough to trust it again.
const (
	apiFailureThreshold = 5
	apiRecoveryTimeout  = 30 * time.Second
	apiSuccessThreshold = 2
	apiCallTimeout      = 10 * time.Second

	deviceFailureThreshold = 3
	deviceRecoveryTimeout  = 60 * time.Second
	deviceSuccessThreshold = 1
	deviceCallTimeout      = 15 * time.Second
)

// APIConfig returns the tuning for the shared bulk-API breaker.
func APIConfig() Config {
	return Config{
		FailureThreshold: apiFailureThreshold,
		RecoveryTimeout:  apiRecoveryTimeout,
		SuccessThreshold: apiSuccessThreshold,
		Timeout:          apiCallTimeout,
	}
}

// DeviceConfig returns the tuning for per-device control breakers.
func DeviceConfig() Config {
	return Config{
		FailureThreshold: deviceFailureThreshold,
		RecoveryTimeout:  deviceRecoveryTimeout,
		SuccessThreshold: deviceSuccessThreshold,
		Timeout:          deviceCallTimeout,
	}
}

// Factory supplies pre-tuned breakers: one shared breaker for bulk API
// calls and one lazily created breaker per device ID.
//
// Device breakers are created on first use and retained for the life of
// the factory. At desk-plugin scale (tens of devices) the map never needs
// eviction; a longer-lived server would want an idle-time policy here.
type Factory struct {
	mu      sync.Mutex
	api     *Breaker
	devices map[string]*Breaker
}

// NewFactory creates an empty breaker factory.
func NewFactory() *Factory {
	return &Factory{
		devices: make(map[string]*Breaker),
	}
}

// API returns the shared bulk-API breaker, creating it on first use.
func (f *Factory) API() *Breaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.api == nil {
		f.api = New("api", APIConfig())
	}
	return f.api
}

// Device returns the breaker for the given device ID, creating it on
// first use.
func (f *Factory) Device(deviceID string) *Breaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	if b, ok := f.devices[deviceID]; ok {
		return b
	}

	b := New(deviceID, DeviceConfig())
	f.devices[deviceID] = b
	return b
}

// Stats returns snapshots for every breaker the factory has created,
// keyed by breaker name. The shared API breaker appears under "api".
func (f *Factory) Stats() map[string]Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := make(map[string]Stats, len(f.devices)+1)
	if f.api != nil {
		stats["api"] = f.api.Stats()
	}
	for id, b := range f.devices {
		stats[id] = b.Stats()
	}
	return stats
}

// ResetAll forces every created breaker closed. Used when the user changes
// API credentials and stale failure history should not gate the new key.
func (f *Factory) ResetAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.api != nil {
		f.api.Reset()
	}
	for _, b := range f.devices {
		b.Reset()
	}
}
