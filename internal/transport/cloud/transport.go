package cloud

import (
	"context"
	"sync"
	"time"

	"github.com/goveedeck/core/internal/resilience"
	"github.com/goveedeck/core/internal/transport"
)

// Transport is the cloud-backed implementation of transport.Transport.
//
// Every remote call runs inside a circuit breaker: listing and health
// probing share the bulk-API breaker, control and state reads use the
// per-device breaker for the target device. Discovery keeps a local
// cache so a breaker-open or network failure degrades to serving the
// last known device list marked stale, rather than an empty deck.
type Transport struct {
	client   *Client
	breakers *resilience.Factory
	logger   transport.Logger
	cacheTTL time.Duration

	mu       sync.Mutex
	cached   []transport.Device
	cachedAt time.Time

	// now is a test hook.
	now func() time.Time
}

// Config holds cloud transport settings.
type Config struct {
	// APIKey is the Govee developer API key. An empty key disables the
	// transport: Supports reports false for every device.
	APIKey string

	// BaseURL overrides the API endpoint; empty means production.
	BaseURL string

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration

	// CacheTTL is how long the discovery cache may be served stale
	// after the remote API becomes unreachable.
	CacheTTL time.Duration

	// Breakers supplies the circuit breakers. Required.
	Breakers *resilience.Factory

	// Logger receives transport logs. Optional.
	Logger transport.Logger
}

// New creates a cloud transport.
func New(cfg Config) *Transport {
	opts := []ClientOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Transport{
		client:   NewClient(cfg.APIKey, cfg.RequestTimeout, opts...),
		breakers: cfg.Breakers,
		logger:   logger,
		cacheTTL: cfg.CacheTTL,
		now:      time.Now,
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Descriptor implements transport.Transport.
func (t *Transport) Descriptor() transport.Descriptor {
	return transport.Descriptor{
		Kind:     transport.KindCloud,
		Label:    "Govee Cloud API",
		Priority: 2,
	}
}

// Supports reports whether the transport is usable. The cloud channel
// reaches any account device, so this only checks that a key is set.
func (t *Transport) Supports(transport.Device) bool {
	return t.client.apiKey != ""
}

// CheckHealth probes the device list endpoint through the bulk-API
// breaker and reports latency. A successful probe refreshes the
// discovery cache as a side effect, so a health check never wastes the
// API quota.
func (t *Transport) CheckHealth(ctx context.Context) transport.Health {
	start := t.now()
	err := t.breakers.API().Do(ctx, func(ctx context.Context) error {
		devices, listErr := t.client.ListDevices(ctx)
		if listErr != nil {
			return listErr
		}
		t.storeCache(devices)
		return nil
	})

	health := transport.Health{
		Descriptor:  t.Descriptor(),
		Healthy:     err == nil,
		LastChecked: t.now(),
		Latency:     t.now().Sub(start),
		Err:         err,
	}
	if err != nil {
		t.logger.Warn("cloud health check failed", "error", err)
	}
	return health
}

// DiscoverDevices fetches the account device list. On failure the last
// cached list is served marked stale, as long as the cache has not
// outlived its TTL.
func (t *Transport) DiscoverDevices(ctx context.Context) (transport.DiscoveryResult, error) {
	var devices []transport.Device
	err := t.breakers.API().Do(ctx, func(ctx context.Context) error {
		fetched, listErr := t.client.ListDevices(ctx)
		if listErr != nil {
			return listErr
		}
		devices = fetched
		return nil
	})
	if err == nil {
		t.storeCache(devices)
		return transport.DiscoveryResult{Devices: devices}, nil
	}

	cached, ok := t.loadCache()
	if !ok {
		return transport.DiscoveryResult{}, err
	}
	t.logger.Warn("cloud discovery failed, serving cached list",
		"cached_devices", len(cached),
		"error", err,
	)
	return transport.DiscoveryResult{Devices: cached, Stale: true}, nil
}

// GetLightState reads a device's state through its per-device breaker.
func (t *Transport) GetLightState(ctx context.Context, deviceID, model string) (transport.DeviceState, error) {
	var state transport.DeviceState
	err := t.breakers.Device(deviceID).Do(ctx, func(ctx context.Context) error {
		fetched, stateErr := t.client.State(ctx, deviceID, model)
		if stateErr != nil {
			return stateErr
		}
		state = fetched
		return nil
	})
	return state, err
}

// SendCommand executes a control command through the device's breaker.
func (t *Transport) SendCommand(ctx context.Context, cmd transport.Command) error {
	err := t.breakers.Device(cmd.DeviceID).Do(ctx, func(ctx context.Context) error {
		return t.client.Control(ctx, cmd)
	})
	if err != nil {
		t.logger.Warn("cloud command failed",
			"command_id", cmd.ID,
			"device_id", cmd.DeviceID,
			"command", cmd.Name,
			"error", err,
		)
		return err
	}

	t.logger.Debug("cloud command sent",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Name,
	)
	return nil
}

// storeCache replaces the discovery cache.
func (t *Transport) storeCache(devices []transport.Device) {
	copied := make([]transport.Device, len(devices))
	copy(copied, devices)

	t.mu.Lock()
	t.cached = copied
	t.cachedAt = t.now()
	t.mu.Unlock()
}

// loadCache returns a copy of the cached device list if it is still
// within the stale-serving TTL.
func (t *Transport) loadCache() ([]transport.Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cached == nil || t.now().Sub(t.cachedAt) > t.cacheTTL {
		return nil, false
	}
	copied := make([]transport.Device, len(t.cached))
	copy(copied, t.cached)
	return copied, true
}
