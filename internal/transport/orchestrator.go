package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Logger defines the logging interface used by the Orchestrator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Orchestrator routes device operations to the best available transport.
//
// The transport set is fixed at construction; registration order is the
// iteration order for discovery merging, so results are deterministic.
// Health is tracked per transport and updated only by RefreshHealth; all
// other consumers read copies.
//
// All public methods are thread-safe.
type Orchestrator struct {
	transports []Transport

	mu     sync.RWMutex
	health map[Kind]Health

	listenerMu sync.Mutex
	listeners  map[int]func(Health)
	nextID     int

	logger Logger
}

// NewOrchestrator creates an orchestrator over the given transports.
// Order matters: when two transports discover the same device, the later
// one in this list wins the merge.
func NewOrchestrator(transports ...Transport) *Orchestrator {
	return &Orchestrator{
		transports: transports,
		health:     make(map[Kind]Health),
		listeners:  make(map[int]func(Health)),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.logger = logger
}

// Transports returns the configured transports in registration order.
func (o *Orchestrator) Transports() []Transport {
	out := make([]Transport, len(o.transports))
	copy(out, o.transports)
	return out
}

// DiscoverDevices queries every configured transport concurrently and
// merges the results.
//
// Results are merged in registration order, keyed by deviceID|model;
// when two transports report the same key, the later transport's record
// wins. The merged result is stale only if every contributing transport
// reported stale. If every transport fails, the joined errors are
// returned wrapped in ErrDiscoveryFailed.
func (o *Orchestrator) DiscoverDevices(ctx context.Context) (DiscoveryResult, error) {
	if len(o.transports) == 0 {
		return DiscoveryResult{}, nil
	}

	results := make([]DiscoveryResult, len(o.transports))
	errs := make([]error, len(o.transports))

	var wg sync.WaitGroup
	for i, t := range o.transports {
		wg.Add(1)
		go func(i int, t Transport) {
			defer wg.Done()
			results[i], errs[i] = t.DiscoverDevices(ctx)
		}(i, t)
	}
	wg.Wait()

	merged := make(map[string]Device)
	var order []string
	contributed := 0
	staleCount := 0
	var failures []error

	// Fixed iteration order over the configured transports; a later
	// transport's record overwrites an earlier one with the same key.
	for i, t := range o.transports {
		if errs[i] != nil {
			o.logger.Warn("discovery failed on transport",
				"kind", t.Descriptor().Kind,
				"error", errs[i],
			)
			failures = append(failures, fmt.Errorf("%s: %w", t.Descriptor().Kind, errs[i]))
			continue
		}

		contributed++
		if results[i].Stale {
			staleCount++
		}
		for _, d := range results[i].Devices {
			key := d.Key()
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = d
		}
	}

	if contributed == 0 && len(failures) > 0 {
		return DiscoveryResult{}, fmt.Errorf("%w: %w", ErrDiscoveryFailed, errors.Join(failures...))
	}

	devices := make([]Device, 0, len(order))
	for _, key := range order {
		devices = append(devices, merged[key])
	}

	return DiscoveryResult{
		Devices: devices,
		Stale:   contributed > 0 && staleCount == contributed,
	}, nil
}

// GetLightState reads the state of one device via the best transport.
func (o *Orchestrator) GetLightState(ctx context.Context, deviceID, model string) (DeviceState, error) {
	t, err := o.ResolveTransport(Device{DeviceID: deviceID, Model: model})
	if err != nil {
		return DeviceState{}, err
	}
	return t.GetLightState(ctx, deviceID, model)
}

// SendCommand executes one control command via the best transport.
func (o *Orchestrator) SendCommand(ctx context.Context, cmd Command) error {
	t, err := o.ResolveTransport(Device{DeviceID: cmd.DeviceID, Model: cmd.Model})
	if err != nil {
		return err
	}
	return t.SendCommand(ctx, cmd)
}

// candidate pairs a supporting transport with its last known health.
type candidate struct {
	transport Transport
	health    Health
	hasHealth bool
}

// rank orders candidates for selection: healthy transports first (by
// latency ascending), then unhealthy ones, then transports with no
// recorded health. A known-bad path is never preferred over a merely
// slow-but-working one, and an unproven path ranks last of all.
func (c candidate) rank() int {
	switch {
	case !c.hasHealth:
		return 2
	case c.health.Healthy:
		return 0
	default:
		return 1
	}
}

// ResolveTransport picks the best transport that supports the device.
//
// If no configured transport supports it, the returned error is a
// *NoTransportError carrying the current health snapshot.
func (o *Orchestrator) ResolveTransport(device Device) (Transport, error) {
	var candidates []candidate

	o.mu.RLock()
	for _, t := range o.transports {
		if !t.Supports(device) {
			continue
		}
		h, ok := o.health[t.Descriptor().Kind]
		candidates = append(candidates, candidate{transport: t, health: h, hasHealth: ok})
	}
	o.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, &NoTransportError{
			DeviceID: device.DeviceID,
			Model:    device.Model,
			Snapshot: o.HealthSnapshot(),
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := candidates[i].rank(), candidates[j].rank()
		if ri != rj {
			return ri < rj
		}
		if ri == 0 {
			return candidates[i].health.Latency < candidates[j].health.Latency
		}
		return false
	})

	best := candidates[0]
	o.logger.Debug("transport resolved",
		"device_id", device.DeviceID,
		"kind", best.transport.Descriptor().Kind,
		"healthy", best.hasHealth && best.health.Healthy,
	)
	return best.transport, nil
}

// RefreshHealth checks every configured transport concurrently, updates
// the health map, and notifies health listeners.
func (o *Orchestrator) RefreshHealth(ctx context.Context) error {
	healths := make([]Health, len(o.transports))

	g, ctx := errgroup.WithContext(ctx)
	for i, t := range o.transports {
		g.Go(func() error {
			healths[i] = t.CheckHealth(ctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	o.mu.Lock()
	for _, h := range healths {
		o.health[h.Descriptor.Kind] = h
	}
	o.mu.Unlock()

	for _, h := range healths {
		o.notify(h)
	}

	return ctx.Err()
}

// HealthSnapshot returns the current health of every checked transport,
// in registration order. The returned slice is a copy.
func (o *Orchestrator) HealthSnapshot() []Health {
	o.mu.RLock()
	defer o.mu.RUnlock()

	snapshot := make([]Health, 0, len(o.health))
	for _, t := range o.transports {
		if h, ok := o.health[t.Descriptor().Kind]; ok {
			snapshot = append(snapshot, h)
		}
	}
	return snapshot
}

// OnHealthChange subscribes to per-transport health updates emitted by
// RefreshHealth. The returned function unsubscribes.
func (o *Orchestrator) OnHealthChange(fn func(Health)) func() {
	o.listenerMu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.listenerMu.Unlock()

	return func() {
		o.listenerMu.Lock()
		delete(o.listeners, id)
		o.listenerMu.Unlock()
	}
}

// notify invokes health listeners outside the health lock.
func (o *Orchestrator) notify(h Health) {
	o.listenerMu.Lock()
	fns := make([]func(Health), 0, len(o.listeners))
	for _, fn := range o.listeners {
		fns = append(fns, fn)
	}
	o.listenerMu.Unlock()

	for _, fn := range fns {
		fn(h)
	}
}
