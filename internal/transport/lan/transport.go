package lan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/goveedeck/core/internal/transport"
)

// Transport is the LAN implementation of transport.Transport.
//
// A discovery pass starts the multicast listener on first use, waits
// out the scan window, then snapshots the devices that have responded.
// Devices are identified by IP address; the SKU doubles as the model.
// State reads echo the last commanded values because the LAN protocol
// has no state query.
type Transport struct {
	scanner    scanner
	logger     transport.Logger
	scanWindow time.Duration

	mu        sync.Mutex
	started   bool
	known     map[string]device
	lastState map[string]transport.DeviceState

	subMu   sync.Mutex
	subs    map[string]map[int]func(transport.DeviceState)
	nextSub int
}

// Config holds LAN transport settings.
type Config struct {
	// ScanWindow is how long a discovery pass listens for multicast
	// responses. Defaults to 3 seconds.
	ScanWindow time.Duration

	// Logger receives transport logs. Optional.
	Logger transport.Logger

	// ControllerLogger is handed to the underlying go-vee controller.
	// Defaults to a stderr logger at warn level.
	ControllerLogger *slog.Logger
}

// New creates a LAN transport. The multicast listener is not started
// until the first discovery or health check.
func New(cfg Config) *Transport {
	if cfg.ControllerLogger == nil {
		cfg.ControllerLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
	}
	return newWithScanner(newGoveeScanner(cfg.ControllerLogger), cfg)
}

// newWithScanner is the test seam.
func newWithScanner(s scanner, cfg Config) *Transport {
	if cfg.ScanWindow <= 0 {
		cfg.ScanWindow = 3 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Transport{
		scanner:    s,
		logger:     logger,
		scanWindow: cfg.ScanWindow,
		known:      make(map[string]device),
		lastState:  make(map[string]transport.DeviceState),
		subs:       make(map[string]map[int]func(transport.DeviceState)),
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
		Kind:     transport.KindLAN,
		Label:    "Govee LAN",
		Priority: 1,
	}
}

// Supports reports whether the device has been seen on the local
// network. Devices only reachable via the cloud return false.
func (t *Transport) Supports(d transport.Device) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.known[d.DeviceID]
	return ok
}

// ensureStarted launches the multicast listener once.
func (t *Transport) ensureStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	go func() {
		if err := t.scanner.start(); err != nil {
			t.logger.Error("lan listener stopped", "error", err)
		}
	}()
}

// scan runs one discovery pass: wait out the scan window, then
// snapshot the responding devices.
func (t *Transport) scan(ctx context.Context) ([]transport.Device, error) {
	t.ensureStarted()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(t.scanWindow):
	}

	found := t.scanner.devices()
	devices := make([]transport.Device, 0, len(found))

	t.mu.Lock()
	for _, d := range found {
		ip := d.IP()
		t.known[ip] = d
		devices = append(devices, transport.Device{
			DeviceID:     ip,
			Model:        d.SKU(),
			Name:         fmt.Sprintf("Govee %s (%s)", d.SKU(), ip),
			Controllable: true,
			SupportedCommands: []string{
				string(transport.CommandTurn),
				string(transport.CommandBrightness),
				string(transport.CommandColor),
				string(transport.CommandColorTem),
			},
		})
	}
	t.mu.Unlock()

	return devices, nil
}

// CheckHealth runs a scan pass and reports healthy when at least one
// device responded. The latency covers the full scan window.
func (t *Transport) CheckHealth(ctx context.Context) transport.Health {
	start := time.Now()
	devices, err := t.scan(ctx)
	if err == nil && len(devices) == 0 {
		err = ErrNoDevices
	}

	return transport.Health{
		Descriptor:  t.Descriptor(),
		Healthy:     err == nil,
		LastChecked: time.Now(),
		Latency:     time.Since(start),
		Err:         err,
	}
}

// DiscoverDevices implements transport.Transport. LAN results are
// always fresh: they come straight off the wire.
func (t *Transport) DiscoverDevices(ctx context.Context) (transport.DiscoveryResult, error) {
	devices, err := t.scan(ctx)
	if err != nil {
		return transport.DiscoveryResult{}, err
	}
	t.logger.Debug("lan scan complete", "devices", len(devices))
	return transport.DiscoveryResult{Devices: devices}, nil
}

// GetLightState returns the last commanded state for a known device.
func (t *Transport) GetLightState(_ context.Context, deviceID, model string) (transport.DeviceState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.known[deviceID]; !ok {
		return transport.DeviceState{}, fmt.Errorf("%w: %s", transport.ErrUnknownDevice, deviceID)
	}
	if state, ok := t.lastState[deviceID]; ok {
		return state, nil
	}
	return transport.DeviceState{
		DeviceID:   deviceID,
		Model:      model,
		Online:     true,
		Properties: map[string]any{},
	}, nil
}

// SendCommand executes a command against a device seen on the network.
func (t *Transport) SendCommand(_ context.Context, cmd transport.Command) error {
	t.mu.Lock()
	dev, ok := t.known[cmd.DeviceID]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", transport.ErrUnknownDevice, cmd.DeviceID)
	}

	var err error
	switch cmd.Name {
	case transport.CommandTurn:
		on, valErr := asOnOff(cmd.Value)
		if valErr != nil {
			return valErr
		}
		if on {
			err = dev.TurnOn()
		} else {
			err = dev.TurnOff()
		}

	case transport.CommandBrightness:
		v, valErr := asInt(cmd.Value)
		if valErr != nil {
			return valErr
		}
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		err = dev.SetBrightnessPercent(uint(v))

	case transport.CommandColor:
		color, isColor := cmd.Value.(transport.ColorValue)
		if !isColor {
			return fmt.Errorf("lan: color command needs a ColorValue, got %T", cmd.Value)
		}
		err = dev.SetRGB(uint(color.R), uint(color.G), uint(color.B))

	case transport.CommandColorTem:
		k, valErr := asInt(cmd.Value)
		if valErr != nil {
			return valErr
		}
		err = dev.SetKelvin(uint(k))

	default:
		return fmt.Errorf("%w: %s over lan", transport.ErrUnsupportedCommand, cmd.Name)
	}

	if err != nil {
		t.logger.Warn("lan command failed",
			"command_id", cmd.ID,
			"device_id", cmd.DeviceID,
			"command", cmd.Name,
			"error", err,
		)
		return err
	}

	t.recordState(cmd)
	return nil
}

// recordState folds a successful command into the echoed device state
// and notifies subscribers.
func (t *Transport) recordState(cmd transport.Command) {
	t.mu.Lock()
	state, ok := t.lastState[cmd.DeviceID]
	if !ok {
		state = transport.DeviceState{
			DeviceID:   cmd.DeviceID,
			Model:      cmd.Model,
			Online:     true,
			Properties: map[string]any{},
		}
	}
	switch cmd.Name {
	case transport.CommandTurn:
		if on, err := asOnOff(cmd.Value); err == nil {
			if on {
				state.Properties["powerState"] = "on"
			} else {
				state.Properties["powerState"] = "off"
			}
		}
	case transport.CommandBrightness:
		if v, err := asInt(cmd.Value); err == nil {
			state.Properties["brightness"] = v
		}
	case transport.CommandColor:
		if c, isColor := cmd.Value.(transport.ColorValue); isColor {
			state.Properties["color"] = c
		}
	case transport.CommandColorTem:
		if v, err := asInt(cmd.Value); err == nil {
			state.Properties["colorTem"] = v
		}
	}
	t.lastState[cmd.DeviceID] = state
	t.mu.Unlock()

	t.notify(cmd.DeviceID, state)
}

// Subscribe implements transport.StateSubscriber. Updates fire after
// each successful command to the device.
func (t *Transport) Subscribe(_ context.Context, deviceID, _ string, onState func(transport.DeviceState)) (func(), error) {
	t.mu.Lock()
	_, ok := t.known[deviceID]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", transport.ErrUnknownDevice, deviceID)
	}

	t.subMu.Lock()
	id := t.nextSub
	t.nextSub++
	if t.subs[deviceID] == nil {
		t.subs[deviceID] = make(map[int]func(transport.DeviceState))
	}
	t.subs[deviceID][id] = onState
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.subs[deviceID], id)
		t.subMu.Unlock()
	}, nil
}

func (t *Transport) notify(deviceID string, state transport.DeviceState) {
	t.subMu.Lock()
	fns := make([]func(transport.DeviceState), 0, len(t.subs[deviceID]))
	for _, fn := range t.subs[deviceID] {
		fns = append(fns, fn)
	}
	t.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Close stops the multicast listener.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		t.scanner.shutdown()
		t.started = false
	}
	return nil
}

// asOnOff coerces a turn command value. The API uses the strings "on"
// and "off"; booleans are accepted for internal callers.
func asOnOff(v any) (bool, error) {
	switch val := v.(type) {
	case string:
		switch val {
		case "on":
			return true, nil
		case "off":
			return false, nil
		}
		return false, fmt.Errorf("lan: turn value must be \"on\" or \"off\", got %q", val)
	case bool:
		return val, nil
	default:
		return false, fmt.Errorf("lan: turn value must be a string, got %T", v)
	}
}

// asInt coerces a numeric command value. JSON-decoded payloads arrive
// as float64.
func asInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	default:
		return 0, fmt.Errorf("lan: numeric value expected, got %T", v)
	}
}
