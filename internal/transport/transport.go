package transport

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a communication channel class.
type Kind string

// Transport kinds.
const (
	KindCloud Kind = "cloud"
	KindLAN   Kind = "lan"
)

// Descriptor is the immutable identity of a transport.
type Descriptor struct {
	// Kind is the channel class ("cloud", "lan").
	Kind Kind `json:"kind"`

	// Label is a human-readable name for logs and diagnostics.
	Label string `json:"label"`

	// Priority is an informational routing hint; lower is preferred.
	// Actual routing is driven by observed health, not priority.
	Priority int `json:"priority"`
}

// Health is the most recently observed status of one transport.
// It is produced by a transport's health check and held by the
// orchestrator; consumers receive copies and must not rely on mutation.
type Health struct {
	Descriptor  Descriptor    `json:"descriptor"`
	Healthy     bool          `json:"healthy"`
	LastChecked time.Time     `json:"last_checked"`
	Latency     time.Duration `json:"latency"`
	Err         error         `json:"-"`
}

// Capabilities records what a device can do, derived once at normalization
// time rather than inferred ad hoc at call sites.
type Capabilities struct {
	Power        bool `json:"power"`
	Brightness   bool `json:"brightness"`
	Color        bool `json:"color"`
	ColorTem     bool `json:"color_tem"`
	Scenes       bool `json:"scenes"`
	SegmentColor bool `json:"segment_color"`
	Music        bool `json:"music"`
}

// Device is a raw discovery record as reported by a transport.
// Capabilities is nil when the transport only knows command names;
// normalization fills it in downstream.
type Device struct {
	DeviceID          string        `json:"device_id"`
	Model             string        `json:"model"`
	Name              string        `json:"name"`
	Controllable      bool          `json:"controllable"`
	Retrievable       bool          `json:"retrievable"`
	SupportedCommands []string      `json:"supported_commands,omitempty"`
	Capabilities      *Capabilities `json:"capabilities,omitempty"`
}

// Key returns the merge key used when combining discovery results from
// multiple transports.
func (d Device) Key() string {
	return d.DeviceID + "|" + d.Model
}

// DiscoveryResult is the outcome of one discovery pass.
// Stale is true when the result came from a transport's own cache rather
// than a fresh fetch.
type DiscoveryResult struct {
	Devices []Device `json:"devices"`
	Stale   bool     `json:"stale"`
}

// CommandName identifies a device control operation.
type CommandName string

// Command names, matching the Govee API command vocabulary.
const (
	CommandTurn         CommandName = "turn"
	CommandBrightness   CommandName = "brightness"
	CommandColor        CommandName = "color"
	CommandColorTem     CommandName = "colorTem"
	CommandScene        CommandName = "scene"
	CommandSegmentColor CommandName = "segmentColor"
	CommandMusicMode    CommandName = "musicMode"
)

// ColorValue is the payload for color and segment-color commands.
type ColorValue struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Command is one control instruction for a device. Transient: constructed
// per call, never persisted.
type Command struct {
	// ID correlates log lines and telemetry for one command.
	ID string `json:"id"`

	DeviceID string      `json:"device_id"`
	Model    string      `json:"model"`
	Name     CommandName `json:"name"`

	// Value is the command payload: string for turn ("on"/"off"), int for
	// brightness and colorTem, ColorValue for color commands, or a
	// command-specific map for scenes and music modes.
	Value any `json:"value"`
}

// NewCommand builds a Command with a fresh correlation ID.
func NewCommand(deviceID, model string, name CommandName, value any) Command {
	return Command{
		ID:       uuid.NewString(),
		DeviceID: deviceID,
		Model:    model,
		Name:     name,
		Value:    value,
	}
}

// DeviceState is a point-in-time device state read.
type DeviceState struct {
	DeviceID   string         `json:"device_id"`
	Model      string         `json:"model"`
	Online     bool           `json:"online"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Transport abstracts one communication channel to Govee devices.
// Only a cloud channel and a LAN channel exist today; any new channel
// implements this contract and plugs into the orchestrator unchanged.
type Transport interface {
	// Descriptor returns the transport's immutable identity.
	Descriptor() Descriptor

	// CheckHealth probes the channel and reports its current status.
	// It never returns an error; failure is encoded in Health.
	CheckHealth(ctx context.Context) Health

	// DiscoverDevices enumerates the devices reachable over this channel.
	DiscoverDevices(ctx context.Context) (DiscoveryResult, error)

	// GetLightState reads the current state of one device.
	GetLightState(ctx context.Context, deviceID, model string) (DeviceState, error)

	// SendCommand executes one control command.
	SendCommand(ctx context.Context, cmd Command) error

	// Supports reports whether this transport can reach the device
	// (credentials configured, device seen on the local network, ...).
	Supports(device Device) bool
}

// StateSubscriber is an optional transport extension for push state
// updates. Callers type-assert against the Transport.
type StateSubscriber interface {
	// Subscribe registers onState for updates to one device and returns
	// an unsubscribe function.
	Subscribe(ctx context.Context, deviceID, model string, onState func(DeviceState)) (func(), error)
}
