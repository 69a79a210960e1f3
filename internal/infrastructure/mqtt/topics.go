package mqtt

import "fmt"

// Topic prefixes for the goveedeck MQTT surface.
//
// The daemon publishes health, discovery and telemetry under the
// goveedeck/ prefix and accepts device commands on goveedeck/command/+.
const (
	// TopicPrefix is the base for all goveedeck topics.
	TopicPrefix = "goveedeck"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "goveedeck/system"
)

// Topics provides builders for goveedeck MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	healthTopic := topics.TransportHealth("cloud")
//	// Returns: "goveedeck/health/cloud"
type Topics struct{}

// SystemStatus returns the daemon status topic, also used for the LWT.
//
// Example: goveedeck/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// TransportHealth returns the health topic for one transport kind.
//
// Example: goveedeck/health/cloud
func (Topics) TransportHealth(kind string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, kind)
}

// AllTransportHealth returns a pattern matching every transport's
// health topic.
//
// Pattern: goveedeck/health/+
func (Topics) AllTransportHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefix)
}

// Discovery returns the retained device-list topic.
//
// Example: goveedeck/discovery
func (Topics) Discovery() string {
	return fmt.Sprintf("%s/discovery", TopicPrefix)
}

// DeviceState returns the state topic for one device.
//
// Example: goveedeck/device/AA:BB:CC:DD:EE:FF:00:11/state
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefix, deviceID)
}

// AllDeviceStates returns a pattern matching every device state topic.
//
// Pattern: goveedeck/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/device/+/state", TopicPrefix)
}

// DeviceCommand returns the command intake topic for one device.
//
// Example: goveedeck/command/AA:BB:CC:DD:EE:FF:00:11
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// AllDeviceCommands returns a pattern matching every command topic.
//
// Pattern: goveedeck/command/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// Telemetry returns the telemetry snapshot topic.
//
// Example: goveedeck/telemetry
func (Topics) Telemetry() string {
	return fmt.Sprintf("%s/telemetry", TopicPrefix)
}

// AllTopics returns a pattern matching all goveedeck topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: goveedeck/#
func (Topics) AllTopics() string {
	return "goveedeck/#"
}
