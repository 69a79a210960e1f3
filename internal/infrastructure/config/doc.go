// Package config provides configuration loading for the goveedeck daemon.
//
// Configuration is read from a YAML file with three layers of precedence:
// hardcoded defaults, file values, then GOVEEDECK_* environment variables.
// Secrets (the Govee API key, MQTT credentials, the InfluxDB token) should
// always be supplied through the environment rather than the file.
//
// The core library packages (resilience, transport, health, lights,
// telemetry) never read configuration themselves; they take constructor
// options with documented defaults. This package exists only so cmd/goveedeck
// can wire those options from one place.
package config
