package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the goveedeck daemon.
// All configuration is loaded from YAML and can be overridden by environment
// variables. The core library packages do not read this directly; the daemon
// translates it into constructor options.
type Config struct {
	Cloud     CloudConfig     `yaml:"cloud"`
	LAN       LANConfig       `yaml:"lan"`
	Health    HealthConfig    `yaml:"health"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CloudConfig contains Govee cloud API settings.
type CloudConfig struct {
	// Enabled toggles the cloud transport.
	Enabled bool `yaml:"enabled"`

	// APIKey is the Govee developer API key.
	// Always set via GOVEEDECK_CLOUD_API_KEY in production.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the Govee API endpoint. Empty means the default
	// (https://developer-api.govee.com). Used for testing.
	BaseURL string `yaml:"base_url,omitempty"`

	// RequestTimeout is the HTTP client timeout in seconds.
	RequestTimeout int `yaml:"request_timeout"`

	// DiscoveryCacheTTL is how long (seconds) the cloud transport may serve
	// its own device list cache when the remote API is unreachable.
	DiscoveryCacheTTL int `yaml:"discovery_cache_ttl"`
}

// LANConfig contains Govee LAN protocol settings.
type LANConfig struct {
	// Enabled toggles the LAN transport. Devices must have LAN control
	// switched on in the Govee app to be reachable.
	Enabled bool `yaml:"enabled"`

	// ScanWindow is how long (seconds) a discovery pass listens for
	// multicast responses before reporting results.
	ScanWindow int `yaml:"scan_window"`
}

// HealthConfig contains transport health refresh settings.
type HealthConfig struct {
	// CacheTTL is how long (seconds) a health snapshot stays fresh.
	CacheTTL int `yaml:"cache_ttl"`

	// RefreshInterval is how often (seconds) the daemon forces a refresh.
	RefreshInterval int `yaml:"refresh_interval"`
}

// DiscoveryConfig contains device discovery settings.
type DiscoveryConfig struct {
	// CacheTTL is how long (seconds) a discovery result stays fresh.
	CacheTTL int `yaml:"cache_ttl"`

	// RefreshInterval is how often (seconds) the daemon re-runs discovery.
	RefreshInterval int `yaml:"refresh_interval"`
}

// DatabaseConfig contains SQLite database settings for the device catalogue.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for health publishing.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTReconnectConfig controls reconnection backoff (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains InfluxDB connection settings for telemetry export.
type InfluxDBConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	Org            string `yaml:"org"`
	Bucket         string `yaml:"bucket"`
	BatchSize      int    `yaml:"batch_size"`
	FlushInterval  int    `yaml:"flush_interval"`
	ExportInterval int    `yaml:"export_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GOVEEDECK_SECTION_KEY
// For example: GOVEEDECK_CLOUD_API_KEY, GOVEEDECK_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Cloud: CloudConfig{
			Enabled:           true,
			RequestTimeout:    10,
			DiscoveryCacheTTL: 60,
		},
		LAN: LANConfig{
			Enabled:    false,
			ScanWindow: 3,
		},
		Health: HealthConfig{
			CacheTTL:        10,
			RefreshInterval: 30,
		},
		Discovery: DiscoveryConfig{
			CacheTTL:        15,
			RefreshInterval: 300,
		},
		Database: DatabaseConfig{
			Path:        "./data/goveedeck.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "goveedeck",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:      100,
			FlushInterval:  10,
			ExportInterval: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GOVEEDECK_CLOUD_API_KEY"); v != "" {
		cfg.Cloud.APIKey = v
	}
	if v := os.Getenv("GOVEEDECK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("GOVEEDECK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GOVEEDECK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GOVEEDECK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("GOVEEDECK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if !c.Cloud.Enabled && !c.LAN.Enabled {
		errs = append(errs, "at least one transport (cloud or lan) must be enabled")
	}
	if c.Cloud.Enabled && c.Cloud.APIKey == "" {
		errs = append(errs, "cloud.api_key is required when cloud is enabled (set GOVEEDECK_CLOUD_API_KEY)")
	}
	if c.Health.CacheTTL <= 0 {
		errs = append(errs, "health.cache_ttl must be positive")
	}
	if c.Discovery.CacheTTL <= 0 {
		errs = append(errs, "discovery.cache_ttl must be positive")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// CloudRequestTimeout returns the cloud HTTP timeout as a Duration.
func (c *Config) CloudRequestTimeout() time.Duration {
	return time.Duration(c.Cloud.RequestTimeout) * time.Second
}

// HealthCacheTTL returns the health cache TTL as a Duration.
func (c *Config) HealthCacheTTL() time.Duration {
	return time.Duration(c.Health.CacheTTL) * time.Second
}

// DiscoveryCacheTTL returns the discovery cache TTL as a Duration.
func (c *Config) DiscoveryCacheTTL() time.Duration {
	return time.Duration(c.Discovery.CacheTTL) * time.Second
}
