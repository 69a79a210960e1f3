package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes a temporary config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
cloud:
  api_key: test-key
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Health.CacheTTL != 10 {
		t.Errorf("Health.CacheTTL = %d, want default 10", cfg.Health.CacheTTL)
	}
	if cfg.Discovery.CacheTTL != 15 {
		t.Errorf("Discovery.CacheTTL = %d, want default 15", cfg.Discovery.CacheTTL)
	}
	if cfg.Cloud.RequestTimeout != 10 {
		t.Errorf("Cloud.RequestTimeout = %d, want default 10", cfg.Cloud.RequestTimeout)
	}
	if cfg.MQTT.Broker.ClientID != "goveedeck" {
		t.Errorf("MQTT.Broker.ClientID = %q, want goveedeck", cfg.MQTT.Broker.ClientID)
	}
	if cfg.MQTT.Reconnect.InitialDelay != 1 || cfg.MQTT.Reconnect.MaxDelay != 60 {
		t.Errorf("MQTT.Reconnect = %+v, want defaults {1 60}", cfg.MQTT.Reconnect)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
cloud:
  api_key: test-key
health:
  cache_ttl: 5
discovery:
  cache_ttl: 30
lan:
  enabled: true
  scan_window: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Health.CacheTTL != 5 {
		t.Errorf("Health.CacheTTL = %d, want 5", cfg.Health.CacheTTL)
	}
	if cfg.Discovery.CacheTTL != 30 {
		t.Errorf("Discovery.CacheTTL = %d, want 30", cfg.Discovery.CacheTTL)
	}
	if !cfg.LAN.Enabled || cfg.LAN.ScanWindow != 5 {
		t.Errorf("LAN = %+v, want enabled with scan_window 5", cfg.LAN)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
cloud:
  api_key: from-file
`)

	t.Setenv("GOVEEDECK_CLOUD_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cloud.APIKey != "from-env" {
		t.Errorf("Cloud.APIKey = %q, want from-env", cfg.Cloud.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() with missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default",
			mutate: func(c *Config) { c.Cloud.APIKey = "key" },
		},
		{
			name: "no transport enabled",
			mutate: func(c *Config) {
				c.Cloud.Enabled = false
				c.LAN.Enabled = false
			},
			wantErr: "at least one transport",
		},
		{
			name:    "cloud enabled without key",
			mutate:  func(c *Config) {},
			wantErr: "cloud.api_key is required",
		},
		{
			name: "non-positive health ttl",
			mutate: func(c *Config) {
				c.Cloud.APIKey = "key"
				c.Health.CacheTTL = 0
			},
			wantErr: "health.cache_ttl",
		},
		{
			name: "invalid qos",
			mutate: func(c *Config) {
				c.Cloud.APIKey = "key"
				c.MQTT.QoS = 3
			},
			wantErr: "mqtt.qos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
