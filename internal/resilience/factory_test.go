package resilience

import (
	"context"
	"testing"
	"time"
)

func TestFactoryPresets(t *testing.T) {
	api := APIConfig()
	if api.FailureThreshold != 5 || api.RecoveryTimeout != 30*time.Second ||
		api.SuccessThreshold != 2 || api.Timeout != 10*time.Second {
		t.Errorf("APIConfig() = %+v, want {5, 30s, 2, 10s}", api)
	}

	dev := DeviceConfig()
	if dev.FailureThreshold != 3 || dev.RecoveryTimeout != 60*time.Second ||
		dev.SuccessThreshold != 1 || dev.Timeout != 15*time.Second {
		t.Errorf("DeviceConfig() = %+v, want {3, 60s, 1, 15s}", dev)
	}
}

func TestFactoryAPIBreakerIsShared(t *testing.T) {
	f := NewFactory()

	if f.API() != f.API() {
		t.Error("API() should return the same breaker on every call")
	}
}

func TestFactoryDeviceBreakerPerID(t *testing.T) {
	f := NewFactory()

	a1 := f.Device("AA:BB:CC:DD:EE:FF:00:11")
	a2 := f.Device("AA:BB:CC:DD:EE:FF:00:11")
	b1 := f.Device("11:22:33:44:55:66:77:88")

	if a1 != a2 {
		t.Error("Device() should return the same breaker for the same ID")
	}
	if a1 == b1 {
		t.Error("Device() should return distinct breakers for distinct IDs")
	}
}

func TestFactoryDeviceBreakerIsolation(t *testing.T) {
	f := NewFactory()
	ctx := context.Background()

	// Trip one device's breaker; the other device and the API stay closed.
	bad := f.Device("bad-device")
	for i := 0; i < 3; i++ {
		_ = bad.Do(ctx, failing)
	}

	if got := bad.Stats().State; got != StateOpen {
		t.Fatalf("bad device state = %v, want open", got)
	}
	if got := f.Device("good-device").Stats().State; got != StateClosed {
		t.Errorf("good device state = %v, want closed", got)
	}
	if got := f.API().Stats().State; got != StateClosed {
		t.Errorf("api state = %v, want closed", got)
	}
}

func TestFactoryStatsAndResetAll(t *testing.T) {
	f := NewFactory()
	ctx := context.Background()

	_ = f.API().Do(ctx, succeeding)
	_ = f.Device("dev-1").Do(ctx, failing)

	stats := f.Stats()
	if len(stats) != 2 {
		t.Fatalf("Stats() has %d entries, want 2", len(stats))
	}
	if stats["api"].TotalSuccesses != 1 {
		t.Errorf("api TotalSuccesses = %d, want 1", stats["api"].TotalSuccesses)
	}
	if stats["dev-1"].TotalFailures != 1 {
		t.Errorf("dev-1 TotalFailures = %d, want 1", stats["dev-1"].TotalFailures)
	}

	f.ResetAll()
	for name, s := range f.Stats() {
		if s.TotalCalls != 0 || s.State != StateClosed {
			t.Errorf("breaker %q after ResetAll = %+v, want closed with zero counters", name, s)
		}
	}
}
