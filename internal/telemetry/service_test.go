package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goveedeck/core/internal/resilience"
	"github.com/goveedeck/core/internal/transport"
)

func TestRecordHealthRefresh(t *testing.T) {
	s := NewService()

	snapshot := []transport.Health{{
		Descriptor: transport.Descriptor{Kind: transport.KindCloud},
		Healthy:    true,
		Latency:    30 * time.Millisecond,
	}}

	s.RecordHealthRefresh(45*time.Millisecond, snapshot, nil)
	s.RecordHealthRefresh(5*time.Second, snapshot, errors.New("refresh failed"))

	snap := s.Snapshot()
	if snap.Health.Refreshes != 2 || snap.Health.Failures != 1 {
		t.Errorf("health stats = %+v, want 2 refreshes, 1 failure", snap.Health)
	}
	if snap.Health.LastDuration != 5*time.Second {
		t.Errorf("LastDuration = %v, want 5s (failed call records its duration)", snap.Health.LastDuration)
	}
	if snap.Health.LastFailure != "refresh failed" {
		t.Errorf("LastFailure = %q, want the failure detail", snap.Health.LastFailure)
	}
	if len(snap.Health.LastSnapshot) != 1 {
		t.Errorf("LastSnapshot has %d entries, want 1", len(snap.Health.LastSnapshot))
	}
}

func TestRecordDiscovery(t *testing.T) {
	s := NewService()

	s.RecordDiscovery(200*time.Millisecond, 3, false, nil)
	s.RecordDiscovery(10*time.Millisecond, 3, true, nil)
	s.RecordDiscovery(0, 0, false, errors.New("all channels failed"))

	snap := s.Snapshot()
	if snap.Discovery.Runs != 3 || snap.Discovery.Failures != 1 || snap.Discovery.StaleServed != 1 {
		t.Errorf("discovery stats = %+v, want 3 runs, 1 failure, 1 stale", snap.Discovery)
	}
	if snap.Discovery.LastCount != 3 {
		t.Errorf("LastCount = %d, want 3", snap.Discovery.LastCount)
	}
	if snap.Discovery.Duration != 210*time.Millisecond {
		t.Errorf("Duration = %v, want cumulative 210ms", snap.Discovery.Duration)
	}
}

func TestRecordCommand(t *testing.T) {
	s := NewService()

	on := transport.NewCommand("AA:BB", "H6159", transport.CommandTurn, "on")
	dim := transport.NewCommand("AA:BB", "H6159", transport.CommandBrightness, 40)

	s.RecordCommand(on, 80*time.Millisecond, nil)
	s.RecordCommand(on, 90*time.Millisecond, nil)
	s.RecordCommand(dim, 70*time.Millisecond, errors.New("device offline"))

	snap := s.Snapshot()
	if snap.Commands.Total != 3 || snap.Commands.Failures != 1 {
		t.Errorf("command stats = %+v, want 3 total, 1 failure", snap.Commands)
	}
	if snap.Commands.Duration != 240*time.Millisecond {
		t.Errorf("Duration = %v, want cumulative 240ms", snap.Commands.Duration)
	}

	turn := snap.Commands.ByCommand["turn"]
	if turn.Count != 2 || turn.Failures != 0 || turn.Duration != 170*time.Millisecond {
		t.Errorf("turn aggregate = %+v, want 2 clean calls totalling 170ms", turn)
	}
	dimmed := snap.Commands.ByCommand["brightness"]
	if dimmed.Count != 1 || dimmed.Failures != 1 || dimmed.Duration != 70*time.Millisecond {
		t.Errorf("brightness aggregate = %+v, want 1 failed call of 70ms", dimmed)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewService()
	s.RecordHealthRefresh(time.Millisecond, []transport.Health{{Healthy: true}}, nil)
	s.RecordCommand(transport.NewCommand("AA:BB", "H6159", transport.CommandTurn, "on"), time.Millisecond, nil)

	snap := s.Snapshot()
	snap.Commands.ByCommand["turn"] = CommandAggregate{Count: 999}
	snap.Health.LastSnapshot[0].Healthy = false

	fresh := s.Snapshot()
	if fresh.Commands.ByCommand["turn"].Count != 1 {
		t.Errorf("ByCommand leaked: got %d, want 1", fresh.Commands.ByCommand["turn"].Count)
	}
	if !fresh.Health.LastSnapshot[0].Healthy {
		t.Error("LastSnapshot leaked mutation into live counters")
	}
}

func TestSnapshotIncludesBreakerStats(t *testing.T) {
	f := resilience.NewFactory()
	_ = f.API().Do(context.Background(), func(context.Context) error { return nil })

	s := NewService(WithBreakers(f))
	snap := s.Snapshot()

	if snap.Breakers["api"].TotalSuccesses != 1 {
		t.Errorf("breaker stats = %+v, want api with 1 success", snap.Breakers)
	}
}

func TestReset(t *testing.T) {
	s := NewService()
	s.RecordDiscovery(time.Millisecond, 2, false, nil)
	s.RecordCommand(transport.NewCommand("AA:BB", "H6159", transport.CommandTurn, "on"), time.Millisecond, nil)

	s.Reset()

	snap := s.Snapshot()
	if snap.Discovery.Runs != 0 || snap.Commands.Total != 0 || len(snap.Commands.ByCommand) != 0 {
		t.Errorf("snapshot after Reset = %+v, want zeroed", snap)
	}
}
