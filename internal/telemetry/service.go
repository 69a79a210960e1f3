package telemetry

import (
	"sync"
	"time"

	"github.com/goveedeck/core/internal/resilience"
	"github.com/goveedeck/core/internal/transport"
)

// HealthStats covers transport health refreshes. LastFailure holds the
// detail of the most recent failed refresh and stays set until the next
// failure replaces it.
type HealthStats struct {
	Refreshes     int64              `json:"refreshes"`
	Failures      int64              `json:"failures"`
	LastDuration  time.Duration      `json:"last_duration"`
	LastRefreshAt time.Time          `json:"last_refresh_at"`
	LastSnapshot  []transport.Health `json:"last_snapshot,omitempty"`
	LastFailure   string             `json:"last_failure,omitempty"`
}

// DiscoveryStats covers device discovery runs. Duration accumulates
// across every run, failed ones included.
type DiscoveryStats struct {
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	StaleServed  int64         `json:"stale_served"`
	Duration     time.Duration `json:"duration"`
	LastDuration time.Duration `json:"last_duration"`
	LastCount    int           `json:"last_count"`
	LastRunAt    time.Time     `json:"last_run_at"`
}

// CommandAggregate accumulates the outcomes of one command name.
type CommandAggregate struct {
	Count    int64         `json:"count"`
	Failures int64         `json:"failures"`
	Duration time.Duration `json:"duration"`
}

// CommandStats covers device control commands, in total and broken
// down per command name.
type CommandStats struct {
	Total        int64                       `json:"total"`
	Failures     int64                       `json:"failures"`
	Duration     time.Duration               `json:"duration"`
	LastDuration time.Duration               `json:"last_duration"`
	ByCommand    map[string]CommandAggregate `json:"by_command,omitempty"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Health    HealthStats                 `json:"health"`
	Discovery DiscoveryStats              `json:"discovery"`
	Commands  CommandStats                `json:"commands"`
	Breakers  map[string]resilience.Stats `json:"breakers,omitempty"`
	TakenAt   time.Time                   `json:"taken_at"`
}

// Service accumulates telemetry. All methods are thread-safe.
type Service struct {
	mu        sync.Mutex
	health    HealthStats
	discovery DiscoveryStats
	commands  CommandStats

	breakers *resilience.Factory

	// now is a test hook.
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBreakers includes circuit breaker statistics in snapshots.
func WithBreakers(f *resilience.Factory) Option {
	return func(s *Service) { s.breakers = f }
}

// NewService creates an empty telemetry service.
func NewService(opts ...Option) *Service {
	s := &Service{
		commands: CommandStats{ByCommand: make(map[string]CommandAggregate)},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordHealthRefresh implements health.Recorder. Failed refreshes
// record their duration and snapshot too; only the failure detail is
// extra.
func (s *Service) RecordHealthRefresh(elapsed time.Duration, snapshot []transport.Health, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.Refreshes++
	s.health.LastDuration = elapsed
	s.health.LastRefreshAt = s.now()
	s.health.LastSnapshot = copyHealth(snapshot)
	if err != nil {
		s.health.Failures++
		s.health.LastFailure = err.Error()
	}
}

// RecordDiscovery notes one discovery run.
func (s *Service) RecordDiscovery(elapsed time.Duration, count int, stale bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.discovery.Runs++
	s.discovery.Duration += elapsed
	s.discovery.LastDuration = elapsed
	if err != nil {
		s.discovery.Failures++
		return
	}
	if stale {
		s.discovery.StaleServed++
	}
	s.discovery.LastCount = count
	s.discovery.LastRunAt = s.now()
}

// RecordCommand notes one control command outcome.
func (s *Service) RecordCommand(cmd transport.Command, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands.Total++
	s.commands.Duration += elapsed
	s.commands.LastDuration = elapsed

	agg := s.commands.ByCommand[string(cmd.Name)]
	agg.Count++
	agg.Duration += elapsed
	if err != nil {
		s.commands.Failures++
		agg.Failures++
	}
	s.commands.ByCommand[string(cmd.Name)] = agg
}

// Snapshot returns a deep copy of all counters. Mutating the returned
// value never affects the live counters.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Health:    s.health,
		Discovery: s.discovery,
		Commands:  s.commands,
		TakenAt:   s.now(),
	}
	snap.Health.LastSnapshot = copyHealth(s.health.LastSnapshot)
	snap.Commands.ByCommand = make(map[string]CommandAggregate, len(s.commands.ByCommand))
	for k, v := range s.commands.ByCommand {
		snap.Commands.ByCommand[k] = v
	}
	if s.breakers != nil {
		snap.Breakers = s.breakers.Stats()
	}
	return snap
}

// Reset zeroes all counters. Breaker statistics are owned by the
// factory and are not touched.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health = HealthStats{}
	s.discovery = DiscoveryStats{}
	s.commands = CommandStats{ByCommand: make(map[string]CommandAggregate)}
}

func copyHealth(in []transport.Health) []transport.Health {
	if in == nil {
		return nil
	}
	out := make([]transport.Health, len(in))
	copy(out, in)
	return out
}
