package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goveedeck/core/internal/transport"
)

// Orchestrator is the slice of the transport orchestrator the health
// service depends on.
type Orchestrator interface {
	RefreshHealth(ctx context.Context) error
	HealthSnapshot() []transport.Health
	OnHealthChange(fn func(transport.Health)) func()
}

// Recorder receives timing and outcome data for each refresh. The
// telemetry service implements this; a nil recorder is allowed.
type Recorder interface {
	RecordHealthRefresh(elapsed time.Duration, snapshot []transport.Health, err error)
}

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service serves transport health with TTL caching and request
// coalescing.
type Service struct {
	orch     Orchestrator
	recorder Recorder
	logger   Logger
	ttl      time.Duration

	group singleflight.Group

	mu        sync.Mutex
	snapshot  []transport.Health
	fetchedAt time.Time

	// now is a test hook.
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder attaches a telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger attaches a logger.
func WithLogger(l Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a health service over the orchestrator. A ttl of
// zero or less defaults to 10 seconds.
func NewService(orch Orchestrator, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	s := &Service{
		orch:   orch,
		logger: noopLogger{},
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Health returns the current health of every transport.
//
// Within the TTL the cached snapshot is returned without touching the
// network. A forced or expired read refreshes; concurrent callers share
// one in-flight refresh and all receive its result. A refresh failure
// is logged, not propagated: the per-transport health the orchestrator
// holds after the attempt is served and cached either way.
func (s *Service) Health(ctx context.Context, force bool) ([]transport.Health, error) {
	if !force {
		if snap, ok := s.cached(); ok {
			return snap, nil
		}
	}

	// The first caller's ctx drives the shared refresh; a canceled
	// follower still gets the result the leader produced.
	v, err, _ := s.group.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]transport.Health), nil
}

// refresh performs one orchestrator refresh and caches whatever
// snapshot the attempt leaves behind. A failed refresh already shows up
// in the per-transport health the orchestrator holds, so the snapshot
// read is cached with a fresh expiry either way and the error is only
// logged and recorded.
func (s *Service) refresh(ctx context.Context) ([]transport.Health, error) {
	start := s.now()
	err := s.orch.RefreshHealth(ctx)
	elapsed := s.now().Sub(start)

	snapshot := s.orch.HealthSnapshot()
	s.mu.Lock()
	s.snapshot = snapshot
	s.fetchedAt = s.now()
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordHealthRefresh(elapsed, snapshot, err)
	}

	if err != nil {
		s.logger.Warn("health refresh failed",
			"error", err,
			"transports", len(snapshot),
			"elapsed", elapsed.String(),
		)
		return copySnapshot(snapshot), nil
	}

	healthy := 0
	for _, h := range snapshot {
		if h.Healthy {
			healthy++
		}
	}
	s.logger.Info("transport health refreshed",
		"healthy", healthy,
		"total", len(snapshot),
		"elapsed", elapsed.String(),
	)

	return copySnapshot(snapshot), nil
}

// On subscribes to per-transport health events. The returned function
// unsubscribes.
func (s *Service) On(fn func(transport.Health)) func() {
	return s.orch.OnHealthChange(fn)
}

// cached returns a copy of the snapshot if it is within the TTL.
func (s *Service) cached() ([]transport.Health, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil || s.now().Sub(s.fetchedAt) > s.ttl {
		return nil, false
	}
	return copySnapshot(s.snapshot), true
}

func copySnapshot(snapshot []transport.Health) []transport.Health {
	out := make([]transport.Health, len(snapshot))
	copy(out, snapshot)
	return out
}
