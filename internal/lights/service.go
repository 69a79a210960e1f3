package lights

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goveedeck/core/internal/transport"
)

// Orchestrator is the slice of the transport orchestrator the lights
// service depends on.
type Orchestrator interface {
	DiscoverDevices(ctx context.Context) (transport.DiscoveryResult, error)
	GetLightState(ctx context.Context, deviceID, model string) (transport.DeviceState, error)
	SendCommand(ctx context.Context, cmd transport.Command) error
}

// Catalogue persists the device list across restarts. The SQLite Store
// implements this; a nil catalogue disables persistence.
type Catalogue interface {
	SaveAll(ctx context.Context, lights []Light) error
	LoadAll(ctx context.Context) ([]Light, error)
}

// Recorder receives discovery and command telemetry. The telemetry
// service implements this; a nil recorder is allowed.
type Recorder interface {
	RecordDiscovery(elapsed time.Duration, count int, stale bool, err error)
	RecordCommand(cmd transport.Command, elapsed time.Duration, err error)
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

// Service is the device-facing API: cached discovery, normalized
// capabilities, state reads and command execution.
type Service struct {
	orch      Orchestrator
	catalogue Catalogue
	recorder  Recorder
	logger    Logger
	ttl       time.Duration

	group singleflight.Group

	mu         sync.Mutex
	cache      []Light
	cacheStale bool
	fetchedAt  time.Time

	// now is a test hook.
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCatalogue attaches a persistent device catalogue.
func WithCatalogue(c Catalogue) Option {
	return func(s *Service) { s.catalogue = c }
}

// WithRecorder attaches a telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger attaches a logger.
func WithLogger(l Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a lights service. A ttl of zero or less defaults
// to 15 seconds.
func NewService(orch Orchestrator, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Second
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

// Seed loads the persisted catalogue into the cache, marked stale, so
// deck keys render immediately after startup while the first live
// discovery runs. A missing or empty catalogue is not an error.
func (s *Service) Seed(ctx context.Context) error {
	if s.catalogue == nil {
		return nil
	}

	stored, err := s.catalogue.LoadAll(ctx)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return nil
	}

	s.mu.Lock()
	if s.cache == nil {
		s.cache = stored
		s.cacheStale = true
		s.fetchedAt = s.now()
	}
	s.mu.Unlock()

	s.logger.Info("device catalogue seeded", "devices", len(stored))
	return nil
}

// Discover returns the known lights. The bool result reports staleness:
// true when the list came from a cache or catalogue instead of a fresh
// transport pass.
//
// Within the TTL the cached list is returned. An expired or forced read
// triggers one shared discovery; concurrent callers coalesce onto it.
// On failure the last known list is served stale; only a cold start
// with an empty catalogue surfaces the error.
func (s *Service) Discover(ctx context.Context, force bool) ([]Light, bool, error) {
	if !force {
		if lights, stale, ok := s.cached(); ok {
			return lights, stale, nil
		}
	}

	v, err, _ := s.group.Do("discover", func() (any, error) {
		lights, stale, refreshErr := s.refresh(ctx)
		if refreshErr != nil {
			return nil, refreshErr
		}
		return discoverOutcome{lights: lights, stale: stale}, nil
	})
	if err != nil {
		return nil, false, err
	}
	outcome := v.(discoverOutcome)
	return outcome.lights, outcome.stale, nil
}

type discoverOutcome struct {
	lights []Light
	stale  bool
}

// refresh runs one live discovery pass and updates cache and catalogue.
func (s *Service) refresh(ctx context.Context) ([]Light, bool, error) {
	start := s.now()
	result, err := s.orch.DiscoverDevices(ctx)
	elapsed := s.now().Sub(start)

	if s.recorder != nil {
		s.recorder.RecordDiscovery(elapsed, len(result.Devices), result.Stale || err != nil, err)
	}

	if err != nil {
		if lights, ok := s.lastKnown(); ok {
			s.logger.Warn("discovery failed, serving last known lights",
				"devices", len(lights),
				"error", err,
			)
			return lights, true, nil
		}
		return nil, false, err
	}

	now := s.now()
	lights := make([]Light, 0, len(result.Devices))
	for _, d := range result.Devices {
		lights = append(lights, Light{
			Device:    normalize(d),
			FirstSeen: now,
			LastSeen:  now,
		})
	}

	s.mu.Lock()
	s.cache = copyLights(lights)
	s.cacheStale = result.Stale
	s.fetchedAt = now
	s.mu.Unlock()

	if s.catalogue != nil && !result.Stale {
		if saveErr := s.catalogue.SaveAll(ctx, lights); saveErr != nil {
			s.logger.Warn("persisting device catalogue failed", "error", saveErr)
		}
	}

	s.logger.Info("discovery complete",
		"devices", len(lights),
		"stale", result.Stale,
		"elapsed", elapsed.String(),
	)
	return lights, result.Stale, nil
}

// CachedLights returns the cached list when it is within the TTL,
// without triggering discovery. An expired or empty cache yields nil.
func (s *Service) CachedLights() []Light {
	lights, _, ok := s.cached()
	if !ok {
		return nil
	}
	return lights
}

// GetLightState reads the current state of one device.
func (s *Service) GetLightState(ctx context.Context, deviceID, model string) (transport.DeviceState, error) {
	return s.orch.GetLightState(ctx, deviceID, model)
}

// SendCommand executes one control command and records its outcome.
func (s *Service) SendCommand(ctx context.Context, cmd transport.Command) error {
	start := s.now()
	err := s.orch.SendCommand(ctx, cmd)
	elapsed := s.now().Sub(start)

	if s.recorder != nil {
		s.recorder.RecordCommand(cmd, elapsed, err)
	}
	if err != nil {
		s.logger.Warn("command failed",
			"command_id", cmd.ID,
			"device_id", cmd.DeviceID,
			"command", cmd.Name,
			"error", err,
		)
		return err
	}

	s.logger.Debug("command sent",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Name,
		"elapsed", elapsed.String(),
	)
	return nil
}

// cached returns the cache when it is within the TTL.
func (s *Service) cached() ([]Light, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil || s.now().Sub(s.fetchedAt) > s.ttl {
		return nil, false, false
	}
	return copyLights(s.cache), s.cacheStale, true
}

// lastKnown returns the cache regardless of age.
func (s *Service) lastKnown() ([]Light, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil {
		return nil, false
	}
	return copyLights(s.cache), true
}
