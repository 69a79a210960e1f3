// goveedeck - Govee light control daemon
//
// This is the main entry point for the goveedeck daemon. It discovers
// Govee lights over the cloud API and the LAN protocol, routes control
// commands over the healthiest channel, and exposes the device list,
// transport health and telemetry over MQTT for deck frontends and home
// automation systems.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/goveedeck/core/migrations"

	"github.com/goveedeck/core/internal/health"
	"github.com/goveedeck/core/internal/infrastructure/config"
	"github.com/goveedeck/core/internal/infrastructure/database"
	"github.com/goveedeck/core/internal/infrastructure/influxdb"
	"github.com/goveedeck/core/internal/infrastructure/logging"
	"github.com/goveedeck/core/internal/infrastructure/mqtt"
	"github.com/goveedeck/core/internal/lights"
	"github.com/goveedeck/core/internal/resilience"
	"github.com/goveedeck/core/internal/telemetry"
	"github.com/goveedeck/core/internal/transport"
	"github.com/goveedeck/core/internal/transport/cloud"
	"github.com/goveedeck/core/internal/transport/lan"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting goveedeck",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Circuit breakers shared by the cloud transport and telemetry
	breakers := resilience.NewFactory()

	// Build the enabled transports
	transports, cleanup, err := buildTransports(cfg, breakers, log)
	if err != nil {
		return fmt.Errorf("building transports: %w", err)
	}
	defer cleanup()

	orch := transport.NewOrchestrator(transports...)
	orch.SetLogger(log)
	log.Info("transport orchestrator ready", "transports", len(transports))

	// Telemetry counters
	stats := telemetry.NewService(telemetry.WithBreakers(breakers))

	// Health service: cached transport health with request coalescing
	healthSvc := health.NewService(orch, cfg.HealthCacheTTL(),
		health.WithRecorder(stats),
		health.WithLogger(log),
	)

	// Lights service: cached discovery, state reads and commands,
	// persisted to the SQLite catalogue
	catalogue := lights.NewStore(db)
	lightsSvc := lights.NewService(orch, cfg.DiscoveryCacheTTL(),
		lights.WithCatalogue(catalogue),
		lights.WithRecorder(stats),
		lights.WithLogger(log),
	)
	if seedErr := lightsSvc.Seed(ctx); seedErr != nil {
		log.Warn("seeding device catalogue failed", "error", seedErr)
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		if wireErr := wireMQTT(ctx, mqttClient, cfg, orch, lightsSvc, log); wireErr != nil {
			return fmt.Errorf("wiring MQTT: %w", wireErr)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var exporter *telemetry.Exporter
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		exporter = telemetry.NewExporter(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete")

	// Background loops: health refresh, discovery refresh, telemetry export.
	// All exit when ctx is cancelled.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return healthLoop(gctx, cfg, healthSvc, log)
	})
	g.Go(func() error {
		return discoveryLoop(gctx, cfg, lightsSvc, mqttClient, log)
	})
	if exporter != nil || mqttClient != nil {
		g.Go(func() error {
			return telemetryLoop(gctx, cfg, stats, exporter, mqttClient, log)
		})
	}

	if err := g.Wait(); err != nil && !isShutdown(err) {
		return err
	}

	log.Info("goveedeck stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GOVEEDECK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GOVEEDECK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildTransports constructs the enabled transports in priority order
// (LAN first). The returned cleanup closes the LAN listener.
func buildTransports(cfg *config.Config, breakers *resilience.Factory, log *logging.Logger) ([]transport.Transport, func(), error) {
	var transports []transport.Transport
	cleanup := func() {}

	if cfg.LAN.Enabled {
		lanTransport := lan.New(lan.Config{
			ScanWindow: time.Duration(cfg.LAN.ScanWindow) * time.Second,
			Logger:     log.With("transport", "lan"),
		})
		transports = append(transports, lanTransport)
		cleanup = func() {
			if err := lanTransport.Close(); err != nil {
				log.Error("error closing LAN transport", "error", err)
			}
		}
		log.Info("LAN transport enabled", "scan_window", cfg.LAN.ScanWindow)
	}

	if cfg.Cloud.Enabled {
		cloudTransport := cloud.New(cloud.Config{
			APIKey:         cfg.Cloud.APIKey,
			BaseURL:        cfg.Cloud.BaseURL,
			RequestTimeout: cfg.CloudRequestTimeout(),
			CacheTTL:       time.Duration(cfg.Cloud.DiscoveryCacheTTL) * time.Second,
			Breakers:       breakers,
			Logger:         log.With("transport", "cloud"),
		})
		transports = append(transports, cloudTransport)
		log.Info("cloud transport enabled")
	}

	if len(transports) == 0 {
		return nil, nil, fmt.Errorf("no transports enabled")
	}

	return transports, cleanup, nil
}

// wireMQTT connects the MQTT surface: health change publishing and the
// device command intake.
func wireMQTT(ctx context.Context, client *mqtt.Client, cfg *config.Config, orch *transport.Orchestrator, lightsSvc *lights.Service, log *logging.Logger) error {
	topics := mqtt.Topics{}
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // Validated to 0..2 by config

	// Publish every health transition, retained so deck frontends see
	// the current picture on subscribe.
	orch.OnHealthChange(func(h transport.Health) {
		payload, err := json.Marshal(h)
		if err != nil {
			log.Error("marshalling health update", "error", err)
			return
		}
		topic := topics.TransportHealth(string(h.Descriptor.Kind))
		if pubErr := client.PublishRetained(topic, payload); pubErr != nil {
			log.Warn("publishing health update failed", "topic", topic, "error", pubErr)
		}
	})

	// Accept device commands from the bus.
	err := client.Subscribe(topics.AllDeviceCommands(), qos, func(topic string, payload []byte) error {
		cmd, parseErr := parseCommand(topic, payload)
		if parseErr != nil {
			log.Warn("ignoring malformed command", "topic", topic, "error", parseErr)
			return parseErr
		}

		cmdCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if sendErr := lightsSvc.SendCommand(cmdCtx, cmd); sendErr != nil {
			return sendErr
		}

		// Echo the resulting state, best effort.
		state, stateErr := lightsSvc.GetLightState(cmdCtx, cmd.DeviceID, cmd.Model)
		if stateErr != nil {
			log.Debug("state echo unavailable", "device_id", cmd.DeviceID, "error", stateErr)
			return nil
		}
		statePayload, marshalErr := json.Marshal(state)
		if marshalErr != nil {
			return nil
		}
		if pubErr := client.PublishRetained(topics.DeviceState(cmd.DeviceID), statePayload); pubErr != nil {
			log.Warn("publishing state echo failed", "device_id", cmd.DeviceID, "error", pubErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to command topic: %w", err)
	}

	log.Info("MQTT command intake active", "topic", topics.AllDeviceCommands())
	return nil
}

// commandPayload is the wire format for device commands received over MQTT.
//
//	{"model": "H6159", "name": "brightness", "value": 75}
type commandPayload struct {
	Model string          `json:"model"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// parseCommand converts an MQTT command message into a transport command.
// The device ID is the final topic segment; the payload carries the model,
// command name and value.
func parseCommand(topic string, payload []byte) (transport.Command, error) {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return transport.Command{}, fmt.Errorf("no device id in topic %q", topic)
	}
	deviceID := topic[idx+1:]

	var body commandPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return transport.Command{}, fmt.Errorf("decoding command payload: %w", err)
	}
	if body.Name == "" {
		return transport.Command{}, fmt.Errorf("command name missing")
	}

	value, err := decodeCommandValue(transport.CommandName(body.Name), body.Value)
	if err != nil {
		return transport.Command{}, err
	}

	return transport.NewCommand(deviceID, body.Model, transport.CommandName(body.Name), value), nil
}

// decodeCommandValue decodes the JSON value into the shape each command
// expects: string for turn, int for brightness and colour temperature,
// an RGB triple for colour commands, and a free-form map otherwise.
func decodeCommandValue(name transport.CommandName, raw json.RawMessage) (any, error) {
	switch name {
	case transport.CommandTurn:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("turn value must be a string: %w", err)
		}
		return v, nil
	case transport.CommandBrightness, transport.CommandColorTem:
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%s value must be an integer: %w", name, err)
		}
		return v, nil
	case transport.CommandColor, transport.CommandSegmentColor:
		var v transport.ColorValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%s value must be an RGB object: %w", name, err)
		}
		return v, nil
	default:
		var v map[string]any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%s value must be an object: %w", name, err)
		}
		return v, nil
	}
}

// healthLoop forces a health refresh on the configured interval.
func healthLoop(ctx context.Context, cfg *config.Config, healthSvc *health.Service, log *logging.Logger) error {
	interval := time.Duration(cfg.Health.RefreshInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Prime the health picture immediately rather than waiting a tick.
	if _, err := healthSvc.Health(ctx, true); err != nil {
		log.Warn("initial health refresh failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := healthSvc.Health(ctx, true); err != nil {
				log.Warn("health refresh failed", "error", err)
			}
		}
	}
}

// discoveryLoop re-runs discovery on the configured interval and
// publishes the merged device list, retained, for deck frontends.
func discoveryLoop(ctx context.Context, cfg *config.Config, lightsSvc *lights.Service, mqttClient *mqtt.Client, log *logging.Logger) error {
	interval := time.Duration(cfg.Discovery.RefreshInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		devices, stale, err := lightsSvc.Discover(ctx, true)
		if err != nil {
			log.Warn("discovery failed", "error", err)
			return
		}
		if mqttClient == nil {
			return
		}
		payload, err := json.Marshal(struct {
			Devices []lights.Light `json:"devices"`
			Stale   bool           `json:"stale"`
		}{Devices: devices, Stale: stale})
		if err != nil {
			log.Error("marshalling device list", "error", err)
			return
		}
		if pubErr := mqttClient.PublishRetained(mqtt.Topics{}.Discovery(), payload); pubErr != nil {
			log.Warn("publishing device list failed", "error", pubErr)
		}
	}

	runOnce()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runOnce()
		}
	}
}

// telemetryLoop exports telemetry snapshots on the configured interval:
// points to InfluxDB and the full snapshot JSON to MQTT.
func telemetryLoop(ctx context.Context, cfg *config.Config, stats *telemetry.Service, exporter *telemetry.Exporter, mqttClient *mqtt.Client, log *logging.Logger) error {
	interval := time.Duration(cfg.InfluxDB.ExportInterval) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap := stats.Snapshot()
			if exporter != nil {
				exporter.Export(snap)
			}
			if mqttClient != nil {
				payload, err := json.Marshal(snap)
				if err != nil {
					log.Error("marshalling telemetry snapshot", "error", err)
					continue
				}
				if pubErr := mqttClient.PublishRetained(mqtt.Topics{}.Telemetry(), payload); pubErr != nil {
					log.Warn("publishing telemetry failed", "error", pubErr)
				}
			}
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// isShutdown reports whether the error is the normal ctx cancellation
// that ends the background loops.
func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
