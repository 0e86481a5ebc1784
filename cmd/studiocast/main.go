// Studiocast Capture Core - unattended class capture
//
// This is the main entry point for the capture core. It supervises one
// camera relay per room and starts and stops them from class schedules:
//   - Relay subprocesses pull RTSP camera feeds and publish to the media server
//   - A tick-based scheduler reconciles relays with schedule windows
//   - Every scheduler decision is written to the execution log
//
// Rooms and schedules are owned by the platform's management services and
// read from the shared database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/studiocast-core/migrations"

	"github.com/nerrad567/studiocast-core/internal/api"
	"github.com/nerrad567/studiocast-core/internal/audit"
	"github.com/nerrad567/studiocast-core/internal/automation"
	"github.com/nerrad567/studiocast-core/internal/infrastructure/config"
	"github.com/nerrad567/studiocast-core/internal/infrastructure/database"
	"github.com/nerrad567/studiocast-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/studiocast-core/internal/infrastructure/logging"
	"github.com/nerrad567/studiocast-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/studiocast-core/internal/ingest"
	"github.com/nerrad567/studiocast-core/internal/room"
	"github.com/nerrad567/studiocast-core/internal/schedule"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence with matching teardown
	log := logging.Default()
	log.Info("starting Studiocast Capture Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

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
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Optional sinks stay nil interfaces when disabled.
	var publisher automation.Publisher
	if mqttClient != nil {
		publisher = mqttClient
	}
	var sessions automation.SessionWriter
	var metrics automation.MetricsWriter
	if influxClient != nil {
		sessions = influxClient
		metrics = influxClient
	}

	// Relay supervisor. Construction kills relays orphaned by a previous run.
	supervisor := ingest.NewSupervisor(ingest.Config{
		Binary:        cfg.Relay.Binary,
		LocalEndpoint: cfg.Relay.LocalEndpoint,
		GracePeriod:   cfg.Relay.GracePeriod,
	}, log.With("component", "ingest"))
	supervisor.SetObserver(automation.NewCameraEvents(publisher, sessions, log))
	defer func() {
		log.Info("stopping camera relays")
		supervisor.StopAll()
	}()

	rooms := room.NewSQLiteDirectory(db.DB, cfg.Relay.PublishBase)
	schedules := schedule.NewSQLiteRepository(db.DB)
	execLog := audit.NewSQLiteRepository(db.DB)

	engine := automation.NewEngine(supervisor, schedules, rooms, execLog, log.With("component", "scheduler"))
	engine.SetPublisher(publisher)
	engine.SetMetrics(metrics)

	// Camera commands over MQTT. Deferred after StopAll, so the listener
	// stops accepting commands before the relays are torn down.
	if mqttClient != nil {
		commands := automation.NewCommandListener(supervisor, rooms, log.With("component", "commands"))
		if listenErr := commands.Listen(mqttClient); listenErr != nil {
			return fmt.Errorf("listening for camera commands: %w", listenErr)
		}
		defer func() {
			if closeErr := commands.Close(); closeErr != nil {
				log.Warn("error closing camera command listener", "error", closeErr)
			}
		}()
		log.Info("camera command listener started")
	}

	// Scheduler
	schedCtx, stopScheduler := context.WithCancel(ctx)
	schedDone := make(chan struct{})
	if cfg.Scheduler.Enabled {
		go func() {
			defer close(schedDone)
			engine.Run(schedCtx, cfg.Scheduler.TickInterval)
		}()
	} else {
		close(schedDone)
		log.Info("scheduler disabled")
	}
	defer func() {
		stopScheduler()
		<-schedDone
	}()

	// HTTP API
	healthChecks := map[string]api.HealthChecker{"database": db}
	if mqttClient != nil {
		healthChecks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		healthChecks["influxdb"] = influxClient
	}

	apiServer, err := api.New(api.Deps{
		Config:       cfg.API,
		Security:     cfg.Security,
		Logger:       log,
		Supervisor:   supervisor,
		Rooms:        rooms,
		Scheduler:    engine,
		ExecLog:      execLog,
		HealthChecks: healthChecks,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. Scheduler loop
	// 3. Pending MQTT commands
	// 4. Camera relays (offline state is still published)
	// 5. InfluxDB, MQTT, database

	return nil
}

// getConfigPath returns the configuration file path.
// Uses STUDIOCAST_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("STUDIOCAST_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
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
