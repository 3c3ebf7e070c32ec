package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/hood-bridge/internal/accessory"
	"github.com/nerrad567/hood-bridge/internal/api"
	mielebridge "github.com/nerrad567/hood-bridge/internal/bridges/miele"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/config"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/database"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/hood-bridge/internal/miele"
	"github.com/nerrad567/hood-bridge/internal/platform"
)

func newServeCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run discovery, the MQTT bridge, and the status API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath())
		},
	}
}

// run is the bridge process, separated from the command for testability.
//
// Parameters:
//   - ctx: Cancelled on shutdown signal
//   - configPath: YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing the startup failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting Hood Bridge", "version", version, "commit", commit, "build_date", date)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "miele", cfg.Miele.String())

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

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())

	apiClient, err := miele.NewClient(miele.Config{
		BaseURL: cfg.Miele.BaseURL,
		Token:   cfg.Miele.Token,
		Timeout: cfg.GetRequestTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating Miele client: %w", err)
	}

	checks := map[string]api.HealthChecker{"database": db}

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
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID)
	} else {
		log.Info("MQTT disabled, hoods will be registered without control wiring")
	}

	var influxClient *influxdb.Client
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	controllers, bridge, err := startBridge(ctx, cfg, apiClient, mqttClient, influxClient, log)
	if err != nil {
		return err
	}
	if bridge != nil {
		defer func() {
			log.Info("stopping Miele bridge")
			bridge.Stop()
		}()
	}

	opts := platform.Options{
		BridgeID:     cfg.Bridge.ID,
		Fetcher:      apiClient,
		Store:        accessory.NewSQLiteStore(db.DB),
		Controllers:  controllers,
		PollInterval: cfg.GetPollInterval(),
		Logger:       log,
	}
	if mqttClient != nil {
		opts.Announcer = mqttClient
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	p, err := platform.New(opts)
	if err != nil {
		return fmt.Errorf("creating platform: %w", err)
	}
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}
	defer p.Stop()

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Platform: p,
			Checks:   checks,
			Version:  version,
		}
		if bridge != nil {
			deps.Hoods = bridge
		}
		server, err := api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// startBridge creates the control wiring. Without MQTT there is nothing to
// control through, so attachments are only logged.
func startBridge(ctx context.Context, cfg *config.Config, apiClient *miele.Client, mqttClient *mqtt.Client,
	influxClient *influxdb.Client, log *logging.Logger) (accessory.ControllerFactory, *mielebridge.Bridge, error) {
	if mqttClient == nil {
		return loggingControllers{log: log}, nil, nil
	}

	opts := mielebridge.BridgeOptions{
		BridgeID:       cfg.Bridge.ID,
		Version:        version,
		API:            apiClient,
		MQTTClient:     mqttClient,
		StateInterval:  cfg.GetStateInterval(),
		HealthInterval: cfg.GetHealthInterval(),
		Logger:         log,
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	bridge, err := mielebridge.NewBridge(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("creating Miele bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("starting Miele bridge: %w", err)
	}
	log.Info("Miele bridge started")
	return bridge, bridge, nil
}

// loggingControllers stands in for the bridge when MQTT is disabled.
type loggingControllers struct {
	log *logging.Logger
}

func (c loggingControllers) Attach(entry *accessory.Entry, modelNumber, uniqueID string) {
	c.log.Info("hood ready", "name", entry.DisplayName, "unique_id", uniqueID, "model", modelNumber)
}

// healthCheck verifies every configured dependency once at startup.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		check, ok := checks[name]
		if !ok {
			continue
		}
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
