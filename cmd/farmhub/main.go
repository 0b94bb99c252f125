// Farm Hub - edge gateway for off-grid farm installations.
//
// This is the main entry point for the gateway daemon. It owns the device
// registry, generates and applies the nginx routing config, aggregates
// fleet status, caches weather queries, and serves the dashboard API
// behind the edge proxy.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farmhub/farmhub-core/internal/api"
	"github.com/farmhub/farmhub-core/internal/device"
	"github.com/farmhub/farmhub-core/internal/infrastructure/config"
	"github.com/farmhub/farmhub-core/internal/infrastructure/logging"
	"github.com/farmhub/farmhub-core/internal/infrastructure/mqtt"
	"github.com/farmhub/farmhub-core/internal/proxy"
	"github.com/farmhub/farmhub-core/internal/status"
	"github.com/farmhub/farmhub-core/internal/weather"
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
	renderRoutes := flag.Bool("render-routes", false, "print the generated nginx routing config and exit")
	configPath := flag.String("config", "", "path to config file (default: FARMHUB_CONFIG or configs/config.yaml)")
	flag.Parse()

	if *renderRoutes {
		if err := renderRoutesAndExit(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Farm Hub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, path, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", path)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build device registry from config
	registry, err := device.NewRegistry(cfg.Devices)
	if err != nil {
		return fmt.Errorf("building device registry: %w", err)
	}
	log.Info("device registry initialised", "devices", registry.Count())

	// Generate and apply the nginx routing config before serving traffic,
	// so the proxy routes match the registry from the first request.
	if cfg.Proxy.Manage {
		if err := applyRoutes(ctx, cfg, registry, log); err != nil {
			return fmt.Errorf("applying proxy routes: %w", err)
		}
	} else {
		log.Info("proxy management disabled, routing config untouched")
	}

	// Weather service with background cache sweep
	weatherSvc := weather.New(cfg.Weather)
	weatherSvc.StartSweep(ctx)
	log.Info("weather service initialised",
		"base_url", cfg.Weather.BaseURL,
		"cache_minutes", cfg.Weather.CacheMinutes,
	)

	// Status poller
	poller := status.NewPoller(registry, status.Options{})
	poller.SetLogger(log.With("component", "status"))

	// WebSocket hub, created here so the sweep callback can broadcast
	// before the API server starts.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Optional MQTT status mirror. A dead broker is not fatal; the gateway
	// serves HTTP regardless.
	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT connect failed, status mirror disabled", "error", err)
			publisher = nil
		} else {
			publisher.SetLogger(log)
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := publisher.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
				"client_id", cfg.MQTT.ClientID,
			)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Every completed sweep fans out to dashboard WebSocket clients and,
	// when configured, to the MQTT status topics.
	poller.SetOnSweep(func(sweep status.Sweep) {
		hub.Broadcast("status.sweep", sweep)

		if publisher == nil {
			return
		}
		for id, report := range sweep {
			payload, marshalErr := json.Marshal(report)
			if marshalErr != nil {
				continue
			}
			if pubErr := publisher.PublishDeviceStatus(id, payload); pubErr != nil {
				log.Warn("device status publish failed", "device_id", id, "error", pubErr)
			}
		}
	})

	// Keep the status stream flowing even when no HTTP client is polling.
	go sweepLoop(ctx, poller)

	// API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Farm:     cfg.Farm,
		Logger:   log,
		Registry: registry,
		Weather:  weatherSvc,
		Poller:   poller,
		MQTT:     publisher,
		Hub:      hub,
		Version:  version,
	})
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

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. MQTT (if enabled)

	log.Info("Farm Hub stopped")
	return nil
}

// sweepLoop refreshes the fleet status on a fixed cadence so WebSocket and
// MQTT consumers see updates without an HTTP poll driving the cache.
func sweepLoop(ctx context.Context, poller *status.Poller) {
	ticker := time.NewTicker(poller.SweepTTL())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poller.PollAll(ctx)
		}
	}
}

// applyRoutes generates the nginx site config from the registry and applies
// it through the validate-then-reload cycle.
func applyRoutes(ctx context.Context, cfg *config.Config, registry *device.Registry, log *logging.Logger) error {
	text := proxy.Generate(cfg.Proxy, registry.Devices())

	applier := proxy.NewApplier(cfg.Proxy.ConfigPath, cfg.Proxy.ValidateCommand, cfg.Proxy.ReloadCommand)
	applier.SetLogger(log.With("component", "proxy"))

	if err := applier.Apply(ctx, text); err != nil {
		return err
	}

	log.Info("proxy routes applied",
		"path", cfg.Proxy.ConfigPath,
		"devices", registry.Count(),
	)
	return nil
}

// renderRoutesAndExit prints the generated nginx config to stdout.
// Useful for inspecting routes without touching the live proxy.
func renderRoutesAndExit(configPath string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	registry, err := device.NewRegistry(cfg.Devices)
	if err != nil {
		return fmt.Errorf("building device registry: %w", err)
	}

	fmt.Print(proxy.Generate(cfg.Proxy, registry.Devices()))
	return nil
}

// loadConfig resolves the config path (flag, then FARMHUB_CONFIG, then the
// default) and loads it.
func loadConfig(flagPath string) (*config.Config, string, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv("FARMHUB_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
