// Command book-service serves the book HTTP API backed by PostgreSQL.
//
// Usage:
//
//	book-service [serve]     start the service (default)
//	book-service health      query GET /healthz of a running service
//
// Configuration comes from an optional YAML file (-config flag or BOOKS_CONFIG),
// a .env file in the working directory, and BOOKS_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AntonStoeckl/book-service-go/bookstore/oteladapters"
	"github.com/AntonStoeckl/book-service-go/bookstore/postgresengine"
	"github.com/AntonStoeckl/book-service-go/config"
	"github.com/AntonStoeckl/book-service-go/server"
)

const (
	serviceName   = "book-service"
	healthTimeout = 5 * time.Second
)

// version is set at build time.
var version = "dev"

func main() {
	flags := flag.NewFlagSet(serviceName, flag.ExitOnError)
	configPath := flags.String("config", os.Getenv(config.EnvConfigPath), "path to the YAML config file")
	_ = flags.Parse(os.Args[1:])

	command := "serve"
	if flags.NArg() > 0 {
		command = flags.Arg(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case "serve":
		err = runServe(ctx, *configPath)
	case "health":
		err = runHealth(ctx, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	return config.Load(configPath)
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	logger.Info("starting book service", "version", version)

	var opts []server.Option

	if cfg.Telemetry.OTLPEndpoint != "" {
		providers, telemetryErr := setupTelemetry(ctx, cfg.Telemetry.OTLPEndpoint, version)
		if telemetryErr != nil {
			return fmt.Errorf("setting up telemetry: %w", telemetryErr)
		}
		defer func() {
			if shutdownErr := providers.Shutdown(); shutdownErr != nil {
				logger.Warn("telemetry shutdown failed", "error", shutdownErr)
			}
		}()

		opts = append(opts, server.WithStoreOptions(
			postgresengine.WithLogger(logger),
			postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger(serviceName)),
			postgresengine.WithMetrics(oteladapters.NewMetricsCollector(providers.MeterProvider.Meter(serviceName))),
			postgresengine.WithTracing(oteladapters.NewTracingCollector(providers.TracerProvider.Tracer(serviceName))),
		))

		logger.Info("telemetry export enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
	}

	srv, err := server.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL(cfg.Server.HTTPAddr), nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("book service not reachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.New("book service unhealthy: " + resp.Status)
	}

	fmt.Println("ok")

	return nil
}

// healthURL turns a listen address like ":8080" into a dialable URL.
func healthURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/healthz"
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	return "http://" + net.JoinHostPort(host, port) + "/healthz"
}
