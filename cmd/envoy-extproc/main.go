// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/leseb/smartsearch-gw/pkg/adapters/envoy"
	"github.com/leseb/smartsearch-gw/pkg/core/config"
	"github.com/leseb/smartsearch-gw/pkg/core/engine"
	"github.com/leseb/smartsearch-gw/pkg/observability/logging"
	"github.com/leseb/smartsearch-gw/pkg/observability/tracing"
)

// Version is set via ldflags during build
var Version = "dev"

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 0, "gRPC port for ExtProc (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, fromFile, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.ExtProcPort = *port
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logger.Info("starting envoy extproc server",
		"config_path", *configPath,
		"port", cfg.Server.ExtProcPort,
		"log_level", cfg.Logging.Level,
	)
	if !fromFile {
		logger.Warn("config file not found, using defaults and environment", "path", *configPath)
	}

	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// Metrics are scraped from the HTTP server, not from here.
	eng, err := engine.FromConfig(cfg, logger.Logger, nil)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	processor := envoy.NewProcessor(eng, logger.Logger)

	grpcServer := grpc.NewServer()
	extproc.RegisterExternalProcessorServer(grpcServer, processor)

	// Register health check service
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("envoy.service.ext_proc.v3.ExternalProcessor", healthpb.HealthCheckResponse_SERVING)

	addr := fmt.Sprintf(":%d", cfg.Server.ExtProcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen", "error", err, "addr", addr)
		os.Exit(1)
	}

	logger.Info("extproc server listening", "addr", addr)

	errChan := make(chan error, 1)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	}

	logger.Info("shutting down gracefully")
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	logger.Info("server stopped")
}
