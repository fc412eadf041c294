package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/hamclock-devserver/pkg/config"
	"github.com/hamclock-devserver/pkg/logging"
	"github.com/hamclock-devserver/pkg/server"
)

var (
	port          = kingpin.Arg("port", "TCP port to bind.").Default("8080").Int()
	webRoot       = kingpin.Flag("web.root", "Directory to serve static files from.").Default(".").String()
	listenAddress = kingpin.Flag("web.telemetry-address", "Address to listen on for telemetry.").Default(":9090").String()
	telemetryPath = kingpin.Flag("web.telemetry-path", "Path under which to expose metrics.").Default("/metrics").String()
)

func main() {
	kingpin.Parse()

	cfg := &config.Config{}
	cfg.Server.Port = *port
	cfg.Server.Root = *webRoot
	cfg.Server.ListenAddress = *listenAddress
	cfg.Server.TelemetryPath = *telemetryPath
	cfg.SetDefaults()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logging.Log("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	devServer, err := server.NewDevServer(cfg)
	if err != nil {
		logging.Fatalf("Failed to create server: %v", err)
	}

	// Telemetry runs on its own listener for the life of the process
	go func() {
		if err := devServer.StartMetricsServer(cfg.Server.ListenAddress, cfg.Server.TelemetryPath); err != nil {
			logging.Fatalf("Telemetry listener error: %v", err)
		}
	}()

	if err := devServer.Run(ctx); err != nil {
		logging.Fatalf("Server error: %v", err)
	}
	logging.Flush()
}
