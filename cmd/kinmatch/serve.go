package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/config"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/metrics"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the kinmatch MCP server over stdio (default) or streamable HTTP.

Examples:
  # Serve over stdio for a local MCP client
  kinmatch serve

  # Serve over HTTP with Prometheus metrics
  kinmatch serve --transport http --addr :8080 --metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("transport", config.TransportStdio, "Transport to use: stdio or http")
	serveCmd.Flags().String("addr", ":8080", "Address to listen on when using the http transport")
	serveCmd.Flags().String("endpoint", "/mcp", "HTTP endpoint path when using the http transport")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics")
	serveCmd.Flags().String("metrics-addr", ":9090", "Address for /metrics and /healthz")
}

func applyServeFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Server.Transport = mustGetString(cmd, "transport")
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = mustGetString(cmd, "addr")
	}
	if flags.Changed("endpoint") {
		cfg.Server.Endpoint = mustGetString(cmd, "endpoint")
	}
	if flags.Changed("metrics") {
		cfg.Metrics.Prometheus = mustGetBool(cmd, "metrics")
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = mustGetString(cmd, "metrics-addr")
	}
	return cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := applyServeFlags(cmd); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, closing server...")
		cancel()
	}()

	if err := metrics.Init(cfg.Metrics.Prometheus, cfg.Metrics.Addr); err != nil {
		log.Printf("Metrics disabled: %v", err)
	}

	svc, err := openService(ctx)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()
	log.Printf("Indexed %d face descriptors", svc.IndexedFaces())

	mcpServer := server.NewMCPServer(svc, cfg.Query)

	log.Println("Starting kinmatch MCP server...")
	switch cfg.Server.Transport {
	case config.TransportHTTP:
		err = mcpServer.RunHTTP(ctx, cfg.Server.Addr, cfg.Server.Endpoint)
	default:
		err = mcpServer.Run(ctx)
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Server stopped")
	return nil
}
