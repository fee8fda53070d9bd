package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tecton-ai/tecton-mcp/cmd/tecton-mcp/internal"
	"github.com/tecton-ai/tecton-mcp/internal/app"
	"github.com/tecton-ai/tecton-mcp/internal/mcpserver"
	"github.com/tecton-ai/tecton-mcp/internal/observability"
)

func newMCPCmd(c *cli) *cobra.Command {
	var (
		transport string
		port      int
		smokeTest bool
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server",
		Long: `Start the Tecton MCP server. Stdout carries the stdio transport, so all
logging goes to stderr.

Examples:
  tecton-mcp mcp
  tecton-mcp mcp --transport http --port 8080
  tecton-mcp mcp --smoke-test`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("smoke-test") {
				cfg.Server.SmokeTest = smokeTest
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("Tecton MCP Server initializing...",
				"version", internal.Version,
				"transport", cfg.Server.Transport,
				"batch_compute_mode", cfg.Tecton.BatchComputeMode)

			tp, err := observability.InitTracing(ctx, cfg.Tracing, internal.Version)
			if err != nil {
				return fmt.Errorf("failed to init tracing: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					slog.Warn("tracer shutdown failed", "error", err)
				}
			}()

			a, err := app.Open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}
			defer a.Close()

			srv := mcpserver.New(a, internal.Version)
			return srv.Run(ctx, mcpserver.RunOptions{
				Transport: cfg.Server.Transport,
				Port:      cfg.Server.Port,
				SmokeTest: cfg.Server.SmokeTest,
			})
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "transport: stdio or http")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port when --transport=http")
	cmd.Flags().BoolVar(&smokeTest, "smoke-test", false, "initialize and exit without serving")
	return cmd
}
