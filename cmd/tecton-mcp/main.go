package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tecton-ai/tecton-mcp/cmd/tecton-mcp/internal"
	"github.com/tecton-ai/tecton-mcp/internal/config"
)

// skipConfig marks subcommands that run without loading the config.
const skipConfig = "skip-config"

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
	closeLog   func() error
}

func main() {
	c := &cli{}
	err := newRootCmd(c).Execute()
	c.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "tecton-mcp",
		Short: "Tecton MCP server - example code, documentation and SDK reference for coding agents",
		Long: `tecton-mcp serves Tecton example code search, documentation search and SDK
reference lookup to coding agents over the Model Context Protocol.

Example usage:
  tecton-mcp init                          # Write a config template
  tecton-mcp index --corpus all            # Build the vector indexes
  tecton-mcp mcp                           # Serve over stdio
  tecton-mcp search "stream feature view"  # Query the examples index`,
		Version:       internal.Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return c.load(cmd.Name())
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default is ~/.tecton-mcp/config.yaml)")

	root.AddCommand(
		newMCPCmd(c),
		newIndexCmd(c),
		newSearchCmd(c),
		newReferenceCmd(c),
		newStatsCmd(c),
		newInitCmd(c),
		newVersionCmd(),
	)
	return root
}

// load reads .env and the config, then installs logging for subcommand.
func (c *cli) load(subcommand string) error {
	if err := internal.LoadEnv(); err != nil {
		return err
	}
	cfg, err := internal.LoadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	closeLog, err := internal.SetupLogging(cfg.Log, cfg.DataDir, subcommand)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	c.cfg = cfg
	c.closeLog = closeLog
	return nil
}

func (c *cli) close() {
	if c.closeLog != nil {
		_ = c.closeLog()
	}
}
