package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tecton-ai/tecton-mcp/internal/config"
)

func newInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Write a config template",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			created, err := config.WriteDefaultTemplate(path)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote config template to %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n", path)
			}
			return nil
		},
	}
}
