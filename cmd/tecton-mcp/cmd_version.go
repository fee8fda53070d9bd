package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tecton-ai/tecton-mcp/cmd/tecton-mcp/internal"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tecton-mcp version %s\n", internal.Version)
		},
	}
}
