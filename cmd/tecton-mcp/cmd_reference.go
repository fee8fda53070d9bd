package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tecton-ai/tecton-mcp/internal/reference"
)

type referenceJSON struct {
	SDKVersion string            `json:"sdk_version,omitempty"`
	Entries    map[string]string `json:"entries"`
	Missing    []string          `json:"missing,omitempty"`
	Expanded   []string          `json:"expanded,omitempty"`
}

func newReferenceCmd(c *cli) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "reference [names...]",
		Short: "Look up Tecton SDK reference entries",
		Long: `Print the reference for the given SDK classes and functions, with their
related names expanded. Without names the full reference is printed.

Examples:
  tecton-mcp reference BatchFeatureView Aggregate
  tecton-mcp reference --json Entity`,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := reference.Load(c.cfg.Reference.Path)
			if err != nil {
				return fmt.Errorf("failed to load SDK reference: %w", err)
			}
			defer table.Close()

			res := table.Lookup(args)
			out := cmd.OutOrStdout()
			if !jsonOutput {
				fmt.Fprintln(out, res.Text())
				return nil
			}

			payload := referenceJSON{
				SDKVersion: table.SDKVersion(),
				Entries:    make(map[string]string, len(res.Names())),
				Missing:    res.Missing(),
				Expanded:   res.Expanded,
			}
			for _, name := range res.Names() {
				if e, ok := table.Get(name); ok {
					payload.Entries[name] = e.Text()
				}
			}
			data, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
