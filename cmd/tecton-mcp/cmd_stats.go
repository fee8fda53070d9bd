package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tecton-ai/tecton-mcp/internal/store"
)

func newStatsCmd(c *cli) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the corpora held by the vector store",
		Long: `Show statistics about every built corpus.

Examples:
  tecton-mcp stats
  tecton-mcp stats --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := store.OpenIndex(cmd.Context(), c.cfg.Store)
			if err != nil {
				return fmt.Errorf("failed to open index: %w", err)
			}
			defer idx.Close()

			metas, err := idx.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read stats: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if metas == nil {
					metas = []store.CorpusMeta{}
				}
				data, err := json.MarshalIndent(metas, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "Index Statistics (%s)\n", c.cfg.Store.Backend)
			if len(metas) == 0 {
				fmt.Fprintln(out, "\nNo corpora built yet. Run 'tecton-mcp index'.")
				return nil
			}
			for _, m := range metas {
				fmt.Fprintln(out)
				fmt.Fprintf(out, "%s\n", m.Corpus)
				fmt.Fprintf(out, "  Chunks:      %6d\n", m.ChunkCount)
				fmt.Fprintf(out, "  Model:       %s\n", m.ModelStamp)
				if m.SDKVersion != "" {
					fmt.Fprintf(out, "  SDK version: %s\n", m.SDKVersion)
				}
				fmt.Fprintf(out, "  Built at:    %s\n", m.BuiltAt.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
