package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tecton-ai/tecton-mcp/internal/config"
	"github.com/tecton-ai/tecton-mcp/internal/embedding"
	"github.com/tecton-ai/tecton-mcp/internal/retrieval"
	"github.com/tecton-ai/tecton-mcp/internal/store"
)

func newSearchCmd(c *cli) *cobra.Command {
	var (
		corpusName string
		limit      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query an index the way the MCP search tools do",
		Long: `Run a similarity search against one corpus and print the same text the
MCP tools return.

Examples:
  tecton-mcp search "batch feature view with aggregations"
  tecton-mcp search "realtime feature view" --corpus docs --limit 3
  tecton-mcp search "embeddings" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			ctx := cmd.Context()

			kind := retrieval.KindExamples
			switch corpusName {
			case "", "examples":
				corpusName = cfg.ExamplesCorpus()
			case config.CorpusDocs:
				kind = retrieval.KindDocs
			case config.CorpusExamplesRift, config.CorpusExamplesSpark:
			default:
				return fmt.Errorf("unknown corpus: %s", corpusName)
			}

			emb, err := embedding.NewService(&cfg.Embedding)
			if err != nil {
				return fmt.Errorf("failed to create embedding service: %w", err)
			}
			defer emb.Close()

			idx, err := store.OpenIndex(ctx, cfg.Store)
			if err != nil {
				return fmt.Errorf("failed to open index: %w", err)
			}
			defer idx.Close()

			h := retrieval.NewHandler(ctx, emb, idx, corpusName, kind, retrieval.OptionsFromConfig(cfg.Retrieval))
			resp, err := h.Query(ctx, retrieval.Request{
				Query: strings.Join(args, " "),
				Limit: limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprintln(out, resp.Text())
			return nil
		},
	}
	cmd.Flags().StringVar(&corpusName, "corpus", "examples", "corpus: examples (per batch_compute_mode), examples_rift, examples_spark or docs")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of results (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
