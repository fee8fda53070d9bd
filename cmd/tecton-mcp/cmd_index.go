package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tecton-ai/tecton-mcp/internal/embedding"
	"github.com/tecton-ai/tecton-mcp/internal/indexer"
	"github.com/tecton-ai/tecton-mcp/internal/store"
)

func newIndexCmd(c *cli) *cobra.Command {
	var (
		corpusName string
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the example and documentation indexes",
		Long: `Read the configured sources, embed every chunk and replace the corpus in
the vector store. A corpus that yields no chunks keeps its previous index.

Examples:
  tecton-mcp index --corpus all
  tecton-mcp index --corpus docs --no-progress`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			ctx := cmd.Context()

			all := corpusName == "all"
			corpora := []string{corpusName}
			if all {
				corpora = indexer.Corpora()
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

			builder := indexer.NewBuilder(emb, idx, indexer.Options{
				SDKVersion: cfg.Tecton.SDKVersion,
				BatchSize:  cfg.Embedding.BatchSize,
				Progress:   indexer.NewProgress(!noProgress && indexer.DefaultProgressEnabled()),
			})

			out := cmd.OutOrStdout()
			built := 0
			for _, name := range corpora {
				src, err := indexer.SourceFor(cfg, name)
				if all && errors.Is(err, indexer.ErrNoSources) {
					slog.Info("Skipping corpus", "corpus", name, "reason", err)
					continue
				}
				if err != nil {
					return err
				}

				start := time.Now()
				meta, err := builder.Build(ctx, name, src)
				if err != nil {
					return fmt.Errorf("failed to index %s: %w", name, err)
				}
				built++

				fmt.Fprintf(out, "Indexed %s in %v\n", name, time.Since(start).Round(time.Millisecond))
				fmt.Fprintf(out, "  Chunks:       %d\n", meta.ChunkCount)
				fmt.Fprintf(out, "  Model:        %s\n", meta.ModelStamp)
				fmt.Fprintf(out, "  Content hash: %s\n", shortHash(meta.ContentHash))
			}
			if built == 0 {
				return fmt.Errorf("nothing to index: configure sources in %s", configLabel(c))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&corpusName, "corpus", "all", "corpus to build: examples_rift, examples_spark, docs or all")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func configLabel(c *cli) string {
	if c.configPath != "" {
		return c.configPath
	}
	return "the config file"
}
