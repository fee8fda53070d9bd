// Package app wires the long-lived handles the MCP server needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tecton-ai/tecton-mcp/internal/apperr"
	"github.com/tecton-ai/tecton-mcp/internal/config"
	"github.com/tecton-ai/tecton-mcp/internal/embedding"
	"github.com/tecton-ai/tecton-mcp/internal/featureservice"
	"github.com/tecton-ai/tecton-mcp/internal/reference"
	"github.com/tecton-ai/tecton-mcp/internal/retrieval"
	"github.com/tecton-ai/tecton-mcp/internal/store"
)

// AppContext is created once at startup and passed to every tool handler.
// Nothing in it is mutated after Open returns.
type AppContext struct {
	Config    *config.Config
	Embedder  *embedding.Service
	Index     store.Index
	Examples  *retrieval.Handler
	Docs      *retrieval.Handler
	Reference *reference.Table

	// Features is nil when no feature server is configured.
	Features *featureservice.Client
}

// Open loads the embedder, the index, the reference table and the optional
// feature client. Any failure is returned as BackendUnavailable and leaves
// nothing open.
func Open(ctx context.Context, cfg *config.Config) (_ *AppContext, err error) {
	a := &AppContext{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Embedder, err = embedding.NewService(&cfg.Embedding)
	if err != nil {
		return nil, apperr.Unavailable("open embedder", err)
	}

	a.Index, err = store.OpenIndex(ctx, cfg.Store)
	if err != nil {
		return nil, apperr.Unavailable("open index", err)
	}

	opts := retrieval.OptionsFromConfig(cfg.Retrieval)
	examplesCorpus := cfg.ExamplesCorpus()
	a.Examples, err = openHandler(ctx, a, examplesCorpus, retrieval.KindExamples, opts)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded example code snippet index", "corpus", examplesCorpus, "model", a.Embedder.ModelStamp())

	a.Docs, err = openHandler(ctx, a, config.CorpusDocs, retrieval.KindDocs, opts)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded documentation index", "corpus", config.CorpusDocs, "model", a.Embedder.ModelStamp())

	a.Reference, err = reference.Load(cfg.Reference.Path)
	if err != nil {
		return nil, apperr.Unavailable("load reference table", err)
	}
	slog.Info(fmt.Sprintf("Found %d Tecton SDK definitions.", a.Reference.Len()), "sdk_version", a.Reference.SDKVersion())

	if len(cfg.Tecton.FeatureServices) > 0 {
		a.Features, err = featureservice.NewClient(cfg.Tecton)
		if err != nil {
			slog.Warn("Feature service tools disabled", "error", err)
			a.Features, err = nil, nil
		}
	}
	return a, nil
}

func openHandler(ctx context.Context, a *AppContext, corpus string, kind retrieval.Kind, opts retrieval.Options) (*retrieval.Handler, error) {
	h := retrieval.NewHandler(ctx, a.Embedder, a.Index, corpus, kind, opts)
	meta, err := h.Meta()
	if err != nil {
		if errors.Is(err, store.ErrCorpusNotFound) {
			err = fmt.Errorf("%w (run 'tecton-mcp index --corpus %s')", err, corpus)
		}
		return nil, apperr.Unavailable("load "+corpus, err)
	}
	if stamp := a.Embedder.ModelStamp(); meta.ModelStamp != stamp {
		return nil, apperr.Unavailable("load "+corpus, fmt.Errorf("%w: index has %s, configured embedder is %s",
			apperr.ErrModelMismatch, meta.ModelStamp, stamp))
	}
	return h, nil
}

// Close releases every open handle.
func (a *AppContext) Close() error {
	var errs []error
	if a.Reference != nil {
		errs = append(errs, a.Reference.Close())
	}
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	return errors.Join(errs...)
}
