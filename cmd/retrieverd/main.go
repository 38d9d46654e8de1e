package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kenolab/retriever/internal/config"
	"github.com/kenolab/retriever/internal/reranker"
	"github.com/kenolab/retriever/internal/retrieval"
	"github.com/kenolab/retriever/internal/retrieval/qdrant"
	"github.com/kenolab/retriever/internal/retrieval/tfidf"
	"github.com/kenolab/retriever/internal/server"
	"github.com/kenolab/retriever/internal/service"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting retrieval service",
		"http_port", cfg.HTTPPort,
		"backend", cfg.Backend,
		"environment", cfg.Environment,
	)

	retr, cleanup, err := openRetriever(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	rr := &reranker.LengthPenalty{Weight: cfg.RerankWeight, Scale: cfg.RerankScale}
	svc := service.NewQueryService(retr, rr, service.WithDefaultTopK(cfg.DefaultTopK))

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:      cfg.HTTPPort,
		Logger:    slog.Default(),
		APIKey:    cfg.APIKey,
		JWTSecret: cfg.JWTSecret,
	}, svc)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}
	return nil
}

// openRetriever builds the configured backend. The local index is restored
// from disk when a saved one exists, and saved back on shutdown so ingests
// done over the API survive restarts.
func openRetriever(ctx context.Context, cfg *config.Config) (retrieval.Retriever, func(), error) {
	switch cfg.Backend {
	case config.BackendQdrant:
		store, err := qdrant.Connect(ctx, qdrant.Config{
			URI:            cfg.QdrantGRPCURL,
			Password:       cfg.QdrantAPIKey,
			UseTLS:         cfg.QdrantUseTLS,
			CollectionName: cfg.QdrantCollection,
			Dim:            cfg.VectorDim,
			IndexParams: qdrant.IndexParams{
				MetricType:     cfg.MetricType,
				M:              cfg.HNSWM,
				EfConstruction: cfg.HNSWEfConstruct,
			},
			SearchParams:   qdrant.SearchParams{Ef: cfg.SearchEf},
			EmbeddingField: cfg.EmbeddingField,
			Recreate:       cfg.QdrantRecreate,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		slog.Info("connected to Qdrant", "collection", store.Collection())
		return store, func() { _ = store.Close() }, nil

	case config.BackendLocal:
		if _, err := os.Stat(cfg.IndexPath); err == nil {
			ix, err := tfidf.Load(cfg.IndexPath)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to load index: %w", err)
			}
			slog.Info("loaded local index", "path", cfg.IndexPath, "documents", ix.Size())
			return ix, saveOnClose(ix, cfg.IndexPath), nil
		}
		ix := tfidf.New(tfidf.WithMaxVocab(cfg.MaxVocab))
		slog.Info("starting with empty local index", "path", cfg.IndexPath)
		return ix, saveOnClose(ix, cfg.IndexPath), nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func saveOnClose(ix *tfidf.Index, path string) func() {
	return func() {
		err := ix.Save(path)
		if errors.Is(err, retrieval.ErrNotBuilt) {
			return
		}
		if err != nil {
			slog.Error("failed to save index", "path", path, "error", err)
			return
		}
		slog.Info("saved local index", "path", path)
	}
}

var (
	_ retrieval.Retriever = (*tfidf.Index)(nil)
	_ retrieval.Retriever = (*qdrant.Store)(nil)
)
