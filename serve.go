package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wikirag/docstore"
	"wikirag/ollama"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP query API",
	Long: `Serve answers POST /query requests by retrieving relevant chunks from
the vector store and asking the generation model for a grounded answer.
The collection must already exist (run ingest first).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retriever, generator, err := buildQueryPath(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           NewAPIServer(logger, retriever, generator, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving query API", "addr", cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// buildQueryPath wires the store, retriever and generator shared by the
// HTTP and MCP serving surfaces.
func buildQueryPath(ctx context.Context) (*Retriever, *AnswerGenerator, error) {
	store, err := docstore.NewChromaStore(docstore.ChromaStoreConfig{
		BaseURL:    cfg.ChromaURL,
		Collection: cfg.Collection,
	})
	if err != nil {
		return nil, nil, err
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.Open(openCtx); err != nil {
		return nil, nil, err
	}

	llm := ollama.NewClient(ollama.Config{
		BaseURL:       cfg.OllamaURL,
		EmbedModel:    cfg.EmbedModel,
		GenerateModel: cfg.GenerateModel,
	})

	return NewRetriever(logger, store, llm), NewAnswerGenerator(llm), nil
}
