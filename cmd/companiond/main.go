// Command companiond serves AI companion chat over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solacelabs/companiond/internal/auth"
	"github.com/solacelabs/companiond/internal/companion"
	"github.com/solacelabs/companiond/internal/completion"
	"github.com/solacelabs/companiond/internal/config"
	"github.com/solacelabs/companiond/internal/history"
	"github.com/solacelabs/companiond/internal/memory"
	"github.com/solacelabs/companiond/internal/ratelimit"
	"github.com/solacelabs/companiond/internal/server"
	"github.com/solacelabs/companiond/internal/store"
)

const sweepInterval = time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("[MAIN] %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	companions, err := companion.NewStore(db)
	if err != nil {
		return err
	}
	defer companions.Close()

	hist, err := history.New(db, cfg.HistoryWindow)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	index := memory.NewIndex(embedder)
	if err := rebuildIndexes(context.Background(), companions, index); err != nil {
		return err
	}

	limiter := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	stopSweep := make(chan struct{})
	go limiter.Run(sweepInterval, stopSweep)
	defer close(stopSweep)

	provider, err := auth.NewStaticProvider(cfg.AuthTokens)
	if err != nil {
		return err
	}

	client := completion.NewAnthropicClient(cfg.AnthropicKey)
	orchestrator := completion.NewOrchestrator(client, hist, cfg.Temperature, cfg.MaxTokens)

	srv := server.New(server.Config{
		Auth:           provider,
		Companions:     companions,
		History:        hist,
		Index:          index,
		Limiter:        limiter,
		Orchestrator:   orchestrator,
		Model:          cfg.Model,
		PromptMaxBytes: cfg.PromptMaxBytes,
	})

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Router(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("[MAIN] Listening on %s (model %s)", cfg.Addr, cfg.Model)
		errc <- httpServer.ListenAndServe()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigc:
		log.Printf("[MAIN] Caught %v, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	log.Printf("[MAIN] Goodbye")
	return nil
}

// rebuildIndexes restores the in-memory vector index from persisted
// companions at startup.
func rebuildIndexes(ctx context.Context, companions *companion.Store, index *memory.Index) error {
	all, err := companions.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range all {
		n, err := index.BuildIndex(ctx, c.ID, c.Background)
		if err != nil {
			return err
		}
		log.Printf("[MAIN] Indexed companion %s (%d chunks)", c.ID, n)
	}
	return nil
}
