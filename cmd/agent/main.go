package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buscalogo/capture-agent/config"
	"github.com/buscalogo/capture-agent/internal/analyzer"
	"github.com/buscalogo/capture-agent/internal/api"
	"github.com/buscalogo/capture-agent/internal/capture"
	"github.com/buscalogo/capture-agent/internal/relay"
	"github.com/buscalogo/capture-agent/internal/search"
	"github.com/buscalogo/capture-agent/internal/storage"
	"github.com/buscalogo/capture-agent/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewAgentLogger("agent")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	// Initialize storage
	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Initialize database tables
	if err := store.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database tables: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire the capture pipeline
	pages := capture.NewStore(store, logger)
	fetcher := capture.NewHTTPFetcher(cfg.Crawler.UserAgent, cfg.GetFetchTimeout())
	extractor := analyzer.NewHTMLExtractor()
	engine := capture.NewEngine(pages, fetcher, extractor, logger, capture.EngineConfig{
		InterTaskDelay:       cfg.GetInterTaskDelay(),
		MaxCandidatesPerPage: cfg.Crawler.MaxCandidatesPerPage,
		MaxAttempts:          cfg.Crawler.MaxAttempts,
	})
	docAnalyzer := analyzer.NewDocumentAnalyzer(cfg.Crawler.UserAgent, cfg.GetFetchTimeout())
	capturer := capture.NewCapturer(docAnalyzer, pages, engine, logger)
	index := search.NewIndex(store)

	// Resume tasks left over from the previous run
	if err := engine.Start(ctx); err != nil {
		log.Fatalf("Failed to start capture engine: %v", err)
	}

	// Connect to the relay if enabled
	var relayClient *relay.Client
	if cfg.Relay.Enabled {
		relayClient = relay.NewClient(cfg.Relay.URL, index, logger)
		relayClient.Connect(ctx)
	}

	// Periodic cleanup of finished queue tasks
	go func() {
		ticker := time.NewTicker(cfg.GetSweepInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				engine.Sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Initialize API server
	handler := api.NewHandler(store, pages, capturer, engine, index, relayClient, logger)
	server := api.NewServer(cfg.Server.Port, handler)

	// Start the API server
	go func() {
		log.Printf("Starting API server on port %d", cfg.Server.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start API server: %v", err)
		}
	}()

	// Wait for shutdown
	waitForShutdown(cancel, server)
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Database.Driver == "postgres" {
		return storage.NewPostgresStore(cfg.Database.URL)
	}
	return storage.NewSQLiteStore(cfg.Database.Path)
}

func waitForShutdown(cancel context.CancelFunc, server *api.Server) {
	// Handle system signals for shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down...")
	cancel()

	// Graceful server shutdown
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	log.Println("Server shut down gracefully")
}
