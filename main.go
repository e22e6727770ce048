package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canopy-ai/canopy/internal/adapter/agentbridge"
	"github.com/canopy-ai/canopy/internal/adapter/llm"
	"github.com/canopy-ai/canopy/internal/config"
	"github.com/canopy-ai/canopy/internal/eventlog"
	store "github.com/canopy-ai/canopy/internal/repository"
	"github.com/canopy-ai/canopy/internal/service"
	"github.com/canopy-ai/canopy/internal/summarize"
	handler "github.com/canopy-ai/canopy/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting canopy...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Summarizer: %s (%s)", cfg.LLMBaseURL, cfg.LLMModel)

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	llmClient := llm.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	summarizer := summarize.New(llmClient)
	bridge := agentbridge.NewClient(cfg.AgentBridgeURL)

	events := eventlog.New(db, eventlog.Config{
		BatchSize:     cfg.EventBatchSize,
		FlushInterval: cfg.EventFlushInterval,
		Retention:     cfg.EventRetention(),
	})

	svc := service.New(db, summarizer, bridge, events)
	server := handler.NewServer(svc)

	// Background flusher and retention pruning.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	go events.Run(bgCtx)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("API started on port %d", cfg.HTTPPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down canopy...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	// Stop background work and flush whatever is still buffered.
	bgCancel()
	if err := events.Close(); err != nil {
		log.Printf("Failed to flush events on shutdown: %v", err)
	}

	log.Println("Canopy stopped")
}
