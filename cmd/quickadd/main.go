package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/giftlist/quickadd/internal/quickadd/ai"
	"github.com/giftlist/quickadd/internal/quickadd/budget"
	"github.com/giftlist/quickadd/internal/quickadd/cache"
	"github.com/giftlist/quickadd/internal/quickadd/handlers"
	"github.com/giftlist/quickadd/internal/quickadd/service"
	"github.com/giftlist/quickadd/internal/shared/config"
	"github.com/giftlist/quickadd/internal/shared/database"
	"github.com/giftlist/quickadd/internal/shared/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting quick-add service on port %s (env: %s)", cfg.Port, cfg.Env)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Connected to Redis")

	// Initialize AI client
	aiClient := ai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, time.Duration(cfg.OpenAITimeoutSecs)*time.Second)
	log.Printf("✓ Initialized OpenAI client (model: %s)", cfg.OpenAIModel)

	// Initialize budget ledger and lookup cache
	ledger := budget.NewLedger(db, cfg.MonthlyBudgetCents)
	lookupCache := cache.New(db, time.Duration(cfg.CacheTTLDays)*24*time.Hour)
	log.Println("✓ Initialized budget ledger and lookup cache")

	// Initialize orchestrator and handlers
	svc := service.New(ledger, lookupCache, aiClient)
	quickAddHandler := handlers.NewQuickAddHandler(svc)
	budgetHandler := handlers.NewBudgetHandler(ledger)
	middleware := handlers.NewMiddleware(db, redisClient, cfg.RateLimitPerMinute)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORSMiddleware)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// API routes (with auth; rate limiting only on the paid endpoint)
	r.Route("/api/ai", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)

		r.Get("/budget", budgetHandler.HandleGetBudget)
		r.With(middleware.RateLimitMiddleware).Post("/quick-add", quickAddHandler.HandleQuickAdd)
	})

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("🚀 Server listening on http://localhost:%s", cfg.Port)
		log.Println("   POST /api/ai/quick-add - AI-assisted item lookup")
		log.Println("   GET  /api/ai/budget    - Monthly budget snapshot")
		log.Println("   GET  /health           - Health check")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
