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

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"plantprice/config"
	"plantprice/database"
	"plantprice/handlers"
	"plantprice/middleware"
	"plantprice/repository"
	"plantprice/scheduler"
	"plantprice/scraper"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence is optional
	var store scheduler.ResultStore
	var history handlers.HistoryStore
	if cfg.DatabaseURL != "" {
		if err := database.InitDatabase(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.CloseDatabase()

		if err := database.CreateTables(); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		repo := repository.NewResultRepository()
		store, history = repo, repo
	} else {
		log.Println("⚠️ DATABASE_URL not set, results are kept in memory only")
	}

	finder := scraper.NewPriceFinder(scraper.FinderConfig{
		Pacing:             cfg.Pacing,
		Captcha:            scraper.NewCaptchaDetector(cfg.CaptchaExtraPhrases, cfg.CaptchaExtraSelectors),
		MarketplaceTimeout: cfg.MarketplaceTimeout,
	})
	sessions := &scraper.SessionFactory{HTTP: cfg.HTTP, Browser: cfg.Browser}

	orchestrator := scheduler.NewOrchestrator(ctx, finder, sessions, store, cfg.ResultCount)
	events := scheduler.NewEventLog(orchestrator.Events(), 500)
	events.Start()
	defer events.Stop()

	defaults := scheduler.BatchOptions{
		Method:          cfg.Method,
		ExcludedSources: cfg.ExcludedSources,
		PauseOnCaptcha:  cfg.PauseOnCaptcha,
		Selection:       cfg.Selection,
	}
	if cfg.ScheduleEnabled {
		batchScheduler := scheduler.NewBatchScheduler(cfg.ScheduleSpec, cfg.PlantListFile, orchestrator, defaults)
		if err := batchScheduler.Start(); err != nil {
			log.Fatalf("Failed to start batch scheduler: %v", err)
		}
		defer batchScheduler.Stop()
	}

	h := handlers.NewHandlers(orchestrator, events, history, handlers.Defaults{
		Method:          cfg.Method,
		PauseOnCaptcha:  cfg.PauseOnCaptcha,
		ExcludedSources: cfg.ExcludedSources,
		Selection:       cfg.Selection,
		ExportColumns:   cfg.ExportColumns,
	})

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(cfg.APIRateLimit))
	r.Use(middleware.APIKeyMiddleware(cfg.APIKey))
	h.Register(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("🌐 Server starting on %s", cfg.Addr())
		log.Printf("📋 API:")
		log.Printf("   GET  /health - Health check")
		log.Printf("   GET  /api/v1/sources - Source table")
		log.Printf("   POST /api/v1/batch - Start batch")
		log.Printf("   POST /api/v1/batch/resume - Resume after CAPTCHA")
		log.Printf("   POST /api/v1/batch/stop - Stop batch")
		log.Printf("   GET  /api/v1/batch - Progress")
		log.Printf("   GET  /api/v1/batch/export - Download report")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ Server error: %v", err)
	}

	log.Println("🛑 Shutting down...")
	if err := orchestrator.Stop(); err == nil {
		log.Println("🛑 Waiting for current plant to finish")
	}
	orchestrator.Wait()
}
