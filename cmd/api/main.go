package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/envoice/envoicego/internal/config"
	"github.com/envoice/envoicego/internal/database"
	"github.com/envoice/envoicego/internal/handlers"
	"github.com/envoice/envoicego/internal/mapper"
	"github.com/envoice/envoicego/internal/models"
	"github.com/envoice/envoicego/internal/pipeline"
	"github.com/envoice/envoicego/internal/services/lafactura"
	"github.com/envoice/envoicego/internal/services/magaya"
	"github.com/envoice/envoicego/internal/store"
	"github.com/envoice/envoicego/internal/utils"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.Account{},
		&models.Operator{},
		&models.TransactionRecord{},
		&models.PipelineRun{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	st := store.New(db.DB)

	// 4. Seed bootstrap account and operator if configured
	if err := seedBootstrap(st, cfg); err != nil {
		log.Printf("⚠️ Bootstrap seed failed: %v", err)
	}

	// 5. Wire the pipeline
	locker := pipeline.NewMemoryLocker()
	signing := lafactura.NewClient(cfg.LaFactura.BaseURL, cfg.LaFactura.Timeout)

	runner := &pipeline.Runner{
		Store:    st,
		Sessions: pipeline.NewSessionManager(cfg.Pipeline.SessionTTL, locker),
		Fetcher:  pipeline.NewFetcher(),
		Engine: &pipeline.Engine{
			Signing:  signing,
			Builder:  mapper.New(),
			Store:    st,
			Locker:   locker,
			GuardTTL: cfg.Pipeline.GuardTTL,
		},
		Magaya: func(url string) pipeline.MagayaAPI {
			return magaya.NewClient(url)
		},
		AccountPause: cfg.Pipeline.AccountPause,
	}

	// 6. Schedule the pipeline
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if cfg.Pipeline.Enabled {
		_, err := scheduler.AddFunc(cfg.Pipeline.Schedule, func() {
			log.Println("⏰ Scheduled pipeline run starting...")
			if err := runner.RunAll(context.Background()); err != nil {
				log.Printf("❌ Scheduled run failed: %v", err)
			}
		})
		if err != nil {
			log.Fatalf("Invalid pipeline schedule %q: %v", cfg.Pipeline.Schedule, err)
		}
		scheduler.Start()
		log.Printf("✅ Pipeline scheduled: %s", cfg.Pipeline.Schedule)
	} else {
		log.Println("⏸️ Pipeline scheduler disabled")
	}

	// 7. Set up HTTP router
	router := handlers.NewRouter(db, st, cfg, runner, signing)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	schedCtx := scheduler.Stop()
	<-schedCtx.Done()

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

// seedBootstrap creates the initial account and operator from environment
// variables on first boot. Existing rows are left untouched.
func seedBootstrap(st *store.Store, cfg *config.Config) error {
	b := cfg.Bootstrap

	if b.NetworkID != "" && b.MagayaURL != "" {
		account := &models.Account{
			Name:          b.AccountName,
			Active:        true,
			MagayaURL:     b.MagayaURL,
			NetworkID:     b.NetworkID,
			MagayaUser:    b.MagayaUser,
			MagayaPass:    b.MagayaPass,
			LaFacturaUser: b.LaFacturaUser,
			LaFacturaPass: b.LaFacturaPass,
		}
		if account.Name == "" {
			account.Name = b.NetworkID
		}
		if err := st.EnsureAccount(account); err != nil {
			return err
		}
		log.Printf("✅ Bootstrap account ready: %s", account.NetworkID)
	}

	if b.OperatorEmail != "" && b.OperatorSecret != "" {
		hash, err := utils.HashPassword(b.OperatorSecret)
		if err != nil {
			return err
		}
		op := &models.Operator{
			Email:        b.OperatorEmail,
			PasswordHash: hash,
			Role:         "admin",
		}
		if err := st.EnsureOperator(op); err != nil {
			return err
		}
		log.Printf("✅ Bootstrap operator ready: %s", op.Email)
	}

	return nil
}
