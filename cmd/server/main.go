package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sealdoc/sealdoc/internal/config"
	"github.com/sealdoc/sealdoc/internal/database"
	"github.com/sealdoc/sealdoc/internal/handler"
	"github.com/sealdoc/sealdoc/internal/logger"
	"github.com/sealdoc/sealdoc/internal/middleware"
	"github.com/sealdoc/sealdoc/internal/provider"
	"github.com/sealdoc/sealdoc/internal/repository"
	"github.com/sealdoc/sealdoc/internal/router"
	"github.com/sealdoc/sealdoc/internal/secrets"
	"github.com/sealdoc/sealdoc/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", "0.1.0").Msg("starting SealDoc server")

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Redis is optional; it backs the distributed per-key signing lock
	var rdb *database.Redis
	var locks service.KeyLocker = service.NewLocalKeyLock()
	if cfg.Redis.Enabled {
		rdb, err = database.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		// The lock must outlive the slowest provider operation.
		locks = service.NewRedisKeyLock(rdb, cfg.Provider.CreateTimeout+10*time.Second)
		log.Info().Msg("connected to Redis, using distributed key locks")
	} else {
		log.Info().Msg("Redis disabled, using in-process key locks")
	}

	// Probe hardware once; the result holds for the process lifetime
	probe := provider.NewProbe(log)
	log.Info().Bool("hardware", probe.HardwareAvailable()).Str("detail", probe.Detail()).Msg("hardware probe complete")

	// Initialize providers
	hardware := provider.NewExternal(cfg.Provider, log)

	store, err := secrets.NewKeyStore(cfg.Secrets.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize software key store")
	}
	software := provider.NewSoftware(store, log)

	// Initialize repositories
	keyRepo := repository.NewKeyRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	sigRepo := repository.NewSignatureRepository(db)
	artRepo := repository.NewArtifactRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Initialize services
	keySvc := service.NewKeyService(keyRepo, auditRepo, probe, hardware, software, locks, log)
	docSvc := service.NewDocumentService(docRepo, sigRepo, auditRepo, log)
	composer := service.NewComposer(artRepo, cfg.Artifacts.OutputDir, log)
	signSvc := service.NewSigningService(keyRepo, docRepo, sigRepo, auditRepo, hardware, software, composer, locks, log)

	// Initialize handlers
	h := handler.New(db, rdb, log, cfg, keySvc, docSvc, signSvc, composer)

	// Initialize middleware
	mw := middleware.New(log)

	// Set up router
	r := router.New(h, mw)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		var err error
		if cfg.Server.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
