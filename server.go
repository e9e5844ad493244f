package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/diamondperls/internal/config"
	"github.com/rmitchellscott/diamondperls/internal/handlers"
	"github.com/rmitchellscott/diamondperls/internal/jobs"
	"github.com/rmitchellscott/diamondperls/internal/locales"
	"github.com/rmitchellscott/diamondperls/internal/logging"
	"github.com/rmitchellscott/diamondperls/internal/middleware"
	"github.com/rmitchellscott/diamondperls/internal/pipeline"
	"github.com/rmitchellscott/diamondperls/internal/storage"
	"github.com/rmitchellscott/diamondperls/internal/version"
)

func runServe(ctx context.Context) error {
	logging.InfoWithComponent(logging.ComponentStartup, "Starting diamondperls", "version", version.String())

	cfg, err := runConfig()
	if err != nil {
		return err
	}
	papers, err := config.LoadPaperFormats()
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, papers)
	if err != nil {
		return err
	}
	lm, err := locales.Default()
	if err != nil {
		return err
	}

	store := storage.GetStorageBackend()

	pool := jobs.NewPool(p, store, config.GetInt("WORKERS", 2), config.GetInt("QUEUE_SIZE", 16))
	pool.SetRetention(config.GetDuration("JOB_RETENTION", time.Hour))
	// Jobs outlive the signal by the shutdown grace period.
	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	if err := pool.Start(poolCtx); err != nil {
		return err
	}

	if retention := config.GetDuration("OUTPUT_RETENTION", 24*time.Hour); retention > 0 {
		go storage.RunCleanup(ctx, store, config.GetDuration("CLEANUP_INTERVAL", time.Hour), retention)
	}

	limiter := middleware.UploadRateLimiterFromEnv()
	go limiter.Run(ctx, 10*time.Minute)

	if mode := config.Get("GIN_MODE", ""); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Browser front ends upload from other origins
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Accept-Language"}
	corsConfig.ExposeHeaders = []string{"Location", "Retry-After", "Content-Disposition"}
	router.Use(cors.New(corsConfig))

	maxUpload := int64(config.GetInt("MAX_UPLOAD_MB", 20)) << 20
	router.MaxMultipartMemory = maxUpload

	loc := handlers.NewLocalizer(lm, cfg.Locale)
	paletteHandler, err := handlers.NewPaletteHandler(p.Palette(), cfg.PaletteFamily, loc)
	if err != nil {
		return err
	}

	router.GET("/health", handlers.HealthHandler(pool))
	api := router.Group("/api")
	{
		api.GET("/version", handlers.VersionHandler)
		api.GET("/config", handlers.ConfigHandler(cfg))
		api.GET("/paper-formats", handlers.PaperFormatsHandler(papers, cfg.DPI))
	}
	handlers.RegisterLocaleRoutes(router, lm)
	handlers.RegisterPaletteRoutes(router, paletteHandler)
	handlers.RegisterPatternRoutes(router,
		handlers.NewPatternHandler(pool, store, loc, config.GetDuration("SYNC_WAIT_TIMEOUT", 2*time.Minute)),
		limiter.RateLimit(), middleware.RequestSizeLimit(maxUpload))

	addr := ":" + config.Get("PORT", "8000")
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.Info("[STARTUP] Listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		pool.Stop()
		return err
	}

	logging.Info("[SHUTDOWN] Shutting down server and workers")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("[SHUTDOWN] Server forced to shutdown", "error", err)
	}
	stopTimer := time.AfterFunc(30*time.Second, cancelPool)
	defer stopTimer.Stop()
	if err := pool.Stop(); err != nil {
		logging.Error("[SHUTDOWN] Error stopping worker pool", "error", err)
	}

	logging.Info("[SHUTDOWN] Server and workers stopped")
	return nil
}
