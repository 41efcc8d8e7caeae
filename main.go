// api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"slidetrack/api/cache"
	"slidetrack/api/database"
	"slidetrack/api/handlers"
	"slidetrack/api/middleware"
	"slidetrack/api/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Durable store (sessions, page views, clicks, admin users).
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL")
	}
	defer dbClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, dbClient.DB); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}
	cancel()

	// Ephemeral session cache + realtime presence.
	rdb, err := database.NewRedisClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis")
	}
	defer rdb.Close()
	sessionCache := cache.NewRedisCache(rdb)

	eventStore := store.NewPostgresStore(dbClient.DB)
	userStore := store.NewUserStore(dbClient.DB)

	// Raw-event archive is optional; skipped when ClickHouse is not configured.
	var archiveStore *store.ArchiveStore
	if os.Getenv("CLICKHOUSE_HOST") != "" {
		chClient, err := database.NewClickHouseDB()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize ClickHouse")
		}
		defer chClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.EnsureArchiveSchema(ctx, chClient); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("Failed to apply archive schema")
		}
		cancel()
		archiveStore = store.NewArchiveStore(chClient)
	}

	authHandlers := handlers.NewAuthHandlers(userStore)
	trackHandlers := handlers.NewTrackHandlers(eventStore, sessionCache, sessionCache, archiveStore)
	statsHandlers := handlers.NewStatsHandlers(eventStore, sessionCache, archiveStore)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		// The track endpoint is intentionally open: anonymous visitors write
		// to it. Everything that reads or destroys data requires auth.
		api.POST("/track", trackHandlers.TrackEvent)

		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired())
		{
			statsGroup := protected.Group("/stats")
			{
				statsGroup.GET("", statsHandlers.GetStats)
				statsGroup.GET("/funnel", statsHandlers.GetFunnel)
				statsGroup.GET("/heatmap/:slideId", statsHandlers.GetHeatmap)
				statsGroup.POST("/reset", statsHandlers.Reset)
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", port).Msg("API server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
