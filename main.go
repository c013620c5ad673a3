package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/ranked-eats/cliparse"
	"github.com/danielhkuo/ranked-eats/db"
	"github.com/danielhkuo/ranked-eats/middleware"
	"github.com/danielhkuo/ranked-eats/ratelimit"
	"github.com/danielhkuo/ranked-eats/router"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err, "type", cfg.DatabaseType)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Apply migrations
	if err := db.Migrate(dbConn, cfg.DatabaseType, cfg.DatabaseURL); err != nil {
		slog.Error("schema migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	// Vote rate limiting
	var limiter ratelimit.Limiter = ratelimit.Nop{}
	if cfg.RedisURL != "" {
		redisLimiter, err := ratelimit.NewFromURL(cfg.RedisURL, cfg.RateLimit, cfg.RateWindow)
		if err != nil {
			slog.Error("rate limiter connection failed", "error", err)
			os.Exit(1)
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
		slog.Info("Rate limiting enabled", "limit", cfg.RateLimit, "window", cfg.RateWindow)
	} else {
		slog.Warn("REDIS_URL not set, vote rate limiting disabled")
	}

	// Create router
	mux := router.NewRouter(dbConn, cfg, limiter)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux, cfg.CORSOrigins),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		// Wait for Ctrl-C signal
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
		return
	}
	// Let in-flight requests finish
	<-drained
	slog.Info("Server closed", "error", err)
}
