// Package main provides the realtime server executable: a websocket endpoint
// for clients, a REST API for business-logic injection and observability, and
// optional clustering over NATS.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/coregx/realtime"
	"github.com/coregx/realtime/adapters/natsbus"
	relicaadapter "github.com/coregx/realtime/adapters/relica"
	"github.com/coregx/realtime/cmd/realtime-server/internal/api"
	"github.com/coregx/realtime/cmd/realtime-server/internal/config"
)

// ZerologLogger implements realtime.Logger on zerolog.
type ZerologLogger struct {
	logger zerolog.Logger
}

func (l *ZerologLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l *ZerologLogger) Info(message string) {
	l.logger.Info().Msg(message)
}

func main() {
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger := &ZerologLogger{logger: zl}

	logger.Info("Starting realtime server...")

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		zl.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Infof("Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Archive: %s", archiveDescription(cfg))
	logger.Infof("Cluster: %s", clusterDescription(cfg))

	opts := []realtime.BrokerOption{
		realtime.WithLogger(logger),
		realtime.WithHeartbeat(
			time.Duration(cfg.Broker.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Broker.HeartbeatTimeout)*time.Second,
		),
		realtime.WithArchiveRetention(
			time.Duration(cfg.Broker.ArchiveTTL)*time.Second,
			time.Duration(cfg.Broker.ArchivePurgeInterval)*time.Second,
		),
	}

	// Database-backed archive is optional; without a driver the broker keeps
	// ack-required messages in memory.
	if cfg.Database.Driver != "" {
		db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
		if err != nil {
			zl.Fatal().Err(err).Msg("Failed to open database")
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.Warnf("Failed to close database: %v", closeErr)
			}
		}()

		if err := db.Ping(); err != nil {
			zl.Fatal().Err(err).Msg("Failed to connect to database")
		}

		archive := relicaadapter.NewArchiveRepositoryWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
		opts = append(opts, realtime.WithArchive(archive))
		logger.Info("Archive repository initialized (Relica adapter)")
	}

	// Clustering is optional, and a bus that cannot be reached at startup is
	// not fatal: the broker runs local-only.
	if cfg.Cluster.NATSURL != "" {
		bus, err := natsbus.Connect(cfg.Cluster.NATSURL)
		if err != nil {
			logger.Warnf("Cluster bus unavailable, running local-only: %v", err)
		} else {
			opts = append(opts, realtime.WithClusterBus(bus))
			logger.Info("Cluster bus connected")
		}
	}

	broker, err := realtime.NewBroker(opts...)
	if err != nil {
		zl.Fatal().Err(err).Msg("Failed to create broker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := broker.Initialize(ctx); err != nil {
		zl.Fatal().Err(err).Msg("Failed to initialize broker")
	}

	// Setup HTTP routes
	handler := api.NewHandler(broker, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.HandleWebSocket)
	mux.HandleFunc("/api/v1/publish", handler.HandlePublish)
	mux.HandleFunc("/api/v1/stats", handler.HandleStats)
	mux.HandleFunc("/api/v1/archive", handler.HandleArchive)
	mux.HandleFunc("/api/v1/health", handler.HandleHealth)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     loggingMiddleware(mux, logger),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Infof("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Server forced to shutdown: %v", err)
	}
	if err := broker.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Broker forced to shutdown: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

func archiveDescription(cfg *config.Config) string {
	if cfg.Database.Driver == "" {
		return "in-memory"
	}
	return fmt.Sprintf("%s (%s:%d)", cfg.Database.Driver, cfg.Database.Host, cfg.Database.Port)
}

func clusterDescription(cfg *config.Config) string {
	if cfg.Cluster.NATSURL == "" {
		return "local-only"
	}
	return cfg.Cluster.NATSURL
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger realtime.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
