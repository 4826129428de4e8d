package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/config"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/db"
	dbMemory "github.com/Flowzym/UpperWork-Navigator-sub000/internal/db/memory"
	dbRedis "github.com/Flowzym/UpperWork-Navigator-sub000/internal/db/redis"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/ingest"
	logpkg "github.com/Flowzym/UpperWork-Navigator-sub000/internal/logger"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/metrics"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/repository/chunkcache"
	overridesrepo "github.com/Flowzym/UpperWork-Navigator-sub000/internal/repository/overrides"
	chiTransport "github.com/Flowzym/UpperWork-Navigator-sub000/internal/transport/chi"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/dataset"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/docstore"
	overridesuc "github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/overrides"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/retrieve"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting navigator API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("ingest_base_url", cfg.Ingest.BaseURL),
	)

	// Create key-value store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	// Build the dataset pipeline — composition root
	ingestClient := ingest.NewClient(ingest.Config{
		BaseURL:    cfg.Ingest.BaseURL,
		StatsPath:  cfg.Ingest.StatsPath,
		ChunksPath: cfg.Ingest.ChunksPath,
		MetaPath:   cfg.Ingest.MetaPath,
		Timeout:    time.Duration(cfg.Ingest.TimeoutSec) * time.Second,
		Attempts:   uint(cfg.Ingest.Attempts),
		RetryDelay: time.Duration(cfg.Ingest.RetryDelayMS) * time.Millisecond,
	}, logger)

	cache := chunkcache.New(store, ingestClient, metrics.ChunkCacheTotal, logger)
	ovRepo := overridesrepo.New(store, logger)
	index := docstore.New()

	datasetSvc := dataset.New(ingestClient, cache, ovRepo, index, logger)
	overridesSvc := overridesuc.New(ovRepo, datasetSvc, logger)
	retriever := retrieve.New(index,
		cfg.Retrieval.DefaultK, cfg.Retrieval.MaxK, cfg.Retrieval.MaxContextChars)

	// Initial load. An unreachable ingest source is not fatal: the server
	// starts degraded (empty index, /health reports it) and an operator
	// can retry via POST /admin/reload once the source is back.
	if report, err := datasetSvc.Reload(ctx); err != nil {
		if errors.Is(err, domain.ErrIngestUnavailable) {
			metrics.ReloadsTotal.WithLabelValues("error").Inc()
			logger.Warn("Ingestion source unavailable, starting in degraded mode", zap.Error(err))
		} else {
			logger.Fatal("Initial dataset load failed", zap.Error(err))
		}
	} else {
		metrics.ReloadsTotal.WithLabelValues("ok").Inc()
		metrics.DatasetChunks.Set(float64(report.Chunks))
		logger.Info("Initial dataset loaded",
			zap.String("build_id", report.BuildID),
			zap.String("source", string(report.Source)),
			zap.Int("chunks", report.Chunks),
		)
	}

	// Create chi server
	server := chiTransport.NewServer(
		retriever, overridesSvc, datasetSvc, index, store,
		cfg.Auth.APIKeys, cfg.Retrieval.HistoryLimit, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
