package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/retriever-labs/campusqa/internal/config"
	"github.com/retriever-labs/campusqa/internal/index"
	logpkg "github.com/retriever-labs/campusqa/internal/logger"
	"github.com/retriever-labs/campusqa/internal/metrics"
	"github.com/retriever-labs/campusqa/internal/nlp/entities"
	"github.com/retriever-labs/campusqa/internal/nlp/intent"
	"github.com/retriever-labs/campusqa/internal/nlp/normalizer"
	classrepo "github.com/retriever-labs/campusqa/internal/repository/classes"
	corpusrepo "github.com/retriever-labs/campusqa/internal/repository/corpus"
	"github.com/retriever-labs/campusqa/internal/repository/sqlite"
	chiTransport "github.com/retriever-labs/campusqa/internal/transport/chi"
	openaiTransport "github.com/retriever-labs/campusqa/internal/transport/openai"
	assistantuc "github.com/retriever-labs/campusqa/internal/usecase/assistant"
	ingestuc "github.com/retriever-labs/campusqa/internal/usecase/ingest"
	"github.com/retriever-labs/campusqa/internal/version"
	"github.com/retriever-labs/campusqa/internal/vocab"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting campusqa API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.String("index_backend", cfg.Index.Backend),
	)

	db, err := sqlite.Open(cfg.Storage.DataDir)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	classStore, err := classrepo.New(db)
	if err != nil {
		logger.Fatal("Failed to init class store", zap.Error(err))
	}
	corpusStore, err := corpusrepo.New(db)
	if err != nil {
		logger.Fatal("Failed to init corpus store", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Vocabulary: built-in gazetteer, optionally extended from a YAML overlay.
	gazetteer := vocab.Default()
	if cfg.Vocabulary.Path != "" {
		gazetteer, err = vocab.LoadOverlay(cfg.Vocabulary.Path)
		if err != nil {
			logger.Fatal("Failed to load vocabulary overlay",
				zap.String("path", cfg.Vocabulary.Path), zap.Error(err))
		}
		logger.Info("Loaded vocabulary overlay", zap.String("path", cfg.Vocabulary.Path))
	}

	norm := normalizer.New(gazetteer, cfg.Assistant.MaxEditDistance)
	extract := entities.New(gazetteer, vocab.NewTermTable(nil, time.Now))
	classify := intent.New()

	ctx := logpkg.ContextWithLogger(context.Background(), logger)

	// Pass nil interface (not typed nil pointer!) when the provider is not
	// configured. Go gotcha: (*openaiTransport.Embedder)(nil) wrapped in an
	// interface != nil.
	var embedder index.Embedder
	if cfg.Embedding.APIKey != "" {
		emb := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
		hcCtx, hcCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := emb.HealthCheck(hcCtx); err != nil {
			logger.Warn("Embedding provider health check failed, index may fall back to sparse",
				zap.Error(err))
		}
		hcCancel()
		embedder = emb
		logger.Info("Embedder created",
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	var generator assistantuc.Generator
	if cfg.Generator.APIKey != "" {
		generator = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
			APIKey:  cfg.Generator.APIKey,
			BaseURL: cfg.Generator.BaseURL,
			Model:   cfg.Generator.Model,
			Logger:  logger,
		})
		logger.Info("Generator created", zap.String("model", cfg.Generator.Model))
	}

	idx := index.New(cfg.Index.Backend, embedder, logger)

	assistantSvc := assistantuc.New(norm, extract, classify, classStore, idx, generator, assistantuc.Config{
		TopK:            cfg.Assistant.TopK,
		MaxTopK:         cfg.Assistant.MaxTopK,
		StoreTimeout:    time.Duration(cfg.Assistant.StoreTimeoutSec) * time.Second,
		GenerateTimeout: time.Duration(cfg.Assistant.GenerateTimeoutSec) * time.Second,
	})
	ingestSvc := ingestuc.New(classStore, corpusStore, idx, norm, extract, nil)

	// Warm start: build an index from whatever the stores already hold so the
	// assistant can answer right after a restart.
	if st, err := ingestSvc.RebuildIndex(ctx); err != nil {
		logger.Warn("Initial index build failed, waiting for ingestion", zap.Error(err))
	} else if st.DocumentCount == 0 {
		logger.Info("Stores are empty, index has no documents yet")
	}

	server := chiTransport.NewServer(assistantSvc, ingestSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.HTTP.APIKeys))
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
