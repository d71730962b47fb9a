package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/config"
	"github.com/ducdang03/money-ez-ai/internal/db"
	dbMemory "github.com/ducdang03/money-ez-ai/internal/db/memory"
	dbRedis "github.com/ducdang03/money-ez-ai/internal/db/redis"
	"github.com/ducdang03/money-ez-ai/internal/domain"
	"github.com/ducdang03/money-ez-ai/internal/loader"
	logpkg "github.com/ducdang03/money-ez-ai/internal/logger"
	"github.com/ducdang03/money-ez-ai/internal/metrics"
	"github.com/ducdang03/money-ez-ai/internal/repository/conversation"
	"github.com/ducdang03/money-ez-ai/internal/repository/embcache"
	"github.com/ducdang03/money-ez-ai/internal/repository/vectorstore"
	chiTransport "github.com/ducdang03/money-ez-ai/internal/transport/chi"
	geminiTransport "github.com/ducdang03/money-ez-ai/internal/transport/gemini"
	moneyezTransport "github.com/ducdang03/money-ez-ai/internal/transport/moneyez"
	openaiEmb "github.com/ducdang03/money-ez-ai/internal/transport/openai"
	agentuc "github.com/ducdang03/money-ez-ai/internal/usecase/agent"
	healthuc "github.com/ducdang03/money-ez-ai/internal/usecase/health"
	knowledgeuc "github.com/ducdang03/money-ez-ai/internal/usecase/knowledge"
	suggestionuc "github.com/ducdang03/money-ez-ai/internal/usecase/suggestion"
	"github.com/ducdang03/money-ez-ai/internal/version"
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

	logger.Info("Starting MoneyEZ AI server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_path", cfg.Store.Path),
		zap.String("chat_model", cfg.Gemini.ChatModel),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterModelMetrics()
	metrics.RegisterEmbeddingMetrics()

	ctx := context.Background()

	// Embedded vector store
	store, err := vectorstore.OpenBadger(cfg.Store.Path, cfg.Embedding.Dimensions, logger)
	if err != nil {
		logger.Fatal("Failed to open vector store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()
	logger.Info("Vector store ready",
		zap.String("path", cfg.Store.Path),
		zap.String("collection", cfg.Store.Collection),
	)

	// Gemini client shared by chat, classification and (by default) embeddings
	gem, err := geminiTransport.New(ctx, geminiTransport.Config{
		APIKey:         cfg.Gemini.APIKey,
		ChatModel:      cfg.Gemini.ChatModel,
		EmbeddingModel: cfg.Gemini.EmbeddingModel,
		Dimensions:     cfg.Embedding.Dimensions,
		Temperature:    cfg.Gemini.Temperature,
		MaxRetries:     cfg.Gemini.MaxRetries,
		RateLimitRPS:   cfg.Gemini.RateLimitRPS,
		RateLimitBurst: cfg.Gemini.RateLimitBurst,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create Gemini client", zap.Error(err))
	}

	// Embedding cache store based on driver
	var kv db.Store
	switch cfg.Embedding.Cache.Driver {
	case "memory":
		kv, err = dbMemory.NewStore(int64(cfg.Embedding.Cache.MaxMemoryMB) << 20)
	case "redis":
		kv, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Embedding.Cache.Addrs,
			Password: cfg.Embedding.Cache.Password,
		})
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Embedding.Cache.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer kv.Close()

	if err := kv.WaitForReady(ctx, 30*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}

	// Build embedder chain — composition root
	embedder, embeddingChecker, embModel := buildEmbedder(cfg, gem, kv, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", embModel),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("cache_driver", cfg.Embedding.Cache.Driver),
	)

	// MoneyEZ backend client
	backend := moneyezTransport.New(moneyezTransport.Config{
		BaseURL: strings.TrimSuffix(cfg.Backend.BaseURL, "/") + "/external-services",
		Secret:  cfg.Backend.ExternalSecret,
		Timeout: time.Duration(cfg.Backend.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	// Create use case services
	extractor := loader.New(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap, logger)

	knowledgeSvc := knowledgeuc.New(extractor, embedder, store, logger).
		WithTopK(cfg.Retrieval.TopK)

	agentSvc := agentuc.New(gem, knowledgeSvc, backend, logger).
		WithStreamer(gem).
		WithClassifierModel(cfg.Gemini.ClassifierModel).
		WithSystemPrompt(cfg.Agent.SystemPrompt).
		WithMaxToolRounds(cfg.Agent.MaxToolRounds)

	suggestionSvc := suggestionuc.New(backend, gem, logger)

	convRegistry := conversation.NewRegistry()

	healthSvc := healthuc.New(store, embeddingChecker)

	// Create chi server
	server := chiTransport.NewServer(
		agentSvc, knowledgeSvc, suggestionSvc, convRegistry, healthSvc,
		cfg.Auth.ExternalSecret, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	// Nightly value-log GC for the embedded store
	gc := cron.New()
	if _, err := gc.AddFunc(cfg.Store.GCSchedule, store.RunGC); err != nil {
		logger.Warn("Invalid GC schedule, value log GC disabled",
			zap.String("schedule", cfg.Store.GCSchedule),
			zap.Error(err),
		)
	}
	gc.Start()

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTP.IdleTimeoutSec) * time.Second,
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

	gcStop := gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// An in-flight GC run must finish before the deferred store close.
	<-gcStop.Done()

	logger.Info("Server stopped gracefully")
}

// batchEmbedder is what the embedding cache decorates.
type batchEmbedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// buildEmbedder assembles the decorator chain: provider -> cached.
// Returns the chain, the provider's health check and the model name.
func buildEmbedder(
	cfg config.Config,
	gem *geminiTransport.Client,
	kv db.Store,
	logger *zap.Logger,
) (*embcache.CachedEmbedder, healthuc.EmbeddingChecker, string) {
	var (
		base    batchEmbedder
		checker healthuc.EmbeddingChecker
		model   string
	)
	switch cfg.Embedding.Provider {
	case "openai":
		emb := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.OpenAI.APIKey,
			BaseURL:    cfg.Embedding.OpenAI.BaseURL,
			Model:      cfg.Embedding.OpenAI.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   "openai",
			Logger:     logger,
		})
		base, checker, model = emb, emb, cfg.Embedding.OpenAI.Model
	default:
		emb := gem.Embedder()
		base, checker, model = emb, emb, cfg.Gemini.EmbeddingModel
	}

	cached := embcache.New(
		base, kv,
		model, cfg.Embedding.Cache.KeyPrefix,
		time.Duration(cfg.Embedding.Cache.TTLSec)*time.Second,
		metrics.EmbeddingCacheTotal,
		logger,
	)
	return cached, checker, model
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
					_ = json.NewEncoder(w).Encode(map[string]any{
						"status":     http.StatusInternalServerError,
						"error_code": "INTERNAL_ERROR",
						"message":    "internal error",
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
