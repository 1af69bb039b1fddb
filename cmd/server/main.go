package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/advisor"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/contextcache"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/metrics"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/pricing"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/store"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/trade"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	ctx := context.Background()

	// --- Ledger store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Price oracle ---
	oracle := pricing.NewHTTPProvider(30 * time.Second)

	// --- WebSocket hub ---
	wsHub := trade.NewWSHub()
	go wsHub.Run()

	// --- Trade service ---
	tradeSvc := trade.NewService(st, oracle, wsHub)

	// --- Context cache ---
	var cache contextcache.Cache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		cache = contextcache.NewRedisCache(rdb, tradeSvc, 10*time.Minute)
		slog.Info("Redis context cache enabled")
	} else {
		slog.Warn("REDIS_URL not set, using in-memory context cache")
		cache = contextcache.NewMemoryCache(tradeSvc)
	}
	tradeSvc.SetRefreshHook(cache.Refresh)

	// --- AI advisor ---
	// genai reads GEMINI_API_KEY from the environment. Without it the
	// service still runs; only the advisor endpoints are disabled.
	var advisorSvc *advisor.Service
	if client, err := genai.NewClient(ctx, nil); err != nil {
		slog.Warn("advisor disabled, Gemini client unavailable", "err", err)
	} else {
		completer := advisor.NewGeminiCompleter(client, os.Getenv("GEMINI_MODEL"))
		advisorSvc = advisor.NewService(completer, cache, oracle)
		slog.Info("advisor enabled")
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"paper-trading"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for executed-trade events.
		r.Get("/ws", wsHub.HandleWS)

		// Direct trading.
		r.Post("/trade", tradeSvc.HandleTrade)

		// Portfolio queries.
		r.Get("/portfolio/{userID}", tradeSvc.HandlePortfolio)
		r.Get("/transactions/{userID}", tradeSvc.HandleTransactions)

		// AI intent-to-order bridge.
		if advisorSvc != nil {
			r.Post("/advisor/propose", advisorSvc.HandlePropose)
		}
		r.Post("/advisor/execute", tradeSvc.HandleExecute)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("paper-trading service listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("paper-trading service stopped")
}
