package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/danielfabbri/logzone-api/internal/api"
	"github.com/danielfabbri/logzone-api/internal/cache"
	"github.com/danielfabbri/logzone-api/internal/client"
	"github.com/danielfabbri/logzone-api/internal/config"
	"github.com/danielfabbri/logzone-api/internal/repo"
	"github.com/danielfabbri/logzone-api/internal/scheduler"
	"github.com/danielfabbri/logzone-api/internal/service"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.LoadAll()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Error("postgres unreachable", "error", err)
		os.Exit(1)
	}

	messages := repo.NewPostgresMessageRepo(db)
	projects := repo.NewPostgresProjectRepo(db)
	users := repo.NewPostgresUserRepo(db)
	logs := repo.NewPostgresLogRepo(db)

	var dispatches cache.DispatchCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		dispatches = cache.NewRedisCache(rdb, cfg.Redis.TTL)
		log.Info("dispatch cache enabled", "addr", cfg.Redis.Address)
	}

	llm := client.NewLLMClient(cfg.AI.Endpoint, cfg.AI.APIKey)
	gateway := client.NewGatewayClient(cfg.WhatsApp.BaseURL)
	session := service.NewSession(gateway, cfg.WhatsApp.Email, cfg.WhatsApp.Password, cfg.WhatsApp.BearerToken)
	dispatcher := service.NewDispatcher(gateway, session, cfg.WhatsApp.DeviceToken)
	responder := service.NewResponder(llm, cfg.AI)
	history := service.NewHistory(messages)
	pipeline := service.NewPipeline(messages, projects, history, responder, dispatcher, dispatches, log)

	outbox := service.NewOutbox(messages, dispatcher, dispatches, cfg.Scheduler.BatchSize, log)
	loop, err := scheduler.New("outbox", cfg.Scheduler.Interval, func(ctx context.Context) {
		if _, _, err := outbox.Tick(ctx); err != nil {
			log.Error("outbox tick failed", "error", err)
		}
	}, log)
	if err != nil {
		log.Error("failed to create outbox loop", "error", err)
		os.Exit(1)
	}
	loop.Start()
	defer loop.Stop()

	handler := api.NewHandler(messages, projects, users, logs, pipeline, history, loop, log)
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           loggingMiddleware(api.Router(handler)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", "addr", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
