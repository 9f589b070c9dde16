package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := LoadConfig(getenv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Error("db open", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Error("db ping", "err", err)
		os.Exit(1)
	}

	store := NewStore(db, log)
	if err := store.Migrate(context.Background()); err != nil {
		log.Error("migrate", "err", err)
		os.Exit(1)
	}
	if cfg.Seed() {
		if err := store.Seed(context.Background()); err != nil {
			log.Error("seed", "err", err)
			os.Exit(1)
		}
	}

	pipeline := NewPipeline(store)
	checklists := NewChecklists(store)
	stats := NewStats(store)
	lifecycle := NewLifecycle(store, pipeline, checklists, stats)
	directory := NewDirectory(store, stats)
	users := NewUsers(store)
	bus := NewEventBus()

	mux := http.NewServeMux()
	api := newAPI(log, bus, pipeline, checklists, lifecycle, directory, users, cfg.AdminToken)
	api.routes(mux)

	sched := NewScheduler(store, lifecycle, NewDeliverer(bus, cfg.WebhookURL), log, cfg.Tick())
	schedCtx, stopSched := context.WithCancel(context.Background())
	go sched.Run(schedCtx)

	srv := &http.Server{Addr: cfg.Addr, Handler: withLogging(log, mux),
		ReadTimeout: 15 * time.Second, ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}

	go func() {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) && err != nil {
			log.Error("listen", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	log.Info("shutting down")
	stopSched()
	ctxSh, cancelSh := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSh()
	if err := srv.Shutdown(ctxSh); err != nil {
		log.Error("shutdown", "err", err)
	}
}
