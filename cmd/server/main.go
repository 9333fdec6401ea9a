package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/example/resource-island/internal/auth"
	"github.com/example/resource-island/internal/config"
	"github.com/example/resource-island/internal/game"
	"github.com/example/resource-island/internal/server"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file")
		logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	log := newLogger(*logLevel)
	slog.SetDefault(log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("configuration failed", "path", *configPath, "err", err)
		os.Exit(1)
	}
	rules, err := cfg.Rules()
	if err != nil {
		log.Error("configuration failed", "path", *configPath, "err", err)
		os.Exit(1)
	}

	state := game.NewState()
	if err := state.Initialize(rules); err != nil {
		log.Error("state initialization failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan game.Event, game.EventChannelCapacity)
	router := game.NewRouter(state, events, log)
	go router.Run()

	loop := game.NewLoop(state, events, game.LoopConfig{
		RequiredPlayers: cfg.Server.RequiredPlayers,
		TotalEpochs:     cfg.GameRules.Prepare.TotalEpochs,
		PhaseInterval:   cfg.GameRules.Prepare.PhaseInterval,
	}, log)
	go loop.Run(ctx)

	socketGate := &auth.Gate{
		Enabled: cfg.Server.UseToken,
		Mode:    auth.Mode(cfg.Server.TokenMode),
		Token:   cfg.Server.Token,
	}
	queryGate := &auth.Gate{
		Enabled: cfg.Server.QueryUseToken,
		Mode:    auth.Mode(cfg.Server.TokenMode),
		Token:   cfg.Server.Token,
	}
	handler := &server.LogHandler{Investment: cfg.GameRules.Investment, Log: log}
	gs := server.New(state, socketGate, queryGate, cfg.GameRules.Prepare.DefaultAP, handler, log)

	r := mux.NewRouter()
	r.Use(corsMiddleware)
	gs.Routes(r)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("resource island server listening", "addr", cfg.Server.Addr())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
