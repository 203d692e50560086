package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tuneroom/live-service/config"
	"github.com/tuneroom/live-service/internal/directory"
	"github.com/tuneroom/live-service/internal/gateway"
	"github.com/tuneroom/live-service/internal/history"
	"github.com/tuneroom/live-service/internal/identity"
	"github.com/tuneroom/live-service/internal/moderation"
	"github.com/tuneroom/live-service/internal/postgres"
	"github.com/tuneroom/live-service/internal/registry"
	httpx "github.com/tuneroom/live-service/internal/transport/http"
	"github.com/tuneroom/live-service/internal/transport/ws"
	"github.com/tuneroom/live-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting live-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- auth ---
	pub, err := identity.LoadRSAPublicKeyFromPEM(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("auth public key: %v", err)
	}
	verifier := identity.NewJWTVerifier(pub, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.ClockSkewOr(30*time.Second))

	// --- history & catalog ---
	ctx := context.Background()
	var (
		store   history.Store
		catalog gateway.RoomCatalog
	)
	if cfg.History.Backend == "postgres" {
		db, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		store = postgres.NewHistoryRepository(db.Pool)
		catalog = postgres.NewCatalogRepository(db.Pool)
	} else {
		// память: все комнаты эфемерные, каталог открыт
		store = history.NewMemoryStore()
		catalog = gateway.OpenCatalog{}
	}

	// --- engine ---
	reg := registry.New(verifier)
	dir := directory.New(reg)
	mod := moderation.NewRuleModerator(cfg.Moderation.BlockWords, cfg.Moderation.FlagWords)

	g := gateway.New(gateway.Config{
		AuthTimeout:       cfg.Auth.TimeoutOr(5 * time.Second),
		ModerationTimeout: cfg.Moderation.TimeoutOr(2 * time.Second),
		AppendRetries:     cfg.History.AppendRetries,
		AppendBackoff:     cfg.History.AppendBackoffOr(50 * time.Millisecond),
	}, reg, dir, mod, store, catalog)

	// --- WS & HTTP ---
	wsServer := ws.NewServer(g)
	router := httpx.NewRouter(wsServer, cfg.HTTP.AllowedOrigins)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
