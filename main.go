// Command codesiege starts the game session server: HTTP matchmaking,
// the game websocket, and health/metrics endpoints.
//
// Flags control host/port, the catalog config directory, the Postgres
// DSN (omit it to run on the in-memory store), debug logging and the
// allowed frontend origin for websocket upgrades.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/lolney/codesiege/api"
	"github.com/lolney/codesiege/game/catalog"
	"github.com/lolney/codesiege/game/match"
	"github.com/lolney/codesiege/game/session"
	"github.com/lolney/codesiege/store"
	"github.com/lolney/codesiege/store/memory"
	"github.com/lolney/codesiege/store/postgres"
)

var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", envDefault("CONFIG_DIR", ""), "Directory containing catalog configurations (empty: built-in catalog)")
	catalogName  = flag.String("catalog", envDefault("CATALOG", "classic"), "Catalog to load from the config directory")
	dsn          = flag.String("dsn", envDefault("DATABASE_URL", ""), "Postgres DSN (empty: in-memory store)")
	frontendHost = flag.String("frontend-host", envDefault("FRONTEND_HOST", ""), "Allowed frontend origin for websocket upgrades (empty: allow all)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
)

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	flag.Parse()

	log := setupLogger(*debug)

	cat, err := loadCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("load catalog")
	}
	log.Info().Str("catalog", cat.Name).Int("items", len(cat.Items)).Msg("catalog loaded")

	st, closeStore, err := openStore(log)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer closeStore()

	manager := session.NewManager(st, cat, log)
	matchmaker := match.New(manager, log)
	server := api.NewServer(manager, matchmaker, originChecker(*frontendHost), log)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     server,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

func setupLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// loadCatalog reads the named catalog from the config directory, or
// falls back to the built-in one when no directory is configured.
func loadCatalog() (*catalog.Config, error) {
	if *configDir == "" {
		return catalog.Default(), nil
	}
	manager, err := catalog.NewManager(*configDir)
	if err != nil {
		return nil, err
	}
	return manager.Load(*catalogName)
}

// openStore connects to Postgres when a DSN is configured and falls
// back to the in-memory store otherwise.
func openStore(log zerolog.Logger) (store.Store, func(), error) {
	if *dsn == "" {
		log.Info().Msg("using in-memory store")
		return memory.New(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := postgres.Connect(ctx, *dsn)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("connected to postgres")
	return pg, pg.Close, nil
}

// originChecker allows websocket upgrades only from frontendHost, or
// from anywhere when it is unset.
func originChecker(frontendHost string) func(r *http.Request) bool {
	if frontendHost == "" {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == frontendHost
	}
}
