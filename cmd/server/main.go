// Command server serves tuned configurations to trading bots: REST
// reads with checksum headers for cheap polling, a websocket feed for
// pushes, and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"coin-strategy-lab/internal/distribution"
	"coin-strategy-lab/internal/observability"
	"coin-strategy-lab/internal/storage"
	"coin-strategy-lab/internal/storage/memory"
	"coin-strategy-lab/internal/storage/migrations"
	pgstore "coin-strategy-lab/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("SERVER_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory store instead of PostgreSQL")
	migrate := flag.Bool("migrate", true, "Apply database migrations on startup")
	flag.Parse()

	logger := log.New(os.Stderr, "[server] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore := buildStore(ctx, logger, *postgresDSN, *useMemory, *migrate)
	defer closeStore()

	srv := distribution.NewServer(store, logger)
	defer srv.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.Handle("/", srv.Handler())

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", *addr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	logger.Println("stopped")
}

func buildStore(ctx context.Context, logger *log.Logger, postgresDSN string, useMemory, migrate bool) (storage.TunedConfigStore, func()) {
	if useMemory {
		logger.Println("using in-memory config store")
		return memory.NewTunedConfigStore(), func() {}
	}
	if postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (or pass --use-memory)")
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			logger.Fatalf("run migrations: %v", err)
		}
	}
	return pgstore.NewTunedConfigStore(pool), pool.Close
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
