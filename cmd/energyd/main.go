/*
main.go - Energy service entry point

PURPOSE:
  Starts the energy credit service: the wallet and append-only ledger with
  its purchase/lock/return/forfeit endpoints.

STARTUP SEQUENCE:
  1. Load configuration (ENERGY_ prefix)
  2. Initialize SQLite store
  3. Build ledger engine and router
  4. Start server with graceful shutdown

CONFIGURATION (environment):
  ENERGY_PORT        HTTP port (default: 8080)
  ENERGY_DB_PATH     SQLite path; ":memory:" for in-memory
  ENERGY_JWT_SECRET  Shared HS256 secret (required)
  ENERGY_LOG_LEVEL   Log level (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for active
  requests, close the database.

SEE ALSO:
  - api/server.go: Router configuration
  - energy/engine.go: Ledger rules
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sparelink/gig-engine/api"
	"github.com/sparelink/gig-engine/auth"
	"github.com/sparelink/gig-engine/config"
	"github.com/sparelink/gig-engine/energy"
	"github.com/sparelink/gig-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load("energy")
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.Logger("energy")

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	engine := energy.NewEngine(store, log)
	handler := api.NewEnergyHandler(engine, log)
	router := api.NewEnergyRouter(handler, auth.NewVerifier(cfg.JWTSecret))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("energy service starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}
	log.Info("stopped")
}
