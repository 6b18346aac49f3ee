/*
main.go - Schedule service entry point

PURPOSE:
  Starts the schedule service: shift creation, check-in (energy return)
  and no-show handling (energy forfeit), plus the cron sweeper that
  resolves stale shifts.

CONFIGURATION (environment):
  SCHEDULE_PORT                HTTP port (default: 8080)
  SCHEDULE_DB_PATH             SQLite path
  SCHEDULE_JWT_SECRET          Shared HS256 secret (required)
  SCHEDULE_ENERGY_SERVICE_URL  Energy service base URL
  SCHEDULE_SETTLEMENT_TIMEOUT  Per-call timeout (default: 10s)
  SCHEDULE_STRICT_SETTLEMENT   Fail check-in/no-show on settlement errors
  SCHEDULE_SWEEP_SCHEDULE      Cron spec for the no-show sweeper
                               (default: "0 2 * * *")

SEE ALSO:
  - schedule/service.go: Workflow rules
  - schedule/sweeper.go: Automated no-show detection
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
	"github.com/sparelink/gig-engine/schedule"
	"github.com/sparelink/gig-engine/settlement"
	"github.com/sparelink/gig-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load("schedule")
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.Logger("schedule")

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	var settler schedule.Settler
	if cfg.EnergyServiceURL != "" {
		client := settlement.NewClient(cfg.EnergyServiceURL, cfg.SettlementTimeout)
		settler = settlement.NewOrchestrator(client, auth.NewSigner(cfg.JWTSecret), cfg.StrictSettlement, log)
	}

	svc := schedule.NewService(store, settler, log)
	handler := api.NewScheduleHandler(svc, log)
	router := api.NewScheduleRouter(handler, auth.NewVerifier(cfg.JWTSecret))

	sweeper := schedule.NewSweeper(svc, cfg.SweepSchedule, log)
	if err := sweeper.Start(); err != nil {
		log.WithError(err).Fatal("failed to start no-show sweeper")
	}
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("schedule service starting")
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
