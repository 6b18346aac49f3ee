/*
main.go - Job service entry point

PURPOSE:
  Starts the job service: postings, applications, and the approval flow
  that creates schedules. Energy locks are taken over HTTP against the
  energy service.

CONFIGURATION (environment):
  JOB_PORT                  HTTP port (default: 8080)
  JOB_DB_PATH               SQLite path
  JOB_JWT_SECRET            Shared HS256 secret (required)
  JOB_ENERGY_SERVICE_URL    Energy service base URL (empty disables locking)
  JOB_SCHEDULE_SERVICE_URL  Schedule service base URL (empty disables
                            schedule creation)
  JOB_SETTLEMENT_TIMEOUT    Per-call timeout (default: 10s)
  JOB_STRICT_SETTLEMENT     Fail operations on settlement errors

SEE ALSO:
  - job/service.go: Workflow rules
  - settlement/: Energy and schedule clients
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
	"github.com/sparelink/gig-engine/job"
	"github.com/sparelink/gig-engine/settlement"
	"github.com/sparelink/gig-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load("job")
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.Logger("job")

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	var settler job.Settler
	if cfg.EnergyServiceURL != "" {
		client := settlement.NewClient(cfg.EnergyServiceURL, cfg.SettlementTimeout)
		settler = settlement.NewOrchestrator(client, auth.NewSigner(cfg.JWTSecret), cfg.StrictSettlement, log)
	}
	var scheduler job.ScheduleCreator
	if cfg.ScheduleServiceURL != "" {
		scheduler = settlement.NewScheduleClient(cfg.ScheduleServiceURL, cfg.SettlementTimeout)
	}

	svc := job.NewService(store, settler, scheduler, log)
	handler := api.NewJobHandler(svc, log)
	router := api.NewJobRouter(handler, auth.NewVerifier(cfg.JWTSecret))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("job service starting")
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
