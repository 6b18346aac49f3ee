package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const sweepBatchSize = 100

// Sweeper periodically resolves stale schedules: any shift still "scheduled"
// after its date has passed is treated as a no-show and its energy forfeited.
type Sweeper struct {
	svc  *Service
	cron *cron.Cron
	spec string
	log  *logrus.Entry
}

// NewSweeper creates a sweeper running on the given cron spec
// (e.g. "0 2 * * *" for 02:00 daily).
func NewSweeper(svc *Service, spec string, log *logrus.Entry) *Sweeper {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Sweeper{
		svc:  svc,
		cron: cron.New(),
		spec: spec,
		log:  log,
	}
}

// Start schedules the sweep and begins the cron loop.
func (w *Sweeper) Start() error {
	_, err := w.cron.AddFunc(w.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		w.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	return nil
}

// Stop stops the cron loop, waiting for a running sweep to finish.
func (w *Sweeper) Stop() {
	<-w.cron.Stop().Done()
}

// Sweep resolves one batch of overdue schedules. Exported so an operator
// endpoint or test can trigger it directly.
func (w *Sweeper) Sweep(ctx context.Context) {
	today := time.Now().UTC().Format("2006-01-02")
	overdue, err := w.svc.store.ListOverdue(ctx, today, sweepBatchSize)
	if err != nil {
		w.log.WithError(err).Error("no-show sweep failed to list overdue schedules")
		return
	}

	var resolved int
	for i := range overdue {
		sc := overdue[i]
		if _, err := w.svc.resolveNoShow(ctx, &sc); err != nil {
			// ErrAlreadyResolved means another actor got there first.
			if errors.Is(err, ErrAlreadyResolved) {
				continue
			}
			w.log.WithError(err).WithField("schedule_id", sc.ID).
				Error("no-show sweep failed to resolve schedule")
			continue
		}
		resolved++
	}

	if len(overdue) > 0 {
		w.log.WithFields(logrus.Fields{
			"overdue":  len(overdue),
			"resolved": resolved,
		}).Info("no-show sweep completed")
	}
}
