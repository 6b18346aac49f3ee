package settlement

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sparelink/gig-engine/auth"
	"github.com/sparelink/gig-engine/energy"
	"github.com/sparelink/gig-engine/metrics"
)

// EnergyAPI is the slice of the energy service the orchestrator needs.
// Implemented by Client; faked in tests.
type EnergyAPI interface {
	Lock(ctx context.Context, bearer, jobID string, amount int64) error
	Return(ctx context.Context, bearer, jobID string, amount int64) error
	Forfeit(ctx context.Context, bearer, jobID string, amount int64) error
}

// Orchestrator applies the settlement policies on top of the raw client.
//
// Locks are always strict: a failure fails the caller's operation. Return
// and forfeit are best-effort by default (failures are logged and counted,
// the caller's operation proceeds); strict mode propagates them instead.
type Orchestrator struct {
	energy EnergyAPI
	signer *auth.Signer
	strict bool
	log    *logrus.Entry
}

// NewOrchestrator creates an orchestrator. signer is required for the flows
// that act on a spare's wallet without the spare's own credential (rejection,
// no-show).
func NewOrchestrator(energyAPI EnergyAPI, signer *auth.Signer, strict bool, log *logrus.Entry) *Orchestrator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Orchestrator{energy: energyAPI, signer: signer, strict: strict, log: log}
}

// LockForApplication locks energy on the applicant's wallet. Always strict.
func (o *Orchestrator) LockForApplication(ctx context.Context, bearer, jobID string, amount int64) error {
	metrics.SettlementAttempts.WithLabelValues("lock").Inc()
	err := o.energy.Lock(ctx, bearer, jobID, amount)
	if err != nil {
		metrics.SettlementFailures.WithLabelValues("lock", failureReason(err)).Inc()
		if errors.Is(err, energy.ErrDuplicateLock) {
			metrics.LockConflicts.Inc()
		}
		o.log.WithError(err).WithField("job_id", jobID).Warn("energy lock failed")
		return err
	}
	return nil
}

// ReturnForCheckIn releases the spare's lock after a verified check-in.
func (o *Orchestrator) ReturnForCheckIn(ctx context.Context, bearer, jobID string, amount int64) error {
	metrics.SettlementAttempts.WithLabelValues("return").Inc()
	err := o.energy.Return(ctx, bearer, jobID, amount)
	return o.resolve("return", jobID, err)
}

// ReturnForRejection releases a rejected applicant's lock using a
// service-signed credential for the spare.
func (o *Orchestrator) ReturnForRejection(ctx context.Context, spareID, jobID string, amount int64) error {
	bearer, err := o.signer.SignFor(spareID, auth.RoleSpare)
	if err != nil {
		return err
	}
	metrics.SettlementAttempts.WithLabelValues("return").Inc()
	err = o.energy.Return(ctx, bearer, jobID, amount)
	return o.resolve("return", jobID, err)
}

// ForfeitForNoShow consumes the spare's lock after a missed shift.
func (o *Orchestrator) ForfeitForNoShow(ctx context.Context, spareID, jobID string, amount int64) error {
	bearer, err := o.signer.SignFor(spareID, auth.RoleSpare)
	if err != nil {
		return err
	}
	metrics.SettlementAttempts.WithLabelValues("forfeit").Inc()
	err = o.energy.Forfeit(ctx, bearer, jobID, amount)
	if err == nil {
		metrics.NoShowsRecorded.Inc()
	}
	return o.resolve("forfeit", jobID, err)
}

// resolve applies the best-effort/strict policy to a return or forfeit
// outcome. An already-settled lock counts as done in either mode.
func (o *Orchestrator) resolve(operation, jobID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, energy.ErrAlreadySettled) {
		o.log.WithField("job_id", jobID).Debug("lock already settled, nothing to do")
		return nil
	}
	metrics.SettlementFailures.WithLabelValues(operation, failureReason(err)).Inc()
	o.log.WithError(err).WithFields(logrus.Fields{
		"operation": operation,
		"job_id":    jobID,
		"strict":    o.strict,
	}).Error("energy settlement failed")
	if o.strict {
		return err
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, energy.ErrInsufficientBalance):
		return "insufficient"
	case errors.Is(err, energy.ErrDuplicateLock):
		return "duplicate_lock"
	case errors.Is(err, energy.ErrNoActiveLock):
		return "no_active_lock"
	case errors.Is(err, energy.ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrEnergyUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
