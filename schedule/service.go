package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Settler performs energy settlement calls against the energy service.
//
// Implemented by settlement.Orchestrator; faked in tests. In best-effort
// mode the orchestrator absorbs settlement failures (logging and counting
// them) and returns nil; in strict mode the error comes back and the
// workflow step fails.
type Settler interface {
	ReturnForCheckIn(ctx context.Context, bearer, jobID string, amount int64) error
	ForfeitForNoShow(ctx context.Context, spareID, jobID string, amount int64) error
}

// Service implements the schedule workflow rules.
type Service struct {
	store   Store
	settler Settler
	log     *logrus.Entry
}

// NewService creates a schedule service. settler may be nil in deployments
// without an energy service; settlement steps are then skipped.
func NewService(store Store, settler Settler, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{store: store, settler: settler, log: log}
}

// ======================
// CREATION / LISTING
// ======================

// CreateInput carries the fields of a new schedule, normally supplied by the
// job service on approval.
type CreateInput struct {
	JobID      string
	SpareID    string
	ShopID     string
	Date       string
	StartTime  string
	EndTime    string
	EnergyCost int64
}

// Create validates and persists a new scheduled shift.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Schedule, error) {
	if in.JobID == "" || in.SpareID == "" || in.ShopID == "" {
		return nil, fmt.Errorf("%w: job_id, spare_id and shop_id are required", ErrInvalidSchedule)
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidSchedule)
	}
	if _, err := time.Parse("15:04", in.StartTime); err != nil {
		return nil, fmt.Errorf("%w: start_time must be HH:MM", ErrInvalidSchedule)
	}
	if in.EnergyCost < 0 {
		return nil, fmt.Errorf("%w: energy_cost must not be negative", ErrInvalidSchedule)
	}

	now := time.Now().UTC()
	sc := Schedule{
		ID:         uuid.NewString(),
		JobID:      in.JobID,
		SpareID:    in.SpareID,
		ShopID:     in.ShopID,
		Date:       in.Date,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		EnergyCost: in.EnergyCost,
		Status:     StatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateSchedule(ctx, sc); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"schedule_id": sc.ID,
		"job_id":      sc.JobID,
		"spare_id":    sc.SpareID,
		"energy_cost": sc.EnergyCost,
	}).Info("schedule created")
	return &sc, nil
}

// Get returns a schedule visible to the given user (its spare or its shop).
func (s *Service) Get(ctx context.Context, userID, scheduleID string) (*Schedule, error) {
	sc, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if sc.SpareID != userID && sc.ShopID != userID {
		return nil, ErrNotScheduleOwner
	}
	return sc, nil
}

// ListForSpare returns a spare's schedules, newest first.
func (s *Service) ListForSpare(ctx context.Context, spareID string, limit, offset int) ([]Schedule, error) {
	return s.store.ListSchedules(ctx, spareID, "", clampLimit(limit), clampOffset(offset))
}

// ListForShop returns a shop's schedules, newest first.
func (s *Service) ListForShop(ctx context.Context, shopID string, limit, offset int) ([]Schedule, error) {
	return s.store.ListSchedules(ctx, "", shopID, clampLimit(limit), clampOffset(offset))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// ======================
// SETTLEMENT EVENTS
// ======================

// CheckIn records the spare's arrival and returns their locked energy. The
// settlement call happens before the schedule is marked completed so a strict
// settlement failure leaves the shift open for a retried check-in.
func (s *Service) CheckIn(ctx context.Context, bearer, userID, scheduleID string) (*Schedule, error) {
	sc, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if sc.SpareID != userID {
		return nil, ErrNotScheduleOwner
	}
	if sc.Status != StatusScheduled {
		return nil, ErrNotCheckinable
	}

	if sc.EnergyCost > 0 && s.settler != nil {
		if err := s.settler.ReturnForCheckIn(ctx, bearer, sc.JobID, sc.EnergyCost); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
		}
	}

	now := time.Now().UTC()
	checkIn := now.Format(time.RFC3339Nano)
	if err := s.store.ResolveSchedule(ctx, scheduleID, StatusCompleted, &checkIn); err != nil {
		return nil, err
	}
	sc.Status = StatusCompleted
	sc.CheckInTime = &now
	sc.UpdatedAt = now

	s.log.WithFields(logrus.Fields{
		"schedule_id": sc.ID,
		"spare_id":    sc.SpareID,
		"energy_cost": sc.EnergyCost,
	}).Info("check-in recorded")
	return sc, nil
}

// MarkNoShow records a missed shift for the owning shop and forfeits the
// spare's locked energy.
func (s *Service) MarkNoShow(ctx context.Context, shopID, scheduleID string) (*Schedule, error) {
	sc, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if sc.ShopID != shopID {
		return nil, ErrNotScheduleOwner
	}
	return s.resolveNoShow(ctx, sc)
}

// resolveNoShow forfeits and transitions; shared by MarkNoShow and the
// sweeper.
func (s *Service) resolveNoShow(ctx context.Context, sc *Schedule) (*Schedule, error) {
	if sc.Status != StatusScheduled {
		return nil, ErrAlreadyResolved
	}

	if sc.EnergyCost > 0 && s.settler != nil {
		if err := s.settler.ForfeitForNoShow(ctx, sc.SpareID, sc.JobID, sc.EnergyCost); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
		}
	}

	if err := s.store.ResolveSchedule(ctx, sc.ID, StatusNoShow, nil); err != nil {
		return nil, err
	}
	sc.Status = StatusNoShow
	sc.UpdatedAt = time.Now().UTC()

	s.log.WithFields(logrus.Fields{
		"schedule_id": sc.ID,
		"spare_id":    sc.SpareID,
		"energy_cost": sc.EnergyCost,
	}).Warn("no-show recorded")
	return sc, nil
}
