package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func parsePay(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: pay must be a decimal amount", ErrInvalidJob)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: pay must not be negative", ErrInvalidJob)
	}
	return d, nil
}

// Settler performs energy settlement calls against the energy service.
//
// Implemented by settlement.Orchestrator; faked in tests.
type Settler interface {
	// LockForApplication locks energy on the wallet identified by the
	// forwarded bearer credential.
	LockForApplication(ctx context.Context, bearer, jobID string, amount int64) error
	// ReturnForRejection releases a rejected applicant's lock using a
	// service-signed credential for the spare.
	ReturnForRejection(ctx context.Context, spareID, jobID string, amount int64) error
}

// ScheduleCreator creates a schedule in the schedule service when an
// application is approved.
type ScheduleCreator interface {
	CreateSchedule(ctx context.Context, bearer string, spec ScheduleSpec) error
}

// Service implements the job workflow rules.
type Service struct {
	store     Store
	settler   Settler
	scheduler ScheduleCreator
	log       *logrus.Entry
}

// NewService creates a job service. settler and scheduler may be nil in
// deployments that run without an energy or schedule service; the
// corresponding steps are then skipped.
func NewService(store Store, settler Settler, scheduler ScheduleCreator, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{store: store, settler: settler, scheduler: scheduler, log: log}
}

// ======================
// JOB CRUD
// ======================

// CreateJobInput carries the shop-supplied fields of a new posting.
type CreateJobInput struct {
	Title         string
	Date          string
	StartTime     string
	Pay           string
	Energy        int64
	RequiredCount int
}

// CreateJob validates and persists a new published job for shopID.
func (s *Service) CreateJob(ctx context.Context, shopID string, in CreateJobInput) (*Job, error) {
	j, err := buildJob(shopID, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateJob(ctx, *j); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"job_id":  j.ID,
		"shop_id": shopID,
		"energy":  j.Energy,
	}).Info("job created")
	return j, nil
}

func buildJob(shopID string, in CreateJobInput) (*Job, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidJob)
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidJob)
	}
	if _, err := time.Parse("15:04", in.StartTime); err != nil {
		return nil, fmt.Errorf("%w: start_time must be HH:MM", ErrInvalidJob)
	}
	pay, err := parsePay(in.Pay)
	if err != nil {
		return nil, err
	}
	if in.Energy < 0 {
		return nil, fmt.Errorf("%w: energy must not be negative", ErrInvalidJob)
	}
	count := in.RequiredCount
	if count <= 0 {
		count = 1
	}

	now := time.Now().UTC()
	return &Job{
		ID:            uuid.NewString(),
		ShopID:        shopID,
		Title:         in.Title,
		Date:          in.Date,
		StartTime:     in.StartTime,
		Pay:           pay,
		Energy:        in.Energy,
		RequiredCount: count,
		Status:        StatusPublished,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// GetJob returns a job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.store.GetJob(ctx, id)
}

// ListJobs lists published jobs, or a shop's own jobs when shopID is set.
func (s *Service) ListJobs(ctx context.Context, shopID string, limit, offset int) ([]Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListJobs(ctx, shopID, limit, offset)
}

// CloseJob marks a shop's own job closed to further applications.
func (s *Service) CloseJob(ctx context.Context, shopID, jobID string) error {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if j.ShopID != shopID {
		return ErrNotJobOwner
	}
	return s.store.UpdateJobStatus(ctx, jobID, StatusClosed)
}

// ======================
// APPLICATION WORKFLOW
// ======================

// Apply creates a pending application for spareID. When the job carries an
// energy cost, the lock is taken first; an application is never created with
// an unlocked cost. Duplicates are rejected before locking, so a rejected
// applicant re-applying does not strand a fresh lock on a doomed insert.
func (s *Service) Apply(ctx context.Context, bearer, spareID, jobID string) (*Application, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status != StatusPublished {
		return nil, ErrJobClosed
	}
	if _, err := s.store.GetApplicationByJobAndSpare(ctx, jobID, spareID); err == nil {
		return nil, ErrAlreadyApplied
	} else if !errors.Is(err, ErrApplicationNotFound) {
		return nil, err
	}

	if j.Energy > 0 && s.settler != nil {
		if err := s.settler.LockForApplication(ctx, bearer, jobID, j.Energy); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	app := Application{
		ID:           uuid.NewString(),
		JobID:        jobID,
		SpareID:      spareID,
		Status:       ApplicationPending,
		EnergyLocked: j.Energy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		// A racing duplicate can slip past the pre-check; the lock must
		// not outlive the failed insert.
		if j.Energy > 0 && s.settler != nil {
			if rerr := s.settler.ReturnForRejection(ctx, spareID, jobID, j.Energy); rerr != nil {
				s.log.WithError(rerr).WithFields(logrus.Fields{
					"job_id":   jobID,
					"spare_id": spareID,
				}).Error("energy return failed after application insert failure")
			}
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"job_id":         jobID,
		"spare_id":       spareID,
		"energy_locked":  app.EnergyLocked,
	}).Info("application created")
	return &app, nil
}

// Approve transitions a pending application to approved and asks the schedule
// service for a shift. Schedule creation is attempted once; a failure is
// logged and the approval stands.
func (s *Service) Approve(ctx context.Context, bearer, shopID, applicationID string) (*Application, error) {
	app, j, err := s.ownedApplication(ctx, shopID, applicationID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateApplicationStatus(ctx, applicationID, ApplicationApproved); err != nil {
		return nil, err
	}
	app.Status = ApplicationApproved

	if s.scheduler != nil {
		spec := ScheduleSpec{
			JobID:      j.ID,
			SpareID:    app.SpareID,
			ShopID:     j.ShopID,
			Date:       j.Date,
			StartTime:  j.StartTime,
			EnergyCost: app.EnergyLocked,
		}
		if err := s.scheduler.CreateSchedule(ctx, bearer, spec); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"application_id": applicationID,
				"job_id":         j.ID,
			}).Error("schedule creation failed after approval")
		}
	}

	s.log.WithFields(logrus.Fields{
		"application_id": applicationID,
		"job_id":         j.ID,
		"spare_id":       app.SpareID,
	}).Info("application approved")
	return app, nil
}

// Reject transitions a pending application to rejected and releases the
// applicant's energy lock. The release is best-effort: a failure is logged
// and the rejection stands.
func (s *Service) Reject(ctx context.Context, shopID, applicationID string) (*Application, error) {
	app, j, err := s.ownedApplication(ctx, shopID, applicationID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateApplicationStatus(ctx, applicationID, ApplicationRejected); err != nil {
		return nil, err
	}
	app.Status = ApplicationRejected

	if app.EnergyLocked > 0 && s.settler != nil {
		if err := s.settler.ReturnForRejection(ctx, app.SpareID, j.ID, app.EnergyLocked); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"application_id": applicationID,
				"spare_id":       app.SpareID,
			}).Error("energy return failed after rejection")
		}
	}

	s.log.WithFields(logrus.Fields{
		"application_id": applicationID,
		"job_id":         j.ID,
	}).Info("application rejected")
	return app, nil
}

// ListApplications returns a job's applications for its owning shop.
func (s *Service) ListApplications(ctx context.Context, shopID, jobID string) ([]Application, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.ShopID != shopID {
		return nil, ErrNotJobOwner
	}
	return s.store.ListApplicationsByJob(ctx, jobID)
}

// MyApplications returns a spare's own applications.
func (s *Service) MyApplications(ctx context.Context, spareID string) ([]Application, error) {
	return s.store.ListApplicationsBySpare(ctx, spareID)
}

// ownedApplication loads an application plus its job and checks ownership and
// pending state.
func (s *Service) ownedApplication(ctx context.Context, shopID, applicationID string) (*Application, *Job, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	j, err := s.store.GetJob(ctx, app.JobID)
	if err != nil {
		return nil, nil, err
	}
	if j.ShopID != shopID {
		return nil, nil, ErrNotJobOwner
	}
	if app.Status != ApplicationPending {
		return nil, nil, ErrAlreadyDecided
	}
	return app, j, nil
}
