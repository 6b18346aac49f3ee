package job

import "context"

// Store is the persistence interface for jobs and applications.
//
// Implementations: store/sqlite (production).
type Store interface {
	CreateJob(ctx context.Context, j Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	// ListJobs returns jobs newest first. An empty shopID lists all
	// published jobs; a non-empty shopID lists that shop's jobs in any
	// status.
	ListJobs(ctx context.Context, shopID string, limit, offset int) ([]Job, error)
	UpdateJobStatus(ctx context.Context, id string, status Status) error

	// CreateApplication fails with ErrAlreadyApplied when the spare already
	// has an application for the job.
	CreateApplication(ctx context.Context, a Application) error
	GetApplication(ctx context.Context, id string) (*Application, error)
	// GetApplicationByJobAndSpare returns the spare's application for a job,
	// or ErrApplicationNotFound when none exists.
	GetApplicationByJobAndSpare(ctx context.Context, jobID, spareID string) (*Application, error)
	ListApplicationsByJob(ctx context.Context, jobID string) ([]Application, error)
	ListApplicationsBySpare(ctx context.Context, spareID string) ([]Application, error)
	// UpdateApplicationStatus transitions a pending application; it fails
	// with ErrAlreadyDecided when the row is no longer pending.
	UpdateApplicationStatus(ctx context.Context, id string, status ApplicationStatus) error
}
