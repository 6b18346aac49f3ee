package schedule

import "context"

// Store is the persistence interface for schedules.
//
// Implementations: store/sqlite (production).
type Store interface {
	CreateSchedule(ctx context.Context, sc Schedule) error
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	// ListSchedules filters by spare or shop; either may be empty.
	ListSchedules(ctx context.Context, spareID, shopID string, limit, offset int) ([]Schedule, error)
	// ListOverdue returns scheduled rows whose date is strictly before the
	// given day (YYYY-MM-DD).
	ListOverdue(ctx context.Context, day string, limit int) ([]Schedule, error)
	// ResolveSchedule transitions a scheduled row to a terminal status; it
	// fails with ErrAlreadyResolved when the row is no longer scheduled.
	ResolveSchedule(ctx context.Context, id string, status Status, checkInTime *string) error
}
