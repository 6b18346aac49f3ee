/*
Package schedule implements the scheduled-shift workflow: creation on
approval, spare check-in, and no-show handling.

PURPOSE:
  A schedule is the bridge between a hiring decision and energy settlement.
  Check-in returns the spare's locked energy; a no-show forfeits it. The
  schedule row carries its own energy_cost so settlement never reads job
  data owned by another service.

SEE ALSO:
  - schedule/service.go: workflow rules
  - schedule/sweeper.go: cron-driven no-show detection
*/
package schedule

import "time"

// Status is the lifecycle state of a schedule.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
	StatusCancelled Status = "cancelled"
)

// Schedule is a confirmed shift for a spare at a shop.
type Schedule struct {
	ID        string `json:"id"`
	JobID     string `json:"job_id"`
	SpareID   string `json:"spare_id"`
	ShopID    string `json:"shop_id"`
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time,omitempty"`
	// EnergyCost is copied from the job at creation; settlement at check-in
	// or no-show uses this value, not the job row.
	EnergyCost  int64      `json:"energy_cost"`
	Status      Status     `json:"status"`
	CheckInTime *time.Time `json:"check_in_time,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
