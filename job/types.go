/*
Package job implements the job posting and application workflow.

PURPOSE:
  Shops post jobs; spares apply. Applying to a job with a non-zero energy
  cost locks that energy against the spare's wallet before the application
  exists. Approval creates a schedule in the schedule service.

SEE ALSO:
  - job/service.go: workflow rules
  - settlement/: the energy lock and schedule creation clients
*/
package job

import (
	"time"

	"github.com/shopspring/decimal"
)

// ======================
// JOBS
// ======================

// Status is the lifecycle state of a job posting.
type Status string

const (
	StatusPublished Status = "published"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Job is a shift posted by a shop.
type Job struct {
	ID        string          `json:"id"`
	ShopID    string          `json:"shop_id"`
	Title     string          `json:"title"`
	Date      string          `json:"date"`       // YYYY-MM-DD
	StartTime string          `json:"start_time"` // HH:MM
	Pay       decimal.Decimal `json:"pay"`
	// Energy is the credit cost a spare commits when applying. Zero means
	// the job is free to apply to.
	Energy        int64     `json:"energy"`
	RequiredCount int       `json:"required_count"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ======================
// APPLICATIONS
// ======================

// ApplicationStatus is the decision state of an application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is a spare's request to work a job. EnergyLocked records the
// amount locked at apply time so later settlement does not depend on the job
// row still existing.
type Application struct {
	ID           string            `json:"id"`
	JobID        string            `json:"job_id"`
	SpareID      string            `json:"spare_id"`
	Status       ApplicationStatus `json:"status"`
	EnergyLocked int64             `json:"energy_locked"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ScheduleSpec is the payload sent to the schedule service when an approval
// turns into a scheduled shift. EnergyCost is copied from the job so the
// schedule service never reads job data at check-in time.
type ScheduleSpec struct {
	JobID      string `json:"job_id"`
	SpareID    string `json:"spare_id"`
	ShopID     string `json:"shop_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EnergyCost int64  `json:"energy_cost"`
}
