package schedule

import "errors"

// Sentinel errors for the schedule workflow.
var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrInvalidSchedule  = errors.New("invalid schedule")
	ErrNotScheduleOwner = errors.New("schedule belongs to another user")
	ErrNotCheckinable   = errors.New("schedule is not open for check-in")
	ErrAlreadyResolved  = errors.New("schedule already resolved")
	ErrSettlementFailed = errors.New("energy settlement failed")
)
