package job

import "errors"

// Sentinel errors for the job workflow. Handlers map these to HTTP statuses.
var (
	ErrJobNotFound         = errors.New("job not found")
	ErrJobClosed           = errors.New("job is not accepting applications")
	ErrInvalidJob          = errors.New("invalid job")
	ErrNotJobOwner         = errors.New("job belongs to another shop")
	ErrAlreadyApplied      = errors.New("already applied to this job")
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyDecided      = errors.New("application already decided")
)
