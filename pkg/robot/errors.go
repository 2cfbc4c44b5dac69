package robot

import "errors"

// Sentinel errors for the motion subsystem. Callers distinguish bad
// requests from hardware faults with errors.Is; the web layer maps the
// former to 4xx and the latter to 5xx.
var (
	// ErrUnknownChannel is returned for channel numbers outside 0-12.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrInvalidCalibration is returned when min/neutral/max are not
	// strictly ordered.
	ErrInvalidCalibration = errors.New("invalid calibration")

	// ErrChannelBusy is returned when a move targets a channel that is
	// already mid-interpolation.
	ErrChannelBusy = errors.New("channel busy")

	// ErrNotInitialized is returned for motion or sensor operations
	// before the robot reaches the Ready state.
	ErrNotInitialized = errors.New("robot not initialized")

	// ErrInitializationFailed is returned when bring-up cannot complete;
	// the robot is left in the Shutdown state.
	ErrInitializationFailed = errors.New("initialization failed")

	// ErrQueueStepFailed is returned when a queued movement step aborts;
	// remaining steps are discarded.
	ErrQueueStepFailed = errors.New("queue step failed")
)
