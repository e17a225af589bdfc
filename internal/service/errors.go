package service

import "errors"

// Policy violations are rejected before any request reaches the engine.
var (
	// ErrStartTimeLocked: start_time is only editable while the plan is
	// still pending. Once execution began the historical start time is
	// immutable.
	ErrStartTimeLocked = errors.New("start_time can only be changed while the plan is pending")

	ErrInvalidTimeRange = errors.New("end_time must be later than start_time")

	ErrMissingField = errors.New("required field is missing")
)
