package leads

import "errors"

var (
	// ErrInvalidName is returned when the name is invalid
	ErrInvalidName = errors.New("leads: name is required")

	// ErrMissingPhone is returned when the phone is missing
	ErrMissingPhone = errors.New("leads: phone is required")

	// ErrInvalidSource is returned for an unknown lead source
	ErrInvalidSource = errors.New("leads: unknown source")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")
)
