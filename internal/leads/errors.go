package leads

import "errors"

var (
	// ErrInvalidName is returned when the name is invalid
	ErrInvalidName = errors.New("name is required")

	// ErrMissingPhone is returned when a lead cannot be reached on WhatsApp
	ErrMissingPhone = errors.New("phone is required")

	// ErrMissingOrgID is returned when a lead is not scoped to an organization
	ErrMissingOrgID = errors.New("organization id is required")

	// ErrInvalidStatus is returned for unknown lead statuses
	ErrInvalidStatus = errors.New("invalid lead status")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
