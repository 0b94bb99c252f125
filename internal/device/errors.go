package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a device ID does not exist in the registry.
	ErrNotFound = errors.New("device: not found")

	// ErrDuplicateID is returned when two registry entries share an ID.
	ErrDuplicateID = errors.New("device: duplicate id")

	// ErrInvalidID is returned when an ID is empty or unsafe as a path
	// segment or nginx upstream name.
	ErrInvalidID = errors.New("device: invalid id")

	// ErrInvalidType is returned when a device type is not recognised.
	ErrInvalidType = errors.New("device: invalid type")

	// ErrInvalidAddress is returned when host or port validation fails.
	ErrInvalidAddress = errors.New("device: invalid address")
)
