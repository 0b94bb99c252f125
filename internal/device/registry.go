package device

import (
	"fmt"
	"regexp"

	"github.com/farmhub/farmhub-core/internal/infrastructure/config"
)

// idPattern restricts IDs to characters valid both as a URL path segment
// and as an nginx upstream name.
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Registry is the immutable set of configured devices.
//
// It is built once from configuration at startup and never mutated; a
// configuration change is applied by restarting the process, which replaces
// the whole registry. Because the registry is read-only after construction,
// all methods are safe for concurrent use without locking.
//
// Iteration order matches configuration order, which keeps generated
// routing rules and aggregated responses reproducible.
type Registry struct {
	devices []Device
	byID    map[string]int
}

// NewRegistry validates the configured devices and builds a registry.
//
// Addresses are not probed: a device may be configured before it is
// reachable. Validation failures are configuration errors and should be
// treated as fatal by the caller.
func NewRegistry(cfgs []config.DeviceConfig) (*Registry, error) {
	r := &Registry{
		devices: make([]Device, 0, len(cfgs)),
		byID:    make(map[string]int, len(cfgs)),
	}

	for i, dc := range cfgs {
		d := Device{
			ID:          dc.ID,
			Name:        dc.Name,
			Icon:        dc.Icon,
			Type:        Type(dc.Type),
			Description: dc.Description,
			Host:        dc.Host,
			Port:        dc.Port,
		}

		if err := validate(d); err != nil {
			return nil, fmt.Errorf("devices[%d]: %w", i, err)
		}
		if _, exists := r.byID[d.ID]; exists {
			return nil, fmt.Errorf("devices[%d]: %w: %q", i, ErrDuplicateID, d.ID)
		}

		r.byID[d.ID] = len(r.devices)
		r.devices = append(r.devices, d)
	}

	return r, nil
}

// validate checks a single device entry.
func validate(d Device) error {
	if !idPattern.MatchString(d.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, d.ID)
	}
	if !d.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, d.Type)
	}
	if d.Host == "" {
		return fmt.Errorf("%w: empty host for %q", ErrInvalidAddress, d.ID)
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("%w: port %d for %q", ErrInvalidAddress, d.Port, d.ID)
	}
	return nil
}

// Get returns the device with the given ID.
// Returns ErrNotFound if the ID is not registered.
func (r *Registry) Get(id string) (Device, error) {
	idx, ok := r.byID[id]
	if !ok {
		return Device{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return r.devices[idx], nil
}

// Devices returns all devices in configuration order.
// The returned slice is a copy; callers can safely retain it.
func (r *Registry) Devices() []Device {
	out := make([]Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// IDs returns all device IDs in configuration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.devices))
	for i, d := range r.devices {
		out[i] = d.ID
	}
	return out
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	return len(r.devices)
}
