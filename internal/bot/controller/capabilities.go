package controller

import (
	"errors"
	"fmt"
	"strings"
)

// Capability is an OS-level grant the bot needs before it may run.
type Capability string

const (
	CapabilityLocation      Capability = "location"
	CapabilityNotifications Capability = "notifications"
	CapabilityAccessibility Capability = "accessibility"
	CapabilityOverlay       Capability = "overlay"
	CapabilityBackground    Capability = "background"
)

// Required lists every capability Start checks, in display order.
var Required = []Capability{
	CapabilityLocation,
	CapabilityNotifications,
	CapabilityAccessibility,
	CapabilityOverlay,
	CapabilityBackground,
}

// Capabilities is the grant map reported by the UI layer. A missing key counts as not granted.
type Capabilities map[Capability]bool

// Missing returns the required capabilities that are not granted.
func (c Capabilities) Missing() []Capability {
	var missing []Capability
	for _, capability := range Required {
		if !c[capability] {
			missing = append(missing, capability)
		}
	}
	return missing
}

// ErrPermissionsRequired is returned by Start when a required capability is not granted.
var ErrPermissionsRequired = errors.New("permissions required")

// PermissionsError reports which capabilities blocked Start.
type PermissionsError struct {
	Missing []Capability
}

func (e *PermissionsError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, capability := range e.Missing {
		names = append(names, string(capability))
	}
	return fmt.Sprintf("%s: %s", ErrPermissionsRequired, strings.Join(names, ", "))
}

// Is lets errors.Is match ErrPermissionsRequired.
func (e *PermissionsError) Is(target error) bool {
	return target == ErrPermissionsRequired
}
