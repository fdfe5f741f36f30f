package domain

import (
	"errors"
	"time"
)

// Instance represents a tenant. All user-visible data is scoped to an instance.
type Instance struct {
	ID        string
	Name      string
	Slug      string
	Status    InstanceStatus
	CreatedAt time.Time
}

type InstanceStatus string

const (
	InstanceStatusTrial     InstanceStatus = "trial"
	InstanceStatusActive    InstanceStatus = "active"
	InstanceStatusSuspended InstanceStatus = "suspended"
)

// Validate validates the instance for persistence. Returns an error describing the first validation failure.
func (i *Instance) Validate() error {
	if i.Name == "" {
		return errors.New("name is required")
	}
	if i.Slug == "" {
		return errors.New("slug is required")
	}
	if i.Status == "" {
		i.Status = InstanceStatusTrial
	}
	return nil
}

// Serviceable reports whether the instance may serve authenticated traffic.
// Suspended instances reject every tenant-scoped request.
func (i *Instance) Serviceable() bool {
	return i.Status == InstanceStatusTrial || i.Status == InstanceStatusActive
}
