package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinova/emr/internal/platform/auth"
)

// ListFilter narrows appointment listings.
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    Status
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*Appointment, int, error)
	Update(ctx context.Context, a *Appointment) error
	// UpdateStatus applies a compare-and-swap on the status column and
	// reports whether the swap happened.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ConsultationFilter narrows consultation listings.
type ConsultationFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Limit     int
	Offset    int
}

type ConsultationRepository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Consultation, error)
	List(ctx context.Context, scope auth.Scope, f ConsultationFilter) ([]*Consultation, int, error)
	Update(ctx context.Context, c *Consultation) error
}
