package prescription

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinova/emr/internal/platform/auth"
)

// ListFilter narrows prescription listings.
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    Status
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Prescription, error)
	List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*Prescription, int, error)
	Update(ctx context.Context, p *Prescription) error
	// UpdateStatus applies a compare-and-swap on the status column and
	// reports whether the swap happened.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, dispensedBy *uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
