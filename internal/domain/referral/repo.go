package referral

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinova/emr/internal/platform/auth"
)

// ListFilter narrows referral listings.
type ListFilter struct {
	PatientID *uuid.UUID
	Status    Status
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, r *Referral) error
	GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Referral, error)
	List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*Referral, int, error)
	Update(ctx context.Context, r *Referral) error
	Delete(ctx context.Context, id uuid.UUID) error
}
