package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinova/emr/internal/platform/auth"
)

// ListFilter narrows patient listings.
type ListFilter struct {
	Search string
	Status Status
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*Patient, int, error)
	Update(ctx context.Context, p *Patient) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
}
