package clinic

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinova/emr/internal/platform/auth"
)

// Repository persists clinics. All read methods take the caller's scope;
// for clinics the clinic predicate applies to the id column itself.
type Repository interface {
	Create(ctx context.Context, c *Clinic) error
	GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Clinic, error)
	List(ctx context.Context, scope auth.Scope, limit, offset int) ([]*Clinic, int, error)
	Update(ctx context.Context, c *Clinic) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}
