package user

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinova/emr/internal/platform/auth"
)

// ListFilter narrows user listings.
type ListFilter struct {
	Role   auth.Role
	Search string
	Limit  int
	Offset int
}

// Repository persists accounts. GetByEmail is deliberately unscoped: it
// backs the login flow, which runs before any principal exists.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*User, int, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ClinicActive(ctx context.Context, clinicID uuid.UUID) (bool, error)
}
