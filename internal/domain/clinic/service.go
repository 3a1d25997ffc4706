package clinic

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateInput carries the fields accepted when registering a clinic.
type CreateInput struct {
	Name     string    `json:"name"`
	Address  *string   `json:"address"`
	Phone    *string   `json:"phone"`
	Email    *string   `json:"email"`
	Settings *Settings `json:"settings"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Clinic, error) {
	if in.Name == "" {
		return nil, apperr.Validation("invalid request", map[string]string{"name": "name is required"})
	}

	c := &Clinic{
		Name:     in.Name,
		Address:  in.Address,
		Phone:    in.Phone,
		Email:    in.Email,
		IsActive: true,
		Settings: DefaultSettings(),
	}
	if in.Settings != nil {
		c.Settings = *in.Settings
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("clinic_id", c.ID.String()).Str("name", c.Name).Msg("clinic created")
	return c, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*Clinic, error) {
	return s.repo.GetByID(ctx, auth.ScopeFor(p), id)
}

func (s *Service) List(ctx context.Context, p auth.Principal, limit, offset int) ([]*Clinic, int, error) {
	return s.repo.List(ctx, auth.ScopeFor(p), limit, offset)
}

// UpdateInput carries the mutable clinic fields. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name     *string   `json:"name"`
	Address  *string   `json:"address"`
	Phone    *string   `json:"phone"`
	Email    *string   `json:"email"`
	Settings *Settings `json:"settings"`
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateInput) (*Clinic, error) {
	// Scoped fetch: a clinic admin can only ever reach their own clinic,
	// everyone else's resolves to not found.
	c, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validation("invalid request", map[string]string{"name": "name cannot be empty"})
		}
		c.Name = *in.Name
	}
	if in.Address != nil {
		c.Address = in.Address
	}
	if in.Phone != nil {
		c.Phone = in.Phone
	}
	if in.Email != nil {
		c.Email = in.Email
	}
	if in.Settings != nil {
		c.Settings = *in.Settings
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetActive toggles the soft-delete flag. Deactivation does not cascade:
// the clinic's rows stay in place and its staff simply fail the login
// check.
func (s *Service) SetActive(ctx context.Context, p auth.Principal, id uuid.UUID, active bool) (*Clinic, error) {
	if _, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id); err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.log.Info().Str("clinic_id", id.String()).Bool("active", active).Msg("clinic status changed")
	return s.repo.GetByID(ctx, auth.ScopeFor(p), id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("clinic_id", id.String()).Msg("clinic deleted")
	return nil
}
