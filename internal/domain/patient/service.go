package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/domain/user"
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

// CreateInput carries the fields for registering a patient record by
// clinic staff.
type CreateInput struct {
	ClinicID         *uuid.UUID        `json:"clinic_id"`
	Name             string            `json:"name"`
	Email            *string           `json:"email"`
	Phone            *string           `json:"phone"`
	DateOfBirth      *time.Time        `json:"date_of_birth"`
	Gender           *string           `json:"gender"`
	Address          *string           `json:"address"`
	BloodGroup       *string           `json:"blood_group"`
	MedicalHistory   *MedicalHistory   `json:"medical_history"`
	EmergencyContact *EmergencyContact `json:"emergency_contact"`
	Insurance        *Insurance        `json:"insurance"`
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Patient, error) {
	if in.Name == "" {
		return nil, apperr.Validation("invalid request", map[string]string{"name": "name is required"})
	}

	// Staff always create records in their own clinic; only the global
	// role may pick an arbitrary clinic.
	var clinicID uuid.UUID
	switch {
	case p.Role.Global():
		if in.ClinicID == nil {
			return nil, apperr.Validation("invalid request", map[string]string{"clinic_id": "clinic_id is required"})
		}
		clinicID = *in.ClinicID
	default:
		if p.ClinicID == nil {
			return nil, apperr.Forbidden()
		}
		if in.ClinicID != nil && *in.ClinicID != *p.ClinicID {
			s.log.Warn().
				Str("user_id", p.UserID.String()).
				Str("deny_reason", string(auth.DenyTenantMismatch)).
				Msg("attempt to create patient in another clinic")
			return nil, apperr.Forbidden()
		}
		clinicID = *p.ClinicID
	}

	rec := &Patient{
		ClinicID:         clinicID,
		Name:             in.Name,
		Email:            in.Email,
		Phone:            in.Phone,
		DateOfBirth:      in.DateOfBirth,
		Gender:           in.Gender,
		Address:          in.Address,
		BloodGroup:       in.BloodGroup,
		EmergencyContact: in.EmergencyContact,
		Insurance:        in.Insurance,
		Status:           StatusActive,
	}
	if in.MedicalHistory != nil {
		rec.MedicalHistory = *in.MedicalHistory
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info().Str("patient_id", rec.ID.String()).Str("clinic_id", clinicID.String()).Msg("patient created")
	return rec, nil
}

// CreateProfile implements user.ProfileCreator for self-registration: the
// account is created by the user service, the medical record here.
func (s *Service) CreateProfile(ctx context.Context, profile user.PatientProfile) error {
	userID := profile.UserID
	rec := &Patient{
		ClinicID:    profile.ClinicID,
		UserID:      &userID,
		Name:        profile.Name,
		Phone:       profile.Phone,
		DateOfBirth: profile.DateOfBirth,
		Gender:      profile.Gender,
		Status:      StatusActive,
	}
	if profile.Email != "" {
		email := profile.Email
		rec.Email = &email
	}
	return s.repo.Create(ctx, rec)
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, auth.ScopeFor(p), id)
}

func (s *Service) List(ctx context.Context, p auth.Principal, f ListFilter) ([]*Patient, int, error) {
	return s.repo.List(ctx, auth.ScopeFor(p), f)
}

// UpdateInput carries mutable patient fields. Nil fields are left
// unchanged; medical history is replaced wholesale when present.
type UpdateInput struct {
	Name             *string           `json:"name"`
	Email            *string           `json:"email"`
	Phone            *string           `json:"phone"`
	DateOfBirth      *time.Time        `json:"date_of_birth"`
	Gender           *string           `json:"gender"`
	Address          *string           `json:"address"`
	BloodGroup       *string           `json:"blood_group"`
	MedicalHistory   *MedicalHistory   `json:"medical_history"`
	EmergencyContact *EmergencyContact `json:"emergency_contact"`
	Insurance        *Insurance        `json:"insurance"`
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateInput) (*Patient, error) {
	rec, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validation("invalid request", map[string]string{"name": "name cannot be empty"})
		}
		rec.Name = *in.Name
	}
	if in.Email != nil {
		rec.Email = in.Email
	}
	if in.Phone != nil {
		rec.Phone = in.Phone
	}
	if in.DateOfBirth != nil {
		rec.DateOfBirth = in.DateOfBirth
	}
	if in.Gender != nil {
		rec.Gender = in.Gender
	}
	if in.Address != nil {
		rec.Address = in.Address
	}
	if in.BloodGroup != nil {
		rec.BloodGroup = in.BloodGroup
	}
	if in.MedicalHistory != nil {
		rec.MedicalHistory = *in.MedicalHistory
	}
	if in.EmergencyContact != nil {
		rec.EmergencyContact = in.EmergencyContact
	}
	if in.Insurance != nil {
		rec.Insurance = in.Insurance
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetStatus transitions the record between active and inactive. There is
// no hard delete for patients.
func (s *Service) SetStatus(ctx context.Context, p auth.Principal, id uuid.UUID, status Status) (*Patient, error) {
	if status != StatusActive && status != StatusInactive {
		return nil, apperr.Validation("invalid request", map[string]string{"status": "status must be active or inactive"})
	}
	if _, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id); err != nil {
		return nil, err
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.log.Info().Str("patient_id", id.String()).Str("status", string(status)).Msg("patient status changed")
	return s.repo.GetByID(ctx, auth.ScopeFor(p), id)
}
