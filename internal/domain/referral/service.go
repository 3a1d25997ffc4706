package referral

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

// CreateInput carries the referral fields. The referring doctor is the
// acting principal.
type CreateInput struct {
	ClinicID          *uuid.UUID `json:"clinic_id"`
	PatientID         uuid.UUID  `json:"patient_id"`
	SpecialistName    string     `json:"specialist_name"`
	SpecialistClinic  *string    `json:"specialist_clinic"`
	SpecialistContact *string    `json:"specialist_contact"`
	Reason            string     `json:"reason"`
	Notes             *string    `json:"notes"`
	Urgency           Urgency    `json:"urgency"`
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Referral, error) {
	fields := map[string]string{}
	if in.PatientID == uuid.Nil {
		fields["patient_id"] = "patient_id is required"
	}
	if in.SpecialistName == "" {
		fields["specialist_name"] = "specialist_name is required"
	}
	if in.Reason == "" {
		fields["reason"] = "reason is required"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid request", fields)
	}

	var clinicID uuid.UUID
	switch {
	case p.Role.Global():
		if in.ClinicID == nil {
			return nil, apperr.Validation("invalid request", map[string]string{"clinic_id": "clinic_id is required"})
		}
		clinicID = *in.ClinicID
	case p.ClinicID == nil:
		return nil, apperr.Forbidden()
	case in.ClinicID != nil && *in.ClinicID != *p.ClinicID:
		s.log.Warn().
			Str("user_id", p.UserID.String()).
			Str("deny_reason", string(auth.DenyTenantMismatch)).
			Msg("attempt to refer into another clinic")
		return nil, apperr.Forbidden()
	default:
		clinicID = *p.ClinicID
	}

	ref := &Referral{
		ClinicID:          clinicID,
		PatientID:         in.PatientID,
		ReferredBy:        p.UserID,
		SpecialistName:    in.SpecialistName,
		SpecialistClinic:  in.SpecialistClinic,
		SpecialistContact: in.SpecialistContact,
		Reason:            in.Reason,
		Notes:             in.Notes,
		Urgency:           in.Urgency,
		Status:            StatusPending,
	}
	if ref.Urgency == "" {
		ref.Urgency = UrgencyRoutine
	}

	if err := s.repo.Create(ctx, ref); err != nil {
		return nil, err
	}
	s.log.Info().Str("referral_id", ref.ID.String()).Str("patient_id", in.PatientID.String()).Msg("referral issued")
	return ref, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*Referral, error) {
	return s.repo.GetByID(ctx, auth.ScopeFor(p), id)
}

func (s *Service) List(ctx context.Context, p auth.Principal, f ListFilter) ([]*Referral, int, error) {
	return s.repo.List(ctx, auth.ScopeFor(p), f)
}

// UpdateInput carries mutable referral fields; nil leaves a field unchanged.
type UpdateInput struct {
	SpecialistName    *string  `json:"specialist_name"`
	SpecialistClinic  *string  `json:"specialist_clinic"`
	SpecialistContact *string  `json:"specialist_contact"`
	Reason            *string  `json:"reason"`
	Notes             *string  `json:"notes"`
	Urgency           *Urgency `json:"urgency"`
	Status            *Status  `json:"status"`
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateInput) (*Referral, error) {
	ref, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}

	if in.SpecialistName != nil {
		if *in.SpecialistName == "" {
			return nil, apperr.Validation("invalid request", map[string]string{"specialist_name": "must not be empty"})
		}
		ref.SpecialistName = *in.SpecialistName
	}
	if in.SpecialistClinic != nil {
		ref.SpecialistClinic = in.SpecialistClinic
	}
	if in.SpecialistContact != nil {
		ref.SpecialistContact = in.SpecialistContact
	}
	if in.Reason != nil {
		ref.Reason = *in.Reason
	}
	if in.Notes != nil {
		ref.Notes = in.Notes
	}
	if in.Urgency != nil {
		ref.Urgency = *in.Urgency
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.Validation("invalid request", map[string]string{"status": "unknown status"})
		}
		ref.Status = *in.Status
	}

	if err := s.repo.Update(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
