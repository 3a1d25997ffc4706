package prescription

import (
	"context"
	"strconv"

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

// CreateInput carries the prescription fields. The prescribing doctor is
// the acting principal.
type CreateInput struct {
	ClinicID       *uuid.UUID   `json:"clinic_id"`
	PatientID      uuid.UUID    `json:"patient_id"`
	ConsultationID *uuid.UUID   `json:"consultation_id"`
	Medications    []Medication `json:"medications"`
	Notes          *string      `json:"notes"`
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Prescription, error) {
	fields := map[string]string{}
	if in.PatientID == uuid.Nil {
		fields["patient_id"] = "patient_id is required"
	}
	if len(in.Medications) == 0 {
		fields["medications"] = "at least one medication is required"
	}
	for i, m := range in.Medications {
		if m.Name == "" {
			fields["medications["+strconv.Itoa(i)+"].name"] = "name is required"
		}
		if m.Dosage == "" {
			fields["medications["+strconv.Itoa(i)+"].dosage"] = "dosage is required"
		}
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
			Msg("attempt to prescribe into another clinic")
		return nil, apperr.Forbidden()
	default:
		clinicID = *p.ClinicID
	}

	rx := &Prescription{
		ClinicID:       clinicID,
		PatientID:      in.PatientID,
		DoctorID:       p.UserID,
		ConsultationID: in.ConsultationID,
		Medications:    in.Medications,
		Notes:          in.Notes,
		Status:         StatusActive,
	}
	if err := s.repo.Create(ctx, rx); err != nil {
		return nil, err
	}
	s.log.Info().Str("prescription_id", rx.ID.String()).Str("patient_id", in.PatientID.String()).Msg("prescription written")
	return rx, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, auth.ScopeFor(p), id)
}

func (s *Service) List(ctx context.Context, p auth.Principal, f ListFilter) ([]*Prescription, int, error) {
	return s.repo.List(ctx, auth.ScopeFor(p), f)
}

// UpdateInput carries mutable fields; only active prescriptions may be
// edited.
type UpdateInput struct {
	Medications []Medication `json:"medications"`
	Notes       *string      `json:"notes"`
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateInput) (*Prescription, error) {
	rx, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}
	if rx.Status != StatusActive {
		return nil, apperr.InvalidTransition(string(rx.Status), string(StatusActive))
	}

	if in.Medications != nil {
		if len(in.Medications) == 0 {
			return nil, apperr.Validation("invalid request", map[string]string{"medications": "at least one medication is required"})
		}
		rx.Medications = in.Medications
	}
	if in.Notes != nil {
		rx.Notes = in.Notes
	}

	if err := s.repo.Update(ctx, rx); err != nil {
		return nil, err
	}
	return rx, nil
}

// Dispense marks an active prescription as filled by the acting pharmacy
// principal, with optimistic concurrency against a racing cancel.
func (s *Service) Dispense(ctx context.Context, p auth.Principal, id uuid.UUID) (*Prescription, error) {
	return s.setStatus(ctx, p, id, StatusDispensed)
}

// Cancel voids an active prescription.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, id uuid.UUID) (*Prescription, error) {
	return s.setStatus(ctx, p, id, StatusCancelled)
}

func (s *Service) setStatus(ctx context.Context, p auth.Principal, id uuid.UUID, to Status) (*Prescription, error) {
	rx, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}
	if rx.Status != StatusActive {
		return nil, apperr.InvalidTransition(string(rx.Status), string(to))
	}

	var dispensedBy *uuid.UUID
	if to == StatusDispensed {
		dispensedBy = &p.UserID
	}
	swapped, err := s.repo.UpdateStatus(ctx, id, StatusActive, to, dispensedBy)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, apperr.Conflict("prescription was modified concurrently, re-fetch and retry")
	}

	rx.Status = to
	if dispensedBy != nil {
		rx.DispensedBy = dispensedBy
	}
	s.log.Info().Str("prescription_id", id.String()).Str("status", string(to)).Msg("prescription status changed")
	return rx, nil
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
