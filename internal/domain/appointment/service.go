package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

type Service struct {
	appts    Repository
	consults ConsultationRepository
	log      zerolog.Logger
}

func NewService(appts Repository, consults ConsultationRepository, log zerolog.Logger) *Service {
	return &Service{appts: appts, consults: consults, log: log}
}

// resolveClinic pins writes to the principal's clinic; only global
// principals may address an arbitrary one.
func (s *Service) resolveClinic(p auth.Principal, requested *uuid.UUID) (uuid.UUID, error) {
	if p.Role.Global() {
		if requested == nil {
			return uuid.Nil, apperr.Validation("invalid request", map[string]string{"clinic_id": "clinic_id is required"})
		}
		return *requested, nil
	}
	if p.ClinicID == nil {
		return uuid.Nil, apperr.Forbidden()
	}
	if requested != nil && *requested != *p.ClinicID {
		s.log.Warn().
			Str("user_id", p.UserID.String()).
			Str("deny_reason", string(auth.DenyTenantMismatch)).
			Msg("attempt to write into another clinic")
		return uuid.Nil, apperr.Forbidden()
	}
	return *p.ClinicID, nil
}

// CreateInput carries the booking fields.
type CreateInput struct {
	ClinicID        *uuid.UUID `json:"clinic_id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Reason          *string    `json:"reason"`
	Notes           *string    `json:"notes"`
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Appointment, error) {
	fields := map[string]string{}
	if in.PatientID == uuid.Nil {
		fields["patient_id"] = "patient_id is required"
	}
	if in.DoctorID == uuid.Nil {
		fields["doctor_id"] = "doctor_id is required"
	}
	if in.ScheduledAt.IsZero() {
		fields["scheduled_at"] = "scheduled_at is required"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid request", fields)
	}

	clinicID, err := s.resolveClinic(p, in.ClinicID)
	if err != nil {
		return nil, err
	}

	a := &Appointment{
		ClinicID:        clinicID,
		PatientID:       in.PatientID,
		DoctorID:        in.DoctorID,
		ScheduledAt:     in.ScheduledAt,
		DurationMinutes: in.DurationMinutes,
		Reason:          in.Reason,
		Notes:           in.Notes,
		Status:          StatusScheduled,
	}
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = 30
	}

	if err := s.appts.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info().Str("appointment_id", a.ID.String()).Str("clinic_id", clinicID.String()).Msg("appointment booked")
	return a, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, auth.ScopeFor(p), id)
}

func (s *Service) List(ctx context.Context, p auth.Principal, f ListFilter) ([]*Appointment, int, error) {
	return s.appts.List(ctx, auth.ScopeFor(p), f)
}

// UpdateInput carries reschedule fields. Status changes go through
// SetStatus, not here.
type UpdateInput struct {
	ScheduledAt     *time.Time `json:"scheduled_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	Reason          *string    `json:"reason"`
	Notes           *string    `json:"notes"`
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, auth.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}

	if in.ScheduledAt != nil {
		a.ScheduledAt = *in.ScheduledAt
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes <= 0 {
			return nil, apperr.Validation("invalid request", map[string]string{"duration_minutes": "must be positive"})
		}
		a.DurationMinutes = *in.DurationMinutes
	}
	if in.Reason != nil {
		a.Reason = in.Reason
	}
	if in.Notes != nil {
		a.Notes = in.Notes
	}

	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetStatus applies a lifecycle transition with optimistic concurrency:
// the swap only lands if the status is still the one just read. A lost
// race surfaces as a conflict the caller retries.
func (s *Service) SetStatus(ctx context.Context, p auth.Principal, id uuid.UUID, to Status) (*Appointment, error) {
	if !to.Valid() {
		return nil, apperr.Validation("invalid request", map[string]string{"status": "unknown status"})
	}

	scope := auth.ScopeFor(p)
	a, err := s.appts.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(a.Status, to) {
		return nil, apperr.InvalidTransition(string(a.Status), string(to))
	}

	swapped, err := s.appts.UpdateStatus(ctx, id, a.Status, to)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, apperr.Conflict("appointment was modified concurrently, re-fetch and retry")
	}

	a.Status = to
	s.log.Info().Str("appointment_id", id.String()).Str("status", string(to)).Msg("appointment status changed")
	return a, nil
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if _, err := s.appts.GetByID(ctx, auth.ScopeFor(p), id); err != nil {
		return err
	}
	return s.appts.Delete(ctx, id)
}

// =========== Consultations ===========

// ConsultationInput carries the clinical write-up fields.
type ConsultationInput struct {
	ClinicID      *uuid.UUID `json:"clinic_id"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	Symptoms      *string    `json:"symptoms"`
	Diagnosis     *string    `json:"diagnosis"`
	TreatmentPlan *string    `json:"treatment_plan"`
	FollowUpAt    *time.Time `json:"follow_up_at"`
}

// CreateConsultation records a visit write-up. The acting doctor is taken
// from the principal, never from the payload.
func (s *Service) CreateConsultation(ctx context.Context, p auth.Principal, in ConsultationInput) (*Consultation, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("invalid request", map[string]string{"patient_id": "patient_id is required"})
	}

	clinicID, err := s.resolveClinic(p, in.ClinicID)
	if err != nil {
		return nil, err
	}

	c := &Consultation{
		ClinicID:      clinicID,
		AppointmentID: in.AppointmentID,
		PatientID:     in.PatientID,
		DoctorID:      p.UserID,
		Symptoms:      in.Symptoms,
		Diagnosis:     in.Diagnosis,
		TreatmentPlan: in.TreatmentPlan,
		FollowUpAt:    in.FollowUpAt,
	}
	if err := s.consults.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("consultation_id", c.ID.String()).Str("patient_id", in.PatientID.String()).Msg("consultation recorded")
	return c, nil
}

func (s *Service) GetConsultation(ctx context.Context, p auth.Principal, id uuid.UUID) (*Consultation, error) {
	return s.consults.GetByID(ctx, auth.ScopeFor(p), id)
}

func (s *Service) ListConsultations(ctx context.Context, p auth.Principal, f ConsultationFilter) ([]*Consultation, int, error) {
	return s.consults.List(ctx, auth.ScopeFor(p), f)
}

// ConsultationUpdate carries the mutable write-up fields.
type ConsultationUpdate struct {
	Symptoms      *string    `json:"symptoms"`
	Diagnosis     *string    `json:"diagnosis"`
	TreatmentPlan *string    `json:"treatment_plan"`
	FollowUpAt    *time.Time `json:"follow_up_at"`
}

func (s *Service) UpdateConsultation(ctx context.Context, p auth.Principal, id uuid.UUID, in ConsultationUpdate) (*Consultation, error) {
	c, err := s.consults.GetByID(ctx, auth.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}

	if in.Symptoms != nil {
		c.Symptoms = in.Symptoms
	}
	if in.Diagnosis != nil {
		c.Diagnosis = in.Diagnosis
	}
	if in.TreatmentPlan != nil {
		c.TreatmentPlan = in.TreatmentPlan
	}
	if in.FollowUpAt != nil {
		c.FollowUpAt = in.FollowUpAt
	}

	if err := s.consults.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
