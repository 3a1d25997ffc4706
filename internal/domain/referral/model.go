package referral

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Urgency string

const (
	UrgencyRoutine Urgency = "routine"
	UrgencyUrgent  Urgency = "urgent"
)

// Referral is an outbound hand-off of a patient to an external
// specialist. Clinic-scoped like every patient-linked record.
type Referral struct {
	ID                uuid.UUID `json:"id"`
	ClinicID          uuid.UUID `json:"clinic_id"`
	PatientID         uuid.UUID `json:"patient_id"`
	ReferredBy        uuid.UUID `json:"referred_by"`
	SpecialistName    string    `json:"specialist_name"`
	SpecialistClinic  *string   `json:"specialist_clinic"`
	SpecialistContact *string   `json:"specialist_contact"`
	Reason            string    `json:"reason"`
	Notes             *string   `json:"notes"`
	Urgency           Urgency   `json:"urgency"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
