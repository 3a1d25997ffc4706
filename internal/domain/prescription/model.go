package prescription

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusDispensed Status = "dispensed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDispensed, StatusCancelled:
		return true
	}
	return false
}

// Medication is one line of a prescription, stored as JSONB.
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription is written by a doctor and filled by pharmacy staff of the
// same clinic.
type Prescription struct {
	ID             uuid.UUID    `json:"id"`
	ClinicID       uuid.UUID    `json:"clinic_id"`
	PatientID      uuid.UUID    `json:"patient_id"`
	DoctorID       uuid.UUID    `json:"doctor_id"`
	ConsultationID *uuid.UUID   `json:"consultation_id"`
	Medications    []Medication `json:"medications"`
	Notes          *string      `json:"notes"`
	Status         Status       `json:"status"`
	DispensedBy    *uuid.UUID   `json:"dispensed_by"`
	DispensedAt    *time.Time   `json:"dispensed_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
