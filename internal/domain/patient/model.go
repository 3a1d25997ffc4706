package patient

import (
	"time"

	"github.com/google/uuid"
)

// Status is the patient lifecycle flag. Records are never hard-deleted;
// they transition to inactive instead.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// EmergencyContact is stored as JSONB on the patient row.
type EmergencyContact struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Phone    string `json:"phone"`
}

// Insurance is stored as JSONB on the patient row.
type Insurance struct {
	Provider     string     `json:"provider"`
	PolicyNumber string     `json:"policy_number"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
}

// MedicalHistory holds the ordered clinical background lists.
type MedicalHistory struct {
	Conditions  []string `json:"conditions"`
	Allergies   []string `json:"allergies"`
	Medications []string `json:"medications"`
}

// Patient is a clinic-owned medical record, optionally linked to a login
// account via UserID.
type Patient struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	ClinicID         uuid.UUID         `db:"clinic_id" json:"clinic_id"`
	UserID           *uuid.UUID        `db:"user_id" json:"user_id,omitempty"`
	Name             string            `db:"name" json:"name"`
	Email            *string           `db:"email" json:"email,omitempty"`
	Phone            *string           `db:"phone" json:"phone,omitempty"`
	DateOfBirth      *time.Time        `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender           *string           `db:"gender" json:"gender,omitempty"`
	Address          *string           `db:"address" json:"address,omitempty"`
	BloodGroup       *string           `db:"blood_group" json:"blood_group,omitempty"`
	MedicalHistory   MedicalHistory    `db:"medical_history" json:"medical_history"`
	EmergencyContact *EmergencyContact `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Insurance        *Insurance        `db:"insurance" json:"insurance,omitempty"`
	Status           Status            `db:"status" json:"status"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}
