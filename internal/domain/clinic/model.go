package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Settings holds per-clinic scheduling preferences, stored as JSONB.
type Settings struct {
	SlotDurationMinutes int      `json:"slot_duration_minutes"`
	WorkingDays         []string `json:"working_days"`
	OpenTime            string   `json:"open_time"`
	CloseTime           string   `json:"close_time"`
}

// DefaultSettings are applied when a clinic is created without explicit
// settings.
func DefaultSettings() Settings {
	return Settings{
		SlotDurationMinutes: 30,
		WorkingDays:         []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		OpenTime:            "09:00",
		CloseTime:           "17:00",
	}
}

// Clinic is the tenant boundary: every patient, appointment, invoice and
// referral belongs to exactly one clinic.
type Clinic struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Address      *string    `db:"address" json:"address,omitempty"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Email        *string    `db:"email" json:"email,omitempty"`
	SuperAdminID *uuid.UUID `db:"super_admin_id" json:"super_admin_id,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	Settings     Settings   `db:"settings" json:"settings"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
