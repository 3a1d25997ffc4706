package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinova/emr/internal/platform/auth"
)

// User is a staff or patient account. Every non-global account belongs to
// exactly one clinic, fixed at creation.
type User struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Role          auth.Role  `db:"role" json:"role"`
	ClinicID      *uuid.UUID `db:"clinic_id" json:"clinic_id,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Principal derives the request principal for this account.
func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role, ClinicID: u.ClinicID}
}
