package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role identifies the authorization role of an authenticated user.
type Role string

const (
	RoleSuperMasterAdmin Role = "super_master_admin"
	RoleSuperAdmin       Role = "super_admin"
	RoleDoctor           Role = "doctor"
	RoleNurse            Role = "nurse"
	RoleBillingStaff     Role = "billing_staff"
	RolePharmacyStaff    Role = "pharmacy_staff"
	RolePatient          Role = "patient"
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperMasterAdmin, RoleSuperAdmin, RoleDoctor, RoleNurse,
		RoleBillingStaff, RolePharmacyStaff, RolePatient:
		return true
	}
	return false
}

// Global reports whether the role operates across all clinics.
func (r Role) Global() bool {
	return r == RoleSuperMasterAdmin
}

// Principal is the authenticated identity attached to every request after
// token validation. ClinicID is nil for global roles.
type Principal struct {
	UserID   uuid.UUID
	Role     Role
	ClinicID *uuid.UUID
}

// InClinic reports whether the principal belongs to the given clinic.
// Global principals belong to every clinic.
func (p Principal) InClinic(clinicID uuid.UUID) bool {
	if p.Role.Global() {
		return true
	}
	return p.ClinicID != nil && *p.ClinicID == clinicID
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext returns the principal stored in the context, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
