package auth

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/apperr"
)

// Action is an operation a principal may attempt on a resource kind.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionList   Action = "list"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Kind identifies a category of protected resources.
type Kind string

const (
	KindClinic       Kind = "clinic"
	KindUser         Kind = "user"
	KindPatient      Kind = "patient"
	KindAppointment  Kind = "appointment"
	KindConsultation Kind = "consultation"
	KindInvoice      Kind = "invoice"
	KindReferral     Kind = "referral"
	KindPrescription Kind = "prescription"
)

// ResourceRef describes the resource an action targets. ClinicID and
// OwnerUserID are nil when not yet known (e.g. list operations before the
// scoped query runs).
type ResourceRef struct {
	Kind        Kind
	ClinicID    *uuid.UUID
	OwnerUserID *uuid.UUID
}

// DenyReason distinguishes why access was denied. Reasons are logged
// server-side only; callers always see the same "Access denied" message.
type DenyReason string

const (
	DenyInsufficientRole DenyReason = "insufficient_role"
	DenyTenantMismatch   DenyReason = "tenant_mismatch"
	DenyNotOwner         DenyReason = "not_owner"
)

// Decision is the result of a policy evaluation.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

var allow = Decision{Allowed: true}

func deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

type actionSet map[Action]bool

func actions(as ...Action) actionSet {
	set := make(actionSet, len(as))
	for _, a := range as {
		set[a] = true
	}
	return set
}

var crud = actions(ActionCreate, ActionRead, ActionList, ActionUpdate, ActionDelete)

// policy is the fixed role × kind × action table. Absence of an entry means
// deny. super_master_admin bypasses the table entirely.
var policy = map[Role]map[Kind]actionSet{
	RoleSuperAdmin: {
		KindClinic:       actions(ActionRead, ActionList, ActionUpdate),
		KindUser:         crud,
		KindPatient:      crud,
		KindAppointment:  crud,
		KindConsultation: crud,
		KindInvoice:      crud,
		KindReferral:     crud,
		KindPrescription: crud,
	},
	RoleDoctor: {
		KindPatient:      actions(ActionRead, ActionList, ActionUpdate),
		KindAppointment:  actions(ActionCreate, ActionRead, ActionList, ActionUpdate),
		KindConsultation: actions(ActionCreate, ActionRead, ActionList, ActionUpdate),
		KindReferral:     actions(ActionCreate, ActionRead, ActionList, ActionUpdate),
		KindPrescription: actions(ActionCreate, ActionRead, ActionList),
	},
	RoleNurse: {
		KindPatient:      actions(ActionRead, ActionList, ActionUpdate),
		KindAppointment:  actions(ActionCreate, ActionRead, ActionList, ActionUpdate),
		KindConsultation: actions(ActionRead, ActionList, ActionUpdate),
		KindReferral:     actions(ActionRead, ActionList),
	},
	RoleBillingStaff: {
		KindInvoice: crud,
		// Needed to attach invoices to patients, nothing more.
		KindPatient: actions(ActionRead, ActionList),
	},
	RolePharmacyStaff: {
		KindPrescription: crud,
		KindPatient:      actions(ActionRead, ActionList),
	},
	RolePatient: {
		KindPatient:     actions(ActionRead, ActionList),
		KindAppointment: actions(ActionRead, ActionList),
		KindInvoice:     actions(ActionRead, ActionList),
	},
}

// Authorize answers whether the principal may perform the action on the
// resource. It is a pure function of its inputs: default deny, with
// tenant and ownership checks applied after the role check so the most
// specific deny reason wins.
func Authorize(p Principal, action Action, res ResourceRef) Decision {
	if p.Role == RoleSuperMasterAdmin {
		return allow
	}

	kinds, ok := policy[p.Role]
	if !ok {
		return deny(DenyInsufficientRole)
	}
	allowed, ok := kinds[res.Kind]
	if !ok || !allowed[action] {
		return deny(DenyInsufficientRole)
	}

	if p.Role == RolePatient {
		// Patients only ever reach their own records. A nil OwnerUserID
		// means the owner is not yet known (lists, route-level checks);
		// the mandatory owner scope narrows those.
		if res.OwnerUserID != nil && *res.OwnerUserID != p.UserID {
			return deny(DenyNotOwner)
		}
		return allow
	}

	// Staff roles are confined to their own clinic. A nil ClinicID on the
	// ref means the target clinic is not yet known (lists); the scoped
	// query narrows those.
	if res.ClinicID != nil {
		if p.ClinicID == nil || *p.ClinicID != *res.ClinicID {
			return deny(DenyTenantMismatch)
		}
	}

	return allow
}

// Require returns middleware gating a route group on the policy table at
// the kind/action level. Tenant and ownership checks against a concrete
// resource happen in the services after the scoped fetch.
func Require(logger zerolog.Logger, action Action, kind Kind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := FromContext(c.Request().Context())
			if !ok {
				return apperr.Unauthenticated("no principal")
			}

			decision := Authorize(p, action, ResourceRef{Kind: kind})
			if !decision.Allowed {
				logger.Warn().
					Str("user_id", p.UserID.String()).
					Str("role", string(p.Role)).
					Str("action", string(action)).
					Str("kind", string(kind)).
					Str("deny_reason", string(decision.Reason)).
					Str("path", c.Request().URL.Path).
					Msg("access denied")
				return apperr.Forbidden()
			}

			return next(c)
		}
	}
}
