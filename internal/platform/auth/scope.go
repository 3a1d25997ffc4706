package auth

import (
	"fmt"

	"github.com/google/uuid"
)

// ScopeKind says how a query must be narrowed for a principal.
type ScopeKind int

const (
	// ScopeAll places no restriction (global roles only).
	ScopeAll ScopeKind = iota
	// ScopeClinic restricts rows to the principal's clinic.
	ScopeClinic
	// ScopeOwner restricts rows to those owned by the principal's user
	// account (patient role).
	ScopeOwner
)

// Scope is the mandatory tenancy predicate ANDed into every repository
// query, independent of the policy check.
type Scope struct {
	Kind     ScopeKind
	ClinicID uuid.UUID
	UserID   uuid.UUID
}

// ScopeFor derives the query scope for a principal. Staff roles scope by
// clinic, patients by ownership, global roles not at all. An inactive
// clinic still yields a clinic predicate; whether such principals may log
// in at all is decided at login time.
func ScopeFor(p Principal) Scope {
	switch {
	case p.Role.Global():
		return Scope{Kind: ScopeAll}
	case p.Role == RolePatient:
		return Scope{Kind: ScopeOwner, UserID: p.UserID}
	default:
		var clinicID uuid.UUID
		if p.ClinicID != nil {
			clinicID = *p.ClinicID
		}
		return Scope{Kind: ScopeClinic, ClinicID: clinicID}
	}
}

// Predicate renders the scope as a SQL fragment against the given column
// names, using placeholders starting at argPos. It returns the fragment,
// its arguments, and the next free placeholder position. ScopeAll renders
// the always-true predicate so callers can AND unconditionally.
//
// ownerCol is the column (or subquery-producing expression) matching the
// owning user, e.g. "user_id" on patients or
// "patient_id IN (SELECT id FROM patients WHERE user_id = %s)" elsewhere.
func (s Scope) Predicate(clinicCol, ownerCol string, argPos int) (string, []any, int) {
	switch s.Kind {
	case ScopeClinic:
		return fmt.Sprintf("%s = $%d", clinicCol, argPos), []any{s.ClinicID}, argPos + 1
	case ScopeOwner:
		return fmt.Sprintf(ownerCol, fmt.Sprintf("$%d", argPos)), []any{s.UserID}, argPos + 1
	default:
		return "TRUE", nil, argPos
	}
}

// Matches reports whether a row with the given clinic and owner passes the
// scope. Used by in-memory implementations and for defense-in-depth checks
// after a fetch.
func (s Scope) Matches(clinicID uuid.UUID, ownerUserID *uuid.UUID) bool {
	switch s.Kind {
	case ScopeClinic:
		return clinicID == s.ClinicID
	case ScopeOwner:
		return ownerUserID != nil && *ownerUserID == s.UserID
	default:
		return true
	}
}
