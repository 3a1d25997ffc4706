package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

// PatientProfile is the demographic payload recorded alongside a
// self-registered patient account.
type PatientProfile struct {
	UserID      uuid.UUID
	ClinicID    uuid.UUID
	Name        string
	Email       string
	Phone       *string
	DateOfBirth *time.Time
	Gender      *string
}

// ProfileCreator records the patient-side profile for a self-registered
// account. Implemented by the patient service; an interface here keeps the
// packages decoupled.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, profile PatientProfile) error
}

type Service struct {
	repo     Repository
	issuer   *auth.TokenIssuer
	profiles ProfileCreator
	log      zerolog.Logger
}

func NewService(repo Repository, issuer *auth.TokenIssuer, profiles ProfileCreator, log zerolog.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, profiles: profiles, log: log}
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Login verifies credentials and issues a token. Bad email and bad
// password are indistinguishable to the caller. Accounts pending email
// verification, deactivated accounts, and accounts of deactivated clinics
// cannot log in.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, apperr.Validation("invalid request", map[string]string{
			"email":    "email is required",
			"password": "password is required",
		})
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.Warn().Str("user_id", u.ID.String()).Msg("failed login attempt")
		return nil, apperr.InvalidCredentials()
	}

	if !u.IsActive {
		return nil, apperr.InvalidCredentials()
	}
	if !u.EmailVerified {
		return nil, apperr.NotVerified()
	}
	if u.ClinicID != nil {
		active, err := s.repo.ClinicActive(ctx, *u.ClinicID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, apperr.InvalidCredentials()
		}
	}

	token, err := s.issuer.Issue(u.Principal())
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.log.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to record last login")
	}
	u.LastLoginAt = &now

	s.log.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).Msg("login")
	return &LoginResult{Token: token, ExpiresAt: now.Add(s.issuer.TTL()), User: u}, nil
}

// Me returns the account behind the current principal. A principal whose
// account no longer exists or is deactivated is treated as
// unauthenticated, not missing.
func (s *Service) Me(ctx context.Context, p auth.Principal) (*User, error) {
	u, err := s.repo.GetByID(ctx, auth.Scope{Kind: auth.ScopeAll}, p.UserID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthenticated("account no longer active")
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.Unauthenticated("account no longer active")
	}
	return u, nil
}

// CreateInput carries the fields for creating a staff account.
type CreateInput struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     auth.Role  `json:"role"`
	ClinicID *uuid.UUID `json:"clinic_id"`
	Phone    *string    `json:"phone"`
}

func (in CreateInput) validate() map[string]string {
	fields := map[string]string{}
	if in.Name == "" {
		fields["name"] = "name is required"
	}
	if in.Email == "" {
		fields["email"] = "email is required"
	}
	if len(in.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if !in.Role.Valid() {
		fields["role"] = "unknown role"
	}
	return fields
}

// Create registers a staff account. Clinic admins may only create
// accounts in their own clinic and may not mint global roles.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*User, error) {
	if fields := in.validate(); len(fields) > 0 {
		return nil, apperr.Validation("invalid request", fields)
	}

	if in.Role.Global() && p.Role != auth.RoleSuperMasterAdmin {
		s.log.Warn().
			Str("user_id", p.UserID.String()).
			Str("deny_reason", string(auth.DenyInsufficientRole)).
			Msg("attempt to create global account")
		return nil, apperr.Forbidden()
	}

	clinicID := in.ClinicID
	if !p.Role.Global() {
		// Staff accounts are pinned to the creator's clinic.
		if clinicID != nil && (p.ClinicID == nil || *clinicID != *p.ClinicID) {
			s.log.Warn().
				Str("user_id", p.UserID.String()).
				Str("deny_reason", string(auth.DenyTenantMismatch)).
				Msg("attempt to create account in another clinic")
			return nil, apperr.Forbidden()
		}
		clinicID = p.ClinicID
	}
	if !in.Role.Global() && clinicID == nil {
		return nil, apperr.Validation("invalid request", map[string]string{"clinic_id": "clinic_id is required"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	u := &User{
		Name:          in.Name,
		Email:         in.Email,
		PasswordHash:  string(hash),
		Role:          in.Role,
		ClinicID:      clinicID,
		Phone:         in.Phone,
		IsActive:      true,
		EmailVerified: true, // staff accounts are provisioned verified
	}
	if in.Role.Global() {
		u.ClinicID = nil
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).Msg("user created")
	return u, nil
}

// RegisterPatientInput is the public self-registration payload.
type RegisterPatientInput struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	ClinicID    uuid.UUID  `json:"clinic_id"`
	Phone       *string    `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      *string    `json:"gender"`
}

// RegisterPatient creates a patient account plus its medical profile in
// the target clinic. The account starts unverified; login is blocked until
// verification completes.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (*User, error) {
	fields := map[string]string{}
	if in.Name == "" {
		fields["name"] = "name is required"
	}
	if in.Email == "" {
		fields["email"] = "email is required"
	}
	if len(in.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if in.ClinicID == uuid.Nil {
		fields["clinic_id"] = "clinic_id is required"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid request", fields)
	}

	active, err := s.repo.ClinicActive(ctx, in.ClinicID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperr.Validation("invalid request", map[string]string{"clinic_id": "unknown clinic"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	clinicID := in.ClinicID
	u := &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         auth.RolePatient,
		ClinicID:     &clinicID,
		Phone:        in.Phone,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	if err := s.profiles.CreateProfile(ctx, PatientProfile{
		UserID:      u.ID,
		ClinicID:    in.ClinicID,
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		DateOfBirth: in.DateOfBirth,
		Gender:      in.Gender,
	}); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", u.ID.String()).Str("clinic_id", in.ClinicID.String()).Msg("patient registered")
	return u, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, auth.ScopeFor(p), id)
}

func (s *Service) List(ctx context.Context, p auth.Principal, f ListFilter) ([]*User, int, error) {
	return s.repo.List(ctx, auth.ScopeFor(p), f)
}

// UpdateInput carries mutable account fields. Role and clinic are
// immutable after creation.
type UpdateInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validation("invalid request", map[string]string{"name": "name cannot be empty"})
		}
		u.Name = *in.Name
	}
	if in.Email != nil {
		if *in.Email == "" {
			return nil, apperr.Validation("invalid request", map[string]string{"email": "email cannot be empty"})
		}
		u.Email = *in.Email
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			return nil, apperr.Validation("invalid request", map[string]string{"password": "password must be at least 8 characters"})
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		u.PasswordHash = string(hash)
	}
	if in.Phone != nil {
		u.Phone = in.Phone
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete deactivates the account. Rows are never hard-deleted so audit
// history stays intact.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id.String()).Msg("user deactivated")
	return nil
}
