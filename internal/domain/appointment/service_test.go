package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

type memRepo struct {
	appts map[uuid.UUID]*Appointment
	// swapDenied forces the next UpdateStatus to report a lost race.
	swapDenied bool
}

func newMemRepo() *memRepo {
	return &memRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *memRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, scope auth.Scope, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok || !scope.Matches(a.ClinicID, nil) {
		return nil, apperr.NotFound("appointment")
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, scope auth.Scope, f ListFilter) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if !scope.Matches(a.ClinicID, nil) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return apperr.NotFound("appointment")
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (bool, error) {
	if m.swapDenied {
		m.swapDenied = false
		return false, nil
	}
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.appts[id]; !ok {
		return apperr.NotFound("appointment")
	}
	delete(m.appts, id)
	return nil
}

type memConsultRepo struct {
	consults map[uuid.UUID]*Consultation
}

func newMemConsultRepo() *memConsultRepo {
	return &memConsultRepo{consults: make(map[uuid.UUID]*Consultation)}
}

func (m *memConsultRepo) Create(_ context.Context, c *Consultation) error {
	c.ID = uuid.New()
	cp := *c
	m.consults[c.ID] = &cp
	return nil
}

func (m *memConsultRepo) GetByID(_ context.Context, scope auth.Scope, id uuid.UUID) (*Consultation, error) {
	c, ok := m.consults[id]
	if !ok || !scope.Matches(c.ClinicID, nil) {
		return nil, apperr.NotFound("consultation")
	}
	cp := *c
	return &cp, nil
}

func (m *memConsultRepo) List(_ context.Context, scope auth.Scope, f ConsultationFilter) ([]*Consultation, int, error) {
	var out []*Consultation
	for _, c := range m.consults {
		if !scope.Matches(c.ClinicID, nil) {
			continue
		}
		if f.PatientID != nil && c.PatientID != *f.PatientID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memConsultRepo) Update(_ context.Context, c *Consultation) error {
	if _, ok := m.consults[c.ID]; !ok {
		return apperr.NotFound("consultation")
	}
	cp := *c
	m.consults[c.ID] = &cp
	return nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, newMemConsultRepo(), zerolog.Nop()), repo
}

func doctorAt(clinicID uuid.UUID) auth.Principal {
	return auth.Principal{UserID: uuid.New(), Role: auth.RoleDoctor, ClinicID: &clinicID}
}

func book(t *testing.T, svc *Service, p auth.Principal) *Appointment {
	t.Helper()
	a, err := svc.Create(context.Background(), p, CreateInput{
		PatientID:   uuid.New(),
		DoctorID:    uuid.New(),
		ScheduledAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return a
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := newTestService()
	clinicID := uuid.New()

	a := book(t, svc, doctorAt(clinicID))
	if a.Status != StatusScheduled {
		t.Errorf("Status = %s, want scheduled", a.Status)
	}
	if a.DurationMinutes != 30 {
		t.Errorf("DurationMinutes = %d, want 30", a.DurationMinutes)
	}
	if a.ClinicID != clinicID {
		t.Errorf("ClinicID = %s, want %s", a.ClinicID, clinicID)
	}
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), doctorAt(uuid.New()), CreateInput{})
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("error = %v, want VALIDATION_ERROR", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusScheduled, StatusNoShow, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusScheduled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusNoShow, StatusConfirmed, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			svc, repo := newTestService()
			p := doctorAt(uuid.New())
			a := book(t, svc, p)
			repo.appts[a.ID].Status = tc.from

			got, err := svc.SetStatus(context.Background(), p, a.ID, tc.to)
			if tc.ok {
				if err != nil {
					t.Fatalf("SetStatus() error = %v", err)
				}
				if got.Status != tc.to {
					t.Errorf("Status = %s, want %s", got.Status, tc.to)
				}
				return
			}
			if !apperr.IsCode(err, apperr.CodeInvalidTransition) {
				t.Errorf("error = %v, want INVALID_TRANSITION", err)
			}
			if repo.appts[a.ID].Status != tc.from {
				t.Errorf("rejected transition mutated status to %s", repo.appts[a.ID].Status)
			}
		})
	}
}

func TestSetStatusLostRaceIsConflict(t *testing.T) {
	svc, repo := newTestService()
	p := doctorAt(uuid.New())
	a := book(t, svc, p)

	repo.swapDenied = true
	_, err := svc.SetStatus(context.Background(), p, a.ID, StatusConfirmed)
	if !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("error = %v, want CONFLICT", err)
	}
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService()
	p := doctorAt(uuid.New())
	a := book(t, svc, p)

	_, err := svc.SetStatus(context.Background(), p, a.ID, Status("rescheduled"))
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("error = %v, want VALIDATION_ERROR", err)
	}
}

func TestCrossTenantReadIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	a := book(t, svc, doctorAt(uuid.New()))

	_, err := svc.Get(context.Background(), doctorAt(uuid.New()), a.ID)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestCrossTenantStatusChangeIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	a := book(t, svc, doctorAt(uuid.New()))

	_, err := svc.SetStatus(context.Background(), doctorAt(uuid.New()), a.ID, StatusConfirmed)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestUpdateReschedules(t *testing.T) {
	svc, _ := newTestService()
	p := doctorAt(uuid.New())
	a := book(t, svc, p)

	when := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	mins := 45
	got, err := svc.Update(context.Background(), p, a.ID, UpdateInput{
		ScheduledAt:     &when,
		DurationMinutes: &mins,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !got.ScheduledAt.Equal(when) {
		t.Errorf("ScheduledAt = %v, want %v", got.ScheduledAt, when)
	}
	if got.DurationMinutes != 45 {
		t.Errorf("DurationMinutes = %d, want 45", got.DurationMinutes)
	}
}

func TestCreateConsultationTakesDoctorFromPrincipal(t *testing.T) {
	svc, _ := newTestService()
	clinicID := uuid.New()
	p := doctorAt(clinicID)
	diag := "seasonal allergy"

	rec, err := svc.CreateConsultation(context.Background(), p, ConsultationInput{
		PatientID: uuid.New(),
		Diagnosis: &diag,
	})
	if err != nil {
		t.Fatalf("CreateConsultation() error = %v", err)
	}
	if rec.DoctorID != p.UserID {
		t.Errorf("DoctorID = %s, want acting principal %s", rec.DoctorID, p.UserID)
	}
	if rec.ClinicID != clinicID {
		t.Errorf("ClinicID = %s, want %s", rec.ClinicID, clinicID)
	}
}

func TestConsultationCrossTenantIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	rec, err := svc.CreateConsultation(context.Background(), doctorAt(uuid.New()), ConsultationInput{
		PatientID: uuid.New(),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.GetConsultation(context.Background(), doctorAt(uuid.New()), rec.ID)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestUpdateConsultation(t *testing.T) {
	svc, _ := newTestService()
	p := doctorAt(uuid.New())
	rec, err := svc.CreateConsultation(context.Background(), p, ConsultationInput{PatientID: uuid.New()})
	if err != nil {
		t.Fatal(err)
	}

	plan := "rest and fluids"
	got, err := svc.UpdateConsultation(context.Background(), p, rec.ID, ConsultationUpdate{TreatmentPlan: &plan})
	if err != nil {
		t.Fatalf("UpdateConsultation() error = %v", err)
	}
	if got.TreatmentPlan == nil || *got.TreatmentPlan != plan {
		t.Errorf("TreatmentPlan = %v, want %q", got.TreatmentPlan, plan)
	}
}
