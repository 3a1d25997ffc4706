package prescription

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

type memRepo struct {
	rxs map[uuid.UUID]*Prescription
	// swapDenied forces the next UpdateStatus to report a lost race.
	swapDenied bool
}

func newMemRepo() *memRepo {
	return &memRepo{rxs: make(map[uuid.UUID]*Prescription)}
}

func (m *memRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	if p.Status == "" {
		p.Status = StatusActive
	}
	cp := *p
	m.rxs[p.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, scope auth.Scope, id uuid.UUID) (*Prescription, error) {
	p, ok := m.rxs[id]
	if !ok || !scope.Matches(p.ClinicID, nil) {
		return nil, apperr.NotFound("prescription")
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, scope auth.Scope, f ListFilter) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.rxs {
		if !scope.Matches(p.ClinicID, nil) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.PatientID != nil && p.PatientID != *f.PatientID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memRepo) Update(_ context.Context, p *Prescription) error {
	if _, ok := m.rxs[p.ID]; !ok {
		return apperr.NotFound("prescription")
	}
	cp := *p
	m.rxs[p.ID] = &cp
	return nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, dispensedBy *uuid.UUID) (bool, error) {
	if m.swapDenied {
		m.swapDenied = false
		return false, nil
	}
	p, ok := m.rxs[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.DispensedBy = dispensedBy
	return true, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rxs[id]; !ok {
		return apperr.NotFound("prescription")
	}
	delete(m.rxs, id)
	return nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func doctorAt(clinicID uuid.UUID) auth.Principal {
	return auth.Principal{UserID: uuid.New(), Role: auth.RoleDoctor, ClinicID: &clinicID}
}

func pharmacistAt(clinicID uuid.UUID) auth.Principal {
	return auth.Principal{UserID: uuid.New(), Role: auth.RolePharmacyStaff, ClinicID: &clinicID}
}

func amoxicillin() []Medication {
	return []Medication{{Name: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", Duration: "7 days"}}
}

func write(t *testing.T, svc *Service, p auth.Principal) *Prescription {
	t.Helper()
	rx, err := svc.Create(context.Background(), p, CreateInput{
		PatientID:   uuid.New(),
		Medications: amoxicillin(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return rx
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := newTestService()
	clinicID := uuid.New()
	p := doctorAt(clinicID)

	rx := write(t, svc, p)
	if rx.Status != StatusActive {
		t.Errorf("Status = %s, want active", rx.Status)
	}
	if rx.DoctorID != p.UserID {
		t.Errorf("DoctorID = %s, want acting principal %s", rx.DoctorID, p.UserID)
	}
	if rx.ClinicID != clinicID {
		t.Errorf("ClinicID = %s, want %s", rx.ClinicID, clinicID)
	}
}

func TestCreateRequiresMedications(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), doctorAt(uuid.New()), CreateInput{PatientID: uuid.New()})
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("error = %v, want VALIDATION", err)
	}

	_, err = svc.Create(context.Background(), doctorAt(uuid.New()), CreateInput{
		PatientID:   uuid.New(),
		Medications: []Medication{{Name: "Amoxicillin"}},
	})
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("missing dosage: error = %v, want VALIDATION", err)
	}
}

func TestDispenseRecordsPharmacist(t *testing.T) {
	svc, _ := newTestService()
	clinicID := uuid.New()
	rx := write(t, svc, doctorAt(clinicID))

	ph := pharmacistAt(clinicID)
	got, err := svc.Dispense(context.Background(), ph, rx.ID)
	if err != nil {
		t.Fatalf("Dispense() error = %v", err)
	}
	if got.Status != StatusDispensed {
		t.Errorf("Status = %s, want dispensed", got.Status)
	}
	if got.DispensedBy == nil || *got.DispensedBy != ph.UserID {
		t.Errorf("DispensedBy = %v, want %s", got.DispensedBy, ph.UserID)
	}
}

func TestDispenseTwiceIsInvalidTransition(t *testing.T) {
	svc, _ := newTestService()
	clinicID := uuid.New()
	rx := write(t, svc, doctorAt(clinicID))
	ph := pharmacistAt(clinicID)

	if _, err := svc.Dispense(context.Background(), ph, rx.ID); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Dispense(context.Background(), ph, rx.ID)
	if !apperr.IsCode(err, apperr.CodeInvalidTransition) {
		t.Errorf("error = %v, want INVALID_TRANSITION", err)
	}
}

func TestDispenseLostRaceIsConflict(t *testing.T) {
	svc, repo := newTestService()
	clinicID := uuid.New()
	rx := write(t, svc, doctorAt(clinicID))

	repo.swapDenied = true
	_, err := svc.Dispense(context.Background(), pharmacistAt(clinicID), rx.ID)
	if !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("error = %v, want CONFLICT", err)
	}
}

func TestUpdateAfterDispenseRejected(t *testing.T) {
	svc, _ := newTestService()
	clinicID := uuid.New()
	rx := write(t, svc, doctorAt(clinicID))

	if _, err := svc.Dispense(context.Background(), pharmacistAt(clinicID), rx.ID); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Update(context.Background(), doctorAt(clinicID), rx.ID, UpdateInput{Medications: amoxicillin()})
	if !apperr.IsCode(err, apperr.CodeInvalidTransition) {
		t.Errorf("error = %v, want INVALID_TRANSITION", err)
	}
}

func TestCrossTenantReadIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	rx := write(t, svc, doctorAt(uuid.New()))

	_, err := svc.Get(context.Background(), pharmacistAt(uuid.New()), rx.ID)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestCancel(t *testing.T) {
	svc, _ := newTestService()
	clinicID := uuid.New()
	p := doctorAt(clinicID)
	rx := write(t, svc, p)

	got, err := svc.Cancel(context.Background(), p, rx.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("Status = %s, want cancelled", got.Status)
	}
	if got.DispensedBy != nil {
		t.Errorf("DispensedBy = %v, want nil", got.DispensedBy)
	}
}
