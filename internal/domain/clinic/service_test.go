package clinic

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

// memRepo is an in-memory Repository for tests. Scope semantics mirror the
// SQL implementation: the clinic predicate applies to the id column.
type memRepo struct {
	clinics map[uuid.UUID]*Clinic
}

func newMemRepo() *memRepo {
	return &memRepo{clinics: make(map[uuid.UUID]*Clinic)}
}

func (m *memRepo) visible(scope auth.Scope, c *Clinic) bool {
	if scope.Kind == auth.ScopeOwner {
		return false
	}
	return scope.Matches(c.ID, nil)
}

func (m *memRepo) Create(_ context.Context, c *Clinic) error {
	c.ID = uuid.New()
	cp := *c
	m.clinics[c.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, scope auth.Scope, id uuid.UUID) (*Clinic, error) {
	c, ok := m.clinics[id]
	if !ok || !m.visible(scope, c) {
		return nil, apperr.NotFound("clinic")
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, scope auth.Scope, limit, offset int) ([]*Clinic, int, error) {
	var out []*Clinic
	for _, c := range m.clinics {
		if m.visible(scope, c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memRepo) Update(_ context.Context, c *Clinic) error {
	if _, ok := m.clinics[c.ID]; !ok {
		return apperr.NotFound("clinic")
	}
	cp := *c
	m.clinics[c.ID] = &cp
	return nil
}

func (m *memRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	c, ok := m.clinics[id]
	if !ok {
		return apperr.NotFound("clinic")
	}
	c.IsActive = active
	return nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.clinics[id]; !ok {
		return apperr.NotFound("clinic")
	}
	delete(m.clinics, id)
	return nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func globalPrincipal() auth.Principal {
	return auth.Principal{UserID: uuid.New(), Role: auth.RoleSuperMasterAdmin}
}

func adminPrincipal(clinicID uuid.UUID) auth.Principal {
	return auth.Principal{UserID: uuid.New(), Role: auth.RoleSuperAdmin, ClinicID: &clinicID}
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newTestService()

	c, err := svc.Create(context.Background(), CreateInput{Name: "Riverside Family Clinic"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !c.IsActive {
		t.Error("new clinic not active")
	}
	if c.Settings.SlotDurationMinutes != 30 {
		t.Errorf("SlotDurationMinutes = %d, want 30", c.Settings.SlotDurationMinutes)
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateInput{})
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("error = %v, want VALIDATION", err)
	}
}

func TestGetScopedToOwnClinic(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mine, err := svc.Create(ctx, CreateInput{Name: "Mine"})
	if err != nil {
		t.Fatal(err)
	}
	other, err := svc.Create(ctx, CreateInput{Name: "Other"})
	if err != nil {
		t.Fatal(err)
	}

	admin := adminPrincipal(mine.ID)
	if _, err := svc.Get(ctx, admin, mine.ID); err != nil {
		t.Errorf("admin reading own clinic: %v", err)
	}
	if _, err := svc.Get(ctx, admin, other.ID); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("admin reading other clinic: err = %v, want NOT_FOUND", err)
	}
}

func TestListGlobalSeesAll(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		if _, err := svc.Create(ctx, CreateInput{Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	clinics, total, err := svc.List(ctx, globalPrincipal(), 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(clinics) != 3 {
		t.Errorf("total = %d, len = %d, want 3", total, len(clinics))
	}
}

func TestListAdminSeesOnlyOwn(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mine, _ := svc.Create(ctx, CreateInput{Name: "Mine"})
	svc.Create(ctx, CreateInput{Name: "Other"})

	clinics, total, err := svc.List(ctx, adminPrincipal(mine.ID), 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(clinics) != 1 || clinics[0].ID != mine.ID {
		t.Errorf("admin list = %v (total %d), want only own clinic", clinics, total)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, _ := svc.Create(ctx, CreateInput{Name: "Before"})
	newName := "After"
	updated, err := svc.Update(ctx, globalPrincipal(), c.ID, UpdateInput{Name: &newName})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "After" {
		t.Errorf("Name = %s, want After", updated.Name)
	}
	if updated.Settings.SlotDurationMinutes != c.Settings.SlotDurationMinutes {
		t.Error("settings changed on unrelated update")
	}
}

func TestSetActiveToggles(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, _ := svc.Create(ctx, CreateInput{Name: "Clinic"})
	got, err := svc.SetActive(ctx, globalPrincipal(), c.ID, false)
	if err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if got.IsActive {
		t.Error("clinic still active after deactivation")
	}
}

func TestDeleteMissingClinic(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Delete(context.Background(), uuid.New())
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}
