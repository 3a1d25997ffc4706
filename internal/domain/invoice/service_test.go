package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
	"github.com/clinova/emr/pkg/money"
)

type memRepo struct {
	invoices map[uuid.UUID]*Invoice
	// swapDenied forces the next UpdateStatus to report a lost race.
	swapDenied bool
}

func newMemRepo() *memRepo {
	return &memRepo{invoices: make(map[uuid.UUID]*Invoice)}
}

func (m *memRepo) Create(_ context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	cp := *inv
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, scope auth.Scope, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok || !scope.Matches(inv.ClinicID, nil) {
		return nil, apperr.NotFound("invoice")
	}
	cp := *inv
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, scope auth.Scope, f ListFilter) ([]*Invoice, int, error) {
	var out []*Invoice
	for _, inv := range m.invoices {
		if !scope.Matches(inv.ClinicID, nil) {
			continue
		}
		// Matches the SQL repo: sent/overdue filter on the effective status.
		if f.Status != "" && inv.EffectiveStatus(time.Now()) != f.Status {
			continue
		}
		cp := *inv
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, paymentMethod *string) (bool, error) {
	if m.swapDenied {
		m.swapDenied = false
		return false, nil
	}
	inv, ok := m.invoices[id]
	if !ok || inv.Status != from {
		return false, nil
	}
	inv.Status = to
	if to == StatusPaid {
		now := time.Now()
		inv.PaidAt = &now
		if paymentMethod != nil {
			inv.PaymentMethod = paymentMethod
		}
	}
	return true, nil
}

func (m *memRepo) Summary(_ context.Context, scope auth.Scope, now time.Time) (*SummaryRow, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)
	var s SummaryRow
	for _, inv := range m.invoices {
		if !scope.Matches(inv.ClinicID, nil) {
			continue
		}
		switch {
		case inv.Status == StatusPaid:
			s.TotalRevenue = s.TotalRevenue.Add(inv.Total)
			if !inv.InvoiceDate.Before(monthStart) && inv.InvoiceDate.Before(monthEnd) {
				s.PaidThisMonth = s.PaidThisMonth.Add(inv.Total)
			}
		case inv.EffectiveStatus(now) == StatusOverdue:
			s.Outstanding = s.Outstanding.Add(inv.Total)
		case inv.Status == StatusSent:
			s.PendingCount++
		}
	}
	return &s, nil
}

func (m *memRepo) MonthlyRevenue(_ context.Context, scope auth.Scope, from time.Time) ([]MonthBucket, error) {
	type key struct {
		year  int
		month time.Month
	}
	byMonth := make(map[key]*MonthBucket)
	for _, inv := range m.invoices {
		if !scope.Matches(inv.ClinicID, nil) || inv.Status != StatusPaid || inv.InvoiceDate.Before(from) {
			continue
		}
		k := key{inv.InvoiceDate.Year(), inv.InvoiceDate.Month()}
		b, ok := byMonth[k]
		if !ok {
			b = &MonthBucket{Year: k.year, Month: k.month}
			byMonth[k] = b
		}
		b.Total = b.Total.Add(inv.Total)
		b.Count++
	}
	var buckets []MonthBucket
	for _, b := range byMonth {
		buckets = append(buckets, *b)
	}
	return buckets, nil
}

func (m *memRepo) PaymentTotals(_ context.Context, scope auth.Scope) ([]MethodTotal, error) {
	byMethod := make(map[string]*MethodTotal)
	for _, inv := range m.invoices {
		if !scope.Matches(inv.ClinicID, nil) || inv.Status != StatusPaid {
			continue
		}
		label := ""
		if inv.PaymentMethod != nil {
			label = *inv.PaymentMethod
		}
		t, ok := byMethod[label]
		if !ok {
			t = &MethodTotal{Method: inv.PaymentMethod}
			byMethod[label] = t
		}
		t.Total = t.Total.Add(inv.Total)
		t.Count++
	}
	var totals []MethodTotal
	for _, t := range byMethod {
		totals = append(totals, *t)
	}
	return totals, nil
}

type memSequencer struct {
	counters map[uuid.UUID]int64
}

func (m *memSequencer) Next(_ context.Context, clinicID uuid.UUID, _ string) (int64, error) {
	if m.counters == nil {
		m.counters = make(map[uuid.UUID]int64)
	}
	m.counters[clinicID]++
	return m.counters[clinicID], nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, &memSequencer{}, zerolog.Nop()), repo
}

func billingAt(clinicID uuid.UUID) auth.Principal {
	return auth.Principal{UserID: uuid.New(), Role: auth.RoleBillingStaff, ClinicID: &clinicID}
}

func issue(t *testing.T, svc *Service, p auth.Principal, in CreateInput) *Invoice {
	t.Helper()
	if in.PatientID == uuid.Nil {
		in.PatientID = uuid.New()
	}
	if len(in.Items) == 0 {
		in.Items = []ItemInput{{Description: "Consult", Quantity: 1, Rate: money.FromFloat(150)}}
	}
	inv, err := svc.Create(context.Background(), p, in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return inv
}

func pay(t *testing.T, svc *Service, p auth.Principal, id uuid.UUID, method *string) {
	t.Helper()
	if _, err := svc.SetStatus(context.Background(), p, id, SetStatusInput{Status: StatusSent}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetStatus(context.Background(), p, id, SetStatusInput{Status: StatusPaid, PaymentMethod: method}); err != nil {
		t.Fatal(err)
	}
}

// Consult 1×150 plus Labs 2×25 at 8% tax: subtotal 200.00, tax 16.00,
// total 216.00, starting in draft.
func TestCreateComputesTotals(t *testing.T) {
	svc, _ := newTestService()
	p := billingAt(uuid.New())

	inv := issue(t, svc, p, CreateInput{
		Items: []ItemInput{
			{Description: "Consult", Quantity: 1, Rate: money.FromFloat(150)},
			{Description: "Labs", Quantity: 2, Rate: money.FromFloat(25)},
		},
		TaxRate: 0.08,
	})

	if inv.Subtotal != money.FromCents(20000) {
		t.Errorf("Subtotal = %s, want 200.00", inv.Subtotal)
	}
	if inv.Tax != money.FromCents(1600) {
		t.Errorf("Tax = %s, want 16.00", inv.Tax)
	}
	if inv.Total != money.FromCents(21600) {
		t.Errorf("Total = %s, want 216.00", inv.Total)
	}
	if inv.Status != StatusDraft {
		t.Errorf("Status = %s, want draft", inv.Status)
	}
	if inv.Items[1].Amount != money.FromCents(5000) {
		t.Errorf("Labs line amount = %s, want 50.00", inv.Items[1].Amount)
	}
}

func TestCreateTotalInvariant(t *testing.T) {
	svc, _ := newTestService()
	p := billingAt(uuid.New())

	cases := []CreateInput{
		{Items: []ItemInput{{Description: "Visit", Quantity: 3, Rate: money.FromCents(3333)}}, TaxRate: 0.075},
		{Items: []ItemInput{{Description: "Visit", Quantity: 1, Rate: money.FromCents(1)}}, TaxRate: 0.99},
		{Items: []ItemInput{{Description: "Visit", Quantity: 1, Rate: money.FromCents(100)}}, Discount: money.FromCents(5000)},
	}
	for _, in := range cases {
		inv := issue(t, svc, p, in)
		want := inv.Subtotal.Add(inv.Tax).Sub(inv.Discount).ClampZero()
		if inv.Total != want {
			t.Errorf("Total = %s, want %s", inv.Total, want)
		}
		if inv.Total < 0 {
			t.Errorf("Total = %s, negative", inv.Total)
		}
	}
}

func TestCreateDiscountRate(t *testing.T) {
	svc, _ := newTestService()
	rate := 0.10

	inv := issue(t, svc, billingAt(uuid.New()), CreateInput{
		Items:        []ItemInput{{Description: "Consult", Quantity: 1, Rate: money.FromFloat(200)}},
		DiscountRate: &rate,
	})
	if inv.Discount != money.FromCents(2000) {
		t.Errorf("Discount = %s, want 20.00", inv.Discount)
	}
	if inv.Total != money.FromCents(18000) {
		t.Errorf("Total = %s, want 180.00", inv.Total)
	}
}

func TestCreateValidatesItems(t *testing.T) {
	svc, _ := newTestService()
	p := billingAt(uuid.New())

	_, err := svc.Create(context.Background(), p, CreateInput{PatientID: uuid.New()})
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("no items: error = %v, want VALIDATION", err)
	}

	_, err = svc.Create(context.Background(), p, CreateInput{
		PatientID: uuid.New(),
		Items:     []ItemInput{{Description: "Consult", Quantity: 0, Rate: money.FromFloat(150)}},
	})
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("zero quantity: error = %v, want VALIDATION", err)
	}
}

func TestInvoiceNumbersAreSequentialPerClinic(t *testing.T) {
	svc, _ := newTestService()
	clinicA := billingAt(uuid.New())
	clinicB := billingAt(uuid.New())

	first := issue(t, svc, clinicA, CreateInput{})
	second := issue(t, svc, clinicA, CreateInput{})
	other := issue(t, svc, clinicB, CreateInput{})

	if first.InvoiceNumber != "INV-000001" {
		t.Errorf("first = %s, want INV-000001", first.InvoiceNumber)
	}
	if second.InvoiceNumber != "INV-000002" {
		t.Errorf("second = %s, want INV-000002", second.InvoiceNumber)
	}
	if other.InvoiceNumber != "INV-000001" {
		t.Errorf("other clinic = %s, want its own INV-000001", other.InvoiceNumber)
	}
}

// Draft→sent→paid succeeds; paid is terminal.
func TestLifecycleDraftSentPaid(t *testing.T) {
	svc, _ := newTestService()
	p := billingAt(uuid.New())
	inv := issue(t, svc, p, CreateInput{})

	if _, err := svc.SetStatus(context.Background(), p, inv.ID, SetStatusInput{Status: StatusSent}); err != nil {
		t.Fatalf("draft→sent error = %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), p, inv.ID, SetStatusInput{Status: StatusPaid}); err != nil {
		t.Fatalf("sent→paid error = %v", err)
	}

	_, err := svc.SetStatus(context.Background(), p, inv.ID, SetStatusInput{Status: StatusSent})
	if !apperr.IsCode(err, apperr.CodeInvalidTransition) {
		t.Errorf("paid→sent error = %v, want INVALID_TRANSITION", err)
	}
}

func TestLifecycleIllegalEdges(t *testing.T) {
	cases := []struct {
		from, to Status
	}{
		{StatusDraft, StatusPaid},
		{StatusPaid, StatusCancelled},
		{StatusCancelled, StatusSent},
		{StatusCancelled, StatusDraft},
		{StatusSent, StatusDraft},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			svc, repo := newTestService()
			p := billingAt(uuid.New())
			inv := issue(t, svc, p, CreateInput{})
			repo.invoices[inv.ID].Status = tc.from

			_, err := svc.SetStatus(context.Background(), p, inv.ID, SetStatusInput{Status: tc.to})
			if !apperr.IsCode(err, apperr.CodeInvalidTransition) {
				t.Errorf("error = %v, want INVALID_TRANSITION", err)
			}
			if repo.invoices[inv.ID].Status != tc.from {
				t.Errorf("rejected transition mutated status to %s", repo.invoices[inv.ID].Status)
			}
		})
	}
}

func TestSetStatusRejectsOverdueTarget(t *testing.T) {
	svc, _ := newTestService()
	p := billingAt(uuid.New())
	inv := issue(t, svc, p, CreateInput{})

	_, err := svc.SetStatus(context.Background(), p, inv.ID, SetStatusInput{Status: StatusOverdue})
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("error = %v, want VALIDATION", err)
	}
}

// Two racing status changes on the same sent invoice: the loser of the
// compare-and-swap gets a conflict, never a silent overwrite.
func TestSetStatusLostRaceIsConflict(t *testing.T) {
	svc, repo := newTestService()
	p := billingAt(uuid.New())
	inv := issue(t, svc, p, CreateInput{})
	if _, err := svc.SetStatus(context.Background(), p, inv.ID, SetStatusInput{Status: StatusSent}); err != nil {
		t.Fatal(err)
	}

	repo.swapDenied = true
	_, err := svc.SetStatus(context.Background(), p, inv.ID, SetStatusInput{Status: StatusCancelled})
	if !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("error = %v, want CONFLICT", err)
	}
	if repo.invoices[inv.ID].Status != StatusSent {
		t.Errorf("loser mutated status to %s", repo.invoices[inv.ID].Status)
	}
}

func TestPastDueSentReadsAsOverdue(t *testing.T) {
	svc, repo := newTestService()
	p := billingAt(uuid.New())
	due := time.Now().Add(-24 * time.Hour)
	inv := issue(t, svc, p, CreateInput{DueDate: &due})
	repo.invoices[inv.ID].Status = StatusSent

	got, err := svc.Get(context.Background(), p, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusOverdue {
		t.Errorf("Status = %s, want overdue", got.Status)
	}
	// Late payment is still legal from the derived overdue state.
	if _, err := svc.SetStatus(context.Background(), p, inv.ID, SetStatusInput{Status: StatusPaid}); err != nil {
		t.Errorf("overdue→paid error = %v", err)
	}
}

func TestCrossTenantReadIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	inv := issue(t, svc, billingAt(uuid.New()), CreateInput{})

	_, err := svc.Get(context.Background(), billingAt(uuid.New()), inv.ID)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestSummaryAggregates(t *testing.T) {
	svc, repo := newTestService()
	clinicID := uuid.New()
	p := billingAt(clinicID)

	paid := issue(t, svc, p, CreateInput{
		Items: []ItemInput{{Description: "Consult", Quantity: 1, Rate: money.FromFloat(100)}},
	})
	pay(t, svc, p, paid.ID, nil)

	pending := issue(t, svc, p, CreateInput{
		Items: []ItemInput{{Description: "Consult", Quantity: 1, Rate: money.FromFloat(40)}},
	})
	if _, err := svc.SetStatus(context.Background(), p, pending.ID, SetStatusInput{Status: StatusSent}); err != nil {
		t.Fatal(err)
	}

	due := time.Now().Add(-48 * time.Hour)
	overdue := issue(t, svc, p, CreateInput{
		Items:   []ItemInput{{Description: "Consult", Quantity: 1, Rate: money.FromFloat(60)}},
		DueDate: &due,
	})
	repo.invoices[overdue.ID].Status = StatusSent

	// Another clinic's revenue must not bleed into this scope.
	foreign := issue(t, svc, billingAt(uuid.New()), CreateInput{})
	pay(t, svc, billingAt(foreign.ClinicID), foreign.ID, nil)

	s, err := svc.Summary(context.Background(), p)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if s.TotalRevenue != money.FromCents(10000) {
		t.Errorf("TotalRevenue = %s, want 100.00", s.TotalRevenue)
	}
	if s.Outstanding != money.FromCents(6000) {
		t.Errorf("Outstanding = %s, want 60.00", s.Outstanding)
	}
	if s.PendingCount != 1 {
		t.Errorf("PendingCount = %d, want 1", s.PendingCount)
	}
	if s.PaidThisMonth != money.FromCents(10000) {
		t.Errorf("PaidThisMonth = %s, want 100.00", s.PaidThisMonth)
	}
}

// Reading statistics twice over an unchanged invoice set yields identical
// results.
func TestSummaryIdempotent(t *testing.T) {
	svc, _ := newTestService()
	p := billingAt(uuid.New())
	inv := issue(t, svc, p, CreateInput{})
	pay(t, svc, p, inv.ID, nil)

	first, err := svc.Summary(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Summary(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if *first != *second {
		t.Errorf("summaries differ: %+v vs %+v", first, second)
	}
}

func TestMonthlySeriesZeroFilled(t *testing.T) {
	svc, _ := newTestService()
	p := billingAt(uuid.New())
	inv := issue(t, svc, p, CreateInput{
		Items: []ItemInput{{Description: "Consult", Quantity: 1, Rate: money.FromFloat(100)}},
	})
	pay(t, svc, p, inv.ID, nil)

	series, err := svc.Monthly(context.Background(), p, 6)
	if err != nil {
		t.Fatalf("Monthly() error = %v", err)
	}
	if len(series) != 6 {
		t.Fatalf("len(series) = %d, want 6", len(series))
	}
	for _, point := range series[:5] {
		if point.Revenue != 0 || point.Count != 0 {
			t.Errorf("month %s = %s (%d invoices), want zero", point.Month, point.Revenue, point.Count)
		}
	}
	current := series[5]
	if current.Revenue != money.FromCents(10000) || current.Count != 1 {
		t.Errorf("current month = %s (%d invoices), want 100.00 (1)", current.Revenue, current.Count)
	}
}

func TestPaymentMethodBreakdown(t *testing.T) {
	svc, _ := newTestService()
	p := billingAt(uuid.New())

	card := "Card"
	withCard := issue(t, svc, p, CreateInput{
		Items: []ItemInput{{Description: "Consult", Quantity: 1, Rate: money.FromFloat(75)}},
	})
	pay(t, svc, p, withCard.ID, &card)

	noMethod := issue(t, svc, p, CreateInput{
		Items: []ItemInput{{Description: "Consult", Quantity: 1, Rate: money.FromFloat(25)}},
	})
	pay(t, svc, p, noMethod.ID, nil)

	breakdown, err := svc.PaymentMethods(context.Background(), p)
	if err != nil {
		t.Fatalf("PaymentMethods() error = %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("len(breakdown) = %d, want 2", len(breakdown))
	}

	byMethod := make(map[string]MethodBreakdown)
	for _, b := range breakdown {
		byMethod[b.Method] = b
	}
	if got := byMethod["Card"]; got.Total != money.FromCents(7500) || got.Percentage != 75 {
		t.Errorf("Card = %s at %d%%, want 75.00 at 75%%", got.Total, got.Percentage)
	}
	if got := byMethod["Direct Payment"]; got.Total != money.FromCents(2500) || got.Percentage != 25 {
		t.Errorf("Direct Payment = %s at %d%%, want 25.00 at 25%%", got.Total, got.Percentage)
	}
}

// Zero paid invoices: the breakdown is empty, not a division by zero.
func TestPaymentMethodBreakdownEmpty(t *testing.T) {
	svc, _ := newTestService()
	p := billingAt(uuid.New())
	issue(t, svc, p, CreateInput{}) // draft only, never paid

	breakdown, err := svc.PaymentMethods(context.Background(), p)
	if err != nil {
		t.Fatalf("PaymentMethods() error = %v", err)
	}
	if len(breakdown) != 0 {
		t.Errorf("len(breakdown) = %d, want 0", len(breakdown))
	}
}

// A stored 'sent' row past its due date must match status=overdue, not
// status=sent, when listing.
func TestListStatusFilterUsesEffectiveStatus(t *testing.T) {
	svc, repo := newTestService()
	p := billingAt(uuid.New())

	pastDue := time.Now().Add(-24 * time.Hour)
	futureDue := time.Now().Add(24 * time.Hour)
	late := issue(t, svc, p, CreateInput{DueDate: &pastDue})
	pending := issue(t, svc, p, CreateInput{DueDate: &futureDue})
	repo.invoices[late.ID].Status = StatusSent
	repo.invoices[pending.ID].Status = StatusSent

	overdue, _, err := svc.List(context.Background(), p, ListFilter{Status: StatusOverdue})
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 1 || overdue[0].ID != late.ID {
		t.Errorf("status=overdue returned %d invoices, want the past-due one", len(overdue))
	}

	sent, _, err := svc.List(context.Background(), p, ListFilter{Status: StatusSent})
	if err != nil {
		t.Fatal(err)
	}
	if len(sent) != 1 || sent[0].ID != pending.ID {
		t.Errorf("status=sent returned %d invoices, want only the not-yet-due one", len(sent))
	}
}

func TestSummaryExcludesFutureMonthsFromPaidThisMonth(t *testing.T) {
	svc, repo := newTestService()
	p := billingAt(uuid.New())

	current := issue(t, svc, p, CreateInput{
		Items: []ItemInput{{Description: "Consult", Quantity: 1, Rate: money.FromFloat(100)}},
	})
	pay(t, svc, p, current.ID, nil)

	future := issue(t, svc, p, CreateInput{
		Items: []ItemInput{{Description: "Consult", Quantity: 1, Rate: money.FromFloat(60)}},
	})
	pay(t, svc, p, future.ID, nil)
	repo.invoices[future.ID].InvoiceDate = time.Now().AddDate(0, 2, 0)

	s, err := svc.Summary(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if s.PaidThisMonth != money.FromFloat(100) {
		t.Errorf("PaidThisMonth = %v, want 100.00", s.PaidThisMonth)
	}
	// Total revenue still counts every paid invoice regardless of date.
	if s.TotalRevenue != money.FromFloat(160) {
		t.Errorf("TotalRevenue = %v, want 160.00", s.TotalRevenue)
	}
}
