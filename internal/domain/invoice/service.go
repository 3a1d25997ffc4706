package invoice

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
	"github.com/clinova/emr/pkg/money"
)

// counterName is the per-clinic counter backing invoice numbers.
const counterName = "invoice_number"

// NumberSource reserves monotonically increasing invoice numbers per
// clinic. Implemented by db.Sequencer.
type NumberSource interface {
	Next(ctx context.Context, clinicID uuid.UUID, name string) (int64, error)
}

type Service struct {
	repo    Repository
	numbers NumberSource
	now     func() time.Time
	log     zerolog.Logger
}

func NewService(repo Repository, numbers NumberSource, log zerolog.Logger) *Service {
	return &Service{repo: repo, numbers: numbers, now: time.Now, log: log}
}

// ItemInput is one requested invoice line.
type ItemInput struct {
	Description string       `json:"description"`
	Quantity    int64        `json:"quantity"`
	Rate        money.Amount `json:"rate"`
}

// CreateInput carries the invoice creation fields. Discount may be given
// as an explicit amount or a rate of the subtotal, not both.
type CreateInput struct {
	ClinicID     *uuid.UUID   `json:"clinic_id"`
	PatientID    uuid.UUID    `json:"patient_id"`
	Items        []ItemInput  `json:"items"`
	TaxRate      float64      `json:"tax_rate"`
	Discount     money.Amount `json:"discount"`
	DiscountRate *float64     `json:"discount_rate"`
	DueDate      *time.Time   `json:"due_date"`
	InvoiceDate  *time.Time   `json:"invoice_date"`
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Invoice, error) {
	fields := map[string]string{}
	if in.PatientID == uuid.Nil {
		fields["patient_id"] = "patient_id is required"
	}
	if len(in.Items) == 0 {
		fields["items"] = "at least one line item is required"
	}
	for i, it := range in.Items {
		key := "items[" + strconv.Itoa(i) + "]"
		if it.Description == "" {
			fields[key+".description"] = "description is required"
		}
		if it.Quantity <= 0 {
			fields[key+".quantity"] = "quantity must be positive"
		}
		if it.Rate < 0 {
			fields[key+".rate"] = "rate must not be negative"
		}
	}
	if in.TaxRate < 0 || in.TaxRate > 1 {
		fields["tax_rate"] = "tax_rate must be between 0 and 1"
	}
	if in.Discount < 0 {
		fields["discount"] = "discount must not be negative"
	}
	if in.DiscountRate != nil {
		if in.Discount != 0 {
			fields["discount_rate"] = "give discount or discount_rate, not both"
		} else if *in.DiscountRate < 0 || *in.DiscountRate > 1 {
			fields["discount_rate"] = "discount_rate must be between 0 and 1"
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid request", fields)
	}

	var clinicID uuid.UUID
	switch {
	case p.Role.Global():
		if in.ClinicID == nil {
			return nil, apperr.Validation("invalid request", map[string]string{"clinic_id": "clinic_id is required"})
		}
		clinicID = *in.ClinicID
	case p.ClinicID == nil:
		return nil, apperr.Forbidden()
	case in.ClinicID != nil && *in.ClinicID != *p.ClinicID:
		s.log.Warn().
			Str("user_id", p.UserID.String()).
			Str("deny_reason", string(auth.DenyTenantMismatch)).
			Msg("attempt to bill into another clinic")
		return nil, apperr.Forbidden()
	default:
		clinicID = *p.ClinicID
	}

	// Totals are computed exactly once, here. Every derived value rounds
	// half-up to the cent and is frozen on the stored row.
	items := make([]Item, len(in.Items))
	var subtotal money.Amount
	for i, it := range in.Items {
		amount := it.Rate.Mul(it.Quantity)
		items[i] = Item{
			Description: it.Description,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Amount:      amount,
		}
		subtotal = subtotal.Add(amount)
	}
	tax := subtotal.MulRate(in.TaxRate)
	discount := in.Discount
	if in.DiscountRate != nil {
		discount = subtotal.MulRate(*in.DiscountRate)
	}
	total := subtotal.Add(tax).Sub(discount).ClampZero()

	seq, err := s.numbers.Next(ctx, clinicID, counterName)
	if err != nil {
		return nil, err
	}

	invoiceDate := s.now()
	if in.InvoiceDate != nil {
		invoiceDate = *in.InvoiceDate
	}

	inv := &Invoice{
		ClinicID:      clinicID,
		PatientID:     in.PatientID,
		InvoiceNumber: fmt.Sprintf("INV-%06d", seq),
		Items:         items,
		Subtotal:      subtotal,
		TaxRate:       in.TaxRate,
		Tax:           tax,
		Discount:      discount,
		Total:         total,
		Status:        StatusDraft,
		InvoiceDate:   invoiceDate,
		DueDate:       in.DueDate,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("invoice_id", inv.ID.String()).
		Str("invoice_number", inv.InvoiceNumber).
		Str("total", inv.Total.String()).
		Msg("invoice created")
	return inv, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, auth.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}
	inv.Status = inv.EffectiveStatus(s.now())
	return inv, nil
}

func (s *Service) List(ctx context.Context, p auth.Principal, f ListFilter) ([]*Invoice, int, error) {
	invs, total, err := s.repo.List(ctx, auth.ScopeFor(p), f)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for _, inv := range invs {
		inv.Status = inv.EffectiveStatus(now)
	}
	return invs, total, nil
}

// SetStatusInput carries the requested transition. PaymentMethod is only
// meaningful on a transition to paid.
type SetStatusInput struct {
	Status        Status  `json:"status"`
	PaymentMethod *string `json:"payment_method"`
}

// SetStatus applies a lifecycle transition with optimistic concurrency.
// Overdue is never a requestable target; it is derived from the due date.
func (s *Service) SetStatus(ctx context.Context, p auth.Principal, id uuid.UUID, in SetStatusInput) (*Invoice, error) {
	if !in.Status.Valid() {
		return nil, apperr.Validation("invalid request", map[string]string{"status": "unknown status"})
	}
	if in.Status == StatusOverdue {
		return nil, apperr.Validation("invalid request", map[string]string{"status": "overdue is derived from the due date and cannot be set"})
	}

	scope := auth.ScopeFor(p)
	inv, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	effective := inv.EffectiveStatus(s.now())
	if !CanTransition(effective, in.Status) {
		return nil, apperr.InvalidTransition(string(effective), string(in.Status))
	}

	// CAS runs against the stored status: a past-due invoice still holds
	// "sent" on the row even though callers see overdue.
	swapped, err := s.repo.UpdateStatus(ctx, id, inv.Status, in.Status, in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, apperr.Conflict("invoice was modified concurrently, re-fetch and retry")
	}

	inv.Status = in.Status
	if in.Status == StatusPaid && in.PaymentMethod != nil {
		inv.PaymentMethod = in.PaymentMethod
	}
	s.log.Info().Str("invoice_id", id.String()).Str("status", string(in.Status)).Msg("invoice status changed")
	return inv, nil
}

func (s *Service) Summary(ctx context.Context, p auth.Principal) (*SummaryRow, error) {
	return s.repo.Summary(ctx, auth.ScopeFor(p), s.now())
}

// MonthlyPoint is one month in the revenue series, zero-filled for months
// with no paid invoices.
type MonthlyPoint struct {
	Month   string       `json:"month"`
	Revenue money.Amount `json:"revenue"`
	Count   int          `json:"count"`
}

// Monthly returns the paid revenue series for the trailing n months,
// oldest first, including the current month.
func (s *Service) Monthly(ctx context.Context, p auth.Principal, months int) ([]MonthlyPoint, error) {
	if months <= 0 {
		months = 6
	}
	if months > 24 {
		months = 24
	}

	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)

	buckets, err := s.repo.MonthlyRevenue(ctx, auth.ScopeFor(p), start)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]MonthBucket, len(buckets))
	for _, b := range buckets {
		byKey[fmt.Sprintf("%04d-%02d", b.Year, int(b.Month))] = b
	}

	series := make([]MonthlyPoint, 0, months)
	for i := 0; i < months; i++ {
		m := start.AddDate(0, i, 0)
		key := fmt.Sprintf("%04d-%02d", m.Year(), int(m.Month()))
		point := MonthlyPoint{Month: key}
		if b, ok := byKey[key]; ok {
			point.Revenue = b.Total
			point.Count = b.Count
		}
		series = append(series, point)
	}
	return series, nil
}

// MethodBreakdown is the share of paid revenue attributed to one payment
// method.
type MethodBreakdown struct {
	Method     string       `json:"method"`
	Total      money.Amount `json:"total"`
	Count      int          `json:"count"`
	Percentage int          `json:"percentage"`
}

// PaymentMethods breaks paid revenue down by payment method. Invoices paid
// without a recorded method fall under "Direct Payment". Zero paid revenue
// yields an empty breakdown, never a division by zero.
func (s *Service) PaymentMethods(ctx context.Context, p auth.Principal) ([]MethodBreakdown, error) {
	totals, err := s.repo.PaymentTotals(ctx, auth.ScopeFor(p))
	if err != nil {
		return nil, err
	}

	var grand money.Amount
	for _, t := range totals {
		grand = grand.Add(t.Total)
	}

	out := make([]MethodBreakdown, 0, len(totals))
	for _, t := range totals {
		method := "Direct Payment"
		if t.Method != nil && *t.Method != "" {
			method = *t.Method
		}
		b := MethodBreakdown{Method: method, Total: t.Total, Count: t.Count}
		if grand > 0 {
			b.Percentage = int(math.Round(float64(t.Total) / float64(grand) * 100))
		}
		out = append(out, b)
	}
	return out, nil
}
