package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinova/emr/internal/platform/auth"
	"github.com/clinova/emr/pkg/money"
)

// ListFilter narrows invoice listings.
type ListFilter struct {
	PatientID *uuid.UUID
	Status    Status
	Limit     int
	Offset    int
}

// SummaryRow holds the headline revenue aggregates for one scope.
// Outstanding counts stored overdue rows plus sent invoices past their
// due date; PendingCount excludes the past-due ones.
type SummaryRow struct {
	TotalRevenue  money.Amount `json:"total_revenue"`
	Outstanding   money.Amount `json:"outstanding"`
	PendingCount  int          `json:"pending_count"`
	PaidThisMonth money.Amount `json:"paid_this_month"`
}

// MonthBucket is one month's paid revenue. Months with no paid invoices
// are absent; callers zero-fill.
type MonthBucket struct {
	Year  int
	Month time.Month
	Total money.Amount
	Count int
}

// MethodTotal is the paid revenue attributed to one payment method.
// Method is nil when the invoice never recorded one.
type MethodTotal struct {
	Method *string
	Total  money.Amount
	Count  int
}

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*Invoice, int, error)
	// UpdateStatus applies a compare-and-swap on the status column and
	// reports whether the swap happened. A transition to paid also
	// records paid_at and, when non-nil, the payment method.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, paymentMethod *string) (bool, error)
	Summary(ctx context.Context, scope auth.Scope, now time.Time) (*SummaryRow, error)
	MonthlyRevenue(ctx context.Context, scope auth.Scope, from time.Time) ([]MonthBucket, error)
	PaymentTotals(ctx context.Context, scope auth.Scope) ([]MethodTotal, error)
}
