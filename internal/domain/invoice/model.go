package invoice

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinova/emr/pkg/money"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// transitions lists the legal status edges. sent→overdue is absent on
// purpose: overdue is derived from the due date, never requested by a
// caller. paid and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusDraft:   {StatusSent, StatusCancelled},
	StatusSent:    {StatusPaid, StatusCancelled},
	StatusOverdue: {StatusPaid, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Item is one invoice line. Amount is frozen at creation as
// Quantity × Rate.
type Item struct {
	Description string       `json:"description"`
	Quantity    int64        `json:"quantity"`
	Rate        money.Amount `json:"rate"`
	Amount      money.Amount `json:"amount"`
}

// Invoice is a bill issued by a clinic against one patient. Monetary
// fields are computed once at creation and never recomputed.
type Invoice struct {
	ID            uuid.UUID    `json:"id"`
	ClinicID      uuid.UUID    `json:"clinic_id"`
	PatientID     uuid.UUID    `json:"patient_id"`
	InvoiceNumber string       `json:"invoice_number"`
	Items         []Item       `json:"items"`
	Subtotal      money.Amount `json:"subtotal"`
	TaxRate       float64      `json:"tax_rate"`
	Tax           money.Amount `json:"tax"`
	Discount      money.Amount `json:"discount"`
	Total         money.Amount `json:"total"`
	Status        Status       `json:"status"`
	PaymentMethod *string      `json:"payment_method"`
	InvoiceDate   time.Time    `json:"invoice_date"`
	DueDate       *time.Time   `json:"due_date"`
	PaidAt        *time.Time   `json:"paid_at"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// EffectiveStatus derives the caller-visible status: a sent invoice past
// its due date reads as overdue without a stored transition.
func (inv *Invoice) EffectiveStatus(now time.Time) Status {
	if inv.Status == StatusSent && inv.DueDate != nil && inv.DueDate.Before(now) {
		return StatusOverdue
	}
	return inv.Status
}
