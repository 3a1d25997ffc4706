package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

const ownerPredicate = "patient_id IN (SELECT id FROM patients WHERE user_id = %s)"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const invoiceCols = `id, clinic_id, patient_id, invoice_number, subtotal_cents, tax_rate,
	tax_cents, discount_cents, total_cents, status, payment_method, invoice_date,
	due_date, paid_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.InvoiceNumber,
		&inv.Subtotal, &inv.TaxRate, &inv.Tax, &inv.Discount, &inv.Total,
		&inv.Status, &inv.PaymentMethod, &inv.InvoiceDate, &inv.DueDate,
		&inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt)
	return &inv, err
}

func (r *repoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO invoices (id, clinic_id, patient_id, invoice_number, subtotal_cents,
			tax_rate, tax_cents, discount_cents, total_cents, status, payment_method,
			invoice_date, due_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		inv.ID, inv.ClinicID, inv.PatientID, inv.InvoiceNumber, inv.Subtotal,
		inv.TaxRate, inv.Tax, inv.Discount, inv.Total, inv.Status, inv.PaymentMethod,
		inv.InvoiceDate, inv.DueDate)
	if err != nil {
		return err
	}

	for pos, it := range inv.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, position, description, quantity, rate_cents, amount_cents)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			inv.ID, pos, it.Description, it.Quantity, it.Rate, it.Amount)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *repoPG) loadItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT invoice_id, description, quantity, rate_cents, amount_cents
		FROM invoice_items WHERE invoice_id = ANY($1) ORDER BY invoice_id, position`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]Item, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var it Item
		if err := rows.Scan(&id, &it.Description, &it.Quantity, &it.Rate, &it.Amount); err != nil {
			return nil, err
		}
		items[id] = append(items[id], it)
	}
	return items, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Invoice, error) {
	frag, args, _ := scope.Predicate("clinic_id", ownerPredicate, 2)
	query := `SELECT ` + invoiceCols + ` FROM invoices WHERE id = $1 AND ` + frag
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, append([]any{id}, args...)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("invoice")
	}
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, []uuid.UUID{inv.ID})
	if err != nil {
		return nil, err
	}
	inv.Items = items[inv.ID]
	return inv, nil
}

func (r *repoPG) List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*Invoice, int, error) {
	frag, args, next := scope.Predicate("clinic_id", ownerPredicate, 1)
	conds := []string{frag}

	if f.PatientID != nil {
		conds = append(conds, fmt.Sprintf("patient_id = $%d", next))
		args = append(args, *f.PatientID)
		next++
	}
	// sent and overdue filter on the effective status: a stored 'sent' row
	// past its due date is overdue to callers and must match accordingly.
	switch f.Status {
	case "":
	case StatusSent:
		conds = append(conds, "(status = 'sent' AND (due_date IS NULL OR due_date >= NOW()))")
	case StatusOverdue:
		conds = append(conds, "(status = 'overdue' OR (status = 'sent' AND due_date < NOW()))")
	default:
		conds = append(conds, fmt.Sprintf("status = $%d", next))
		args = append(args, f.Status)
		next++
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY invoice_date DESC LIMIT $%d OFFSET $%d`,
		invoiceCols, where, next, next+1)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invs []*Invoice
	var ids []uuid.UUID
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invs = append(invs, inv)
		ids = append(ids, inv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, inv := range invs {
			inv.Items = items[inv.ID]
		}
	}
	return invs, total, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, paymentMethod *string) (bool, error) {
	if to == StatusPaid {
		tag, err := r.pool.Exec(ctx, `
			UPDATE invoices SET status=$3, payment_method=COALESCE($4, payment_method),
				paid_at=NOW(), updated_at=NOW()
			WHERE id = $1 AND status = $2`,
			id, from, to, paymentMethod)
		if err != nil {
			return false, err
		}
		return tag.RowsAffected() == 1, nil
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices SET status=$3, updated_at=NOW()
		WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Summary(ctx context.Context, scope auth.Scope, now time.Time) (*SummaryRow, error) {
	frag, args, next := scope.Predicate("clinic_id", ownerPredicate, 1)

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)
	query := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(total_cents) FILTER (WHERE status = 'paid'), 0),
			COALESCE(SUM(total_cents) FILTER (WHERE status = 'overdue'
				OR (status = 'sent' AND due_date < $%d)), 0),
			COUNT(*) FILTER (WHERE status = 'sent' AND (due_date IS NULL OR due_date >= $%d)),
			COALESCE(SUM(total_cents) FILTER (WHERE status = 'paid'
				AND invoice_date >= $%d AND invoice_date < $%d), 0)
		FROM invoices WHERE %s`, next, next, next+1, next+2, frag)
	args = append(args, now, monthStart, monthEnd)

	var s SummaryRow
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.TotalRevenue, &s.Outstanding, &s.PendingCount, &s.PaidThisMonth)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) MonthlyRevenue(ctx context.Context, scope auth.Scope, from time.Time) ([]MonthBucket, error) {
	frag, args, next := scope.Predicate("clinic_id", ownerPredicate, 1)
	query := fmt.Sprintf(`
		SELECT EXTRACT(YEAR FROM invoice_date)::int, EXTRACT(MONTH FROM invoice_date)::int,
			COALESCE(SUM(total_cents), 0), COUNT(*)
		FROM invoices
		WHERE %s AND status = 'paid' AND invoice_date >= $%d
		GROUP BY 1, 2 ORDER BY 1, 2`, frag, next)
	args = append(args, from)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []MonthBucket
	for rows.Next() {
		var b MonthBucket
		var month int
		if err := rows.Scan(&b.Year, &month, &b.Total, &b.Count); err != nil {
			return nil, err
		}
		b.Month = time.Month(month)
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (r *repoPG) PaymentTotals(ctx context.Context, scope auth.Scope) ([]MethodTotal, error) {
	frag, args, _ := scope.Predicate("clinic_id", ownerPredicate, 1)
	query := fmt.Sprintf(`
		SELECT payment_method, COALESCE(SUM(total_cents), 0), COUNT(*)
		FROM invoices
		WHERE %s AND status = 'paid'
		GROUP BY payment_method ORDER BY 2 DESC`, frag)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []MethodTotal
	for rows.Next() {
		var t MethodTotal
		if err := rows.Scan(&t.Method, &t.Total, &t.Count); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
