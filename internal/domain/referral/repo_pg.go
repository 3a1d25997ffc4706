package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

const ownerPredicate = "patient_id IN (SELECT id FROM patients WHERE user_id = %s)"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const referralCols = `id, clinic_id, patient_id, referred_by, specialist_name, specialist_clinic,
	specialist_contact, reason, notes, urgency, status, created_at, updated_at`

func scanReferral(row pgx.Row) (*Referral, error) {
	var r Referral
	err := row.Scan(&r.ID, &r.ClinicID, &r.PatientID, &r.ReferredBy, &r.SpecialistName,
		&r.SpecialistClinic, &r.SpecialistContact, &r.Reason, &r.Notes, &r.Urgency,
		&r.Status, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (r *repoPG) Create(ctx context.Context, ref *Referral) error {
	ref.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO referrals (id, clinic_id, patient_id, referred_by, specialist_name,
			specialist_clinic, specialist_contact, reason, notes, urgency, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		ref.ID, ref.ClinicID, ref.PatientID, ref.ReferredBy, ref.SpecialistName,
		ref.SpecialistClinic, ref.SpecialistContact, ref.Reason, ref.Notes, ref.Urgency, ref.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Referral, error) {
	frag, args, _ := scope.Predicate("clinic_id", ownerPredicate, 2)
	query := `SELECT ` + referralCols + ` FROM referrals WHERE id = $1 AND ` + frag
	ref, err := scanReferral(r.pool.QueryRow(ctx, query, append([]any{id}, args...)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("referral")
	}
	return ref, err
}

func (r *repoPG) List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*Referral, int, error) {
	frag, args, next := scope.Predicate("clinic_id", ownerPredicate, 1)
	conds := []string{frag}

	if f.PatientID != nil {
		conds = append(conds, fmt.Sprintf("patient_id = $%d", next))
		args = append(args, *f.PatientID)
		next++
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", next))
		args = append(args, f.Status)
		next++
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM referrals WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM referrals WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		referralCols, where, next, next+1)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var refs []*Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, 0, err
		}
		refs = append(refs, ref)
	}
	return refs, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, ref *Referral) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE referrals SET specialist_name=$2, specialist_clinic=$3, specialist_contact=$4,
			reason=$5, notes=$6, urgency=$7, status=$8, updated_at=NOW()
		WHERE id = $1`,
		ref.ID, ref.SpecialistName, ref.SpecialistClinic, ref.SpecialistContact,
		ref.Reason, ref.Notes, ref.Urgency, ref.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("referral")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM referrals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("referral")
	}
	return nil
}
