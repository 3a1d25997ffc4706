package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

const ownerPredicate = "patient_id IN (SELECT id FROM patients WHERE user_id = %s)"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const rxCols = `id, clinic_id, patient_id, doctor_id, consultation_id, medications,
	notes, status, dispensed_by, dispensed_at, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var meds []byte
	err := row.Scan(&p.ID, &p.ClinicID, &p.PatientID, &p.DoctorID, &p.ConsultationID,
		&meds, &p.Notes, &p.Status, &p.DispensedBy, &p.DispensedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meds, &p.Medications); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	if p.Status == "" {
		p.Status = StatusActive
	}
	meds, err := json.Marshal(p.Medications)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO prescriptions (id, clinic_id, patient_id, doctor_id, consultation_id,
			medications, notes, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.ClinicID, p.PatientID, p.DoctorID, p.ConsultationID, meds, p.Notes, p.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Prescription, error) {
	frag, args, _ := scope.Predicate("clinic_id", ownerPredicate, 2)
	query := `SELECT ` + rxCols + ` FROM prescriptions WHERE id = $1 AND ` + frag
	p, err := scanPrescription(r.pool.QueryRow(ctx, query, append([]any{id}, args...)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("prescription")
	}
	return p, err
}

func (r *repoPG) List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*Prescription, int, error) {
	frag, args, next := scope.Predicate("clinic_id", ownerPredicate, 1)
	conds := []string{frag}

	if f.PatientID != nil {
		conds = append(conds, fmt.Sprintf("patient_id = $%d", next))
		args = append(args, *f.PatientID)
		next++
	}
	if f.DoctorID != nil {
		conds = append(conds, fmt.Sprintf("doctor_id = $%d", next))
		args = append(args, *f.DoctorID)
		next++
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", next))
		args = append(args, f.Status)
		next++
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM prescriptions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		rxCols, where, next, next+1)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rxs []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		rxs = append(rxs, p)
	}
	return rxs, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Prescription) error {
	meds, err := json.Marshal(p.Medications)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE prescriptions SET medications=$2, notes=$3, updated_at=NOW()
		WHERE id = $1`,
		p.ID, meds, p.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("prescription")
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, dispensedBy *uuid.UUID) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if to == StatusDispensed {
		tag, err = r.pool.Exec(ctx, `
			UPDATE prescriptions SET status=$3, dispensed_by=$4, dispensed_at=NOW(), updated_at=NOW()
			WHERE id = $1 AND status = $2`,
			id, from, to, dispensedBy)
	} else {
		tag, err = r.pool.Exec(ctx, `
			UPDATE prescriptions SET status=$3, updated_at=NOW()
			WHERE id = $1 AND status = $2`,
			id, from, to)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("prescription")
	}
	return nil
}
