package appointment

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

// Appointments and consultations reference their owning user through the
// patient row.
const ownerPredicate = "patient_id IN (SELECT id FROM patients WHERE user_id = %s)"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const apptCols = `id, clinic_id, patient_id, doctor_id, scheduled_at, duration_minutes,
	reason, notes, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClinicID, &a.PatientID, &a.DoctorID, &a.ScheduledAt,
		&a.DurationMinutes, &a.Reason, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (id, clinic_id, patient_id, doctor_id, scheduled_at,
			duration_minutes, reason, notes, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.ClinicID, a.PatientID, a.DoctorID, a.ScheduledAt,
		a.DurationMinutes, a.Reason, a.Notes, a.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Appointment, error) {
	frag, args, _ := scope.Predicate("clinic_id", ownerPredicate, 2)
	query := `SELECT ` + apptCols + ` FROM appointments WHERE id = $1 AND ` + frag
	a, err := scanAppointment(r.pool.QueryRow(ctx, query, append([]any{id}, args...)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment")
	}
	return a, err
}

func (r *repoPG) List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*Appointment, int, error) {
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
	if f.From != nil {
		conds = append(conds, fmt.Sprintf("scheduled_at >= $%d", next))
		args = append(args, *f.From)
		next++
	}
	if f.To != nil {
		conds = append(conds, fmt.Sprintf("scheduled_at < $%d", next))
		args = append(args, *f.To)
		next++
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE %s ORDER BY scheduled_at LIMIT $%d OFFSET $%d`,
		apptCols, where, next, next+1)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appts = append(appts, a)
	}
	return appts, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments SET scheduled_at=$2, duration_minutes=$3, reason=$4, notes=$5, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.ScheduledAt, a.DurationMinutes, a.Reason, a.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE appointments SET status=$3, updated_at=NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

// =========== Consultations ===========

type consultationRepoPG struct{ pool *pgxpool.Pool }

func NewConsultationRepoPG(pool *pgxpool.Pool) ConsultationRepository {
	return &consultationRepoPG{pool: pool}
}

const consultCols = `id, clinic_id, appointment_id, patient_id, doctor_id,
	symptoms, diagnosis, treatment_plan, follow_up_at, created_at, updated_at`

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.ClinicID, &c.AppointmentID, &c.PatientID, &c.DoctorID,
		&c.Symptoms, &c.Diagnosis, &c.TreatmentPlan, &c.FollowUpAt, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *consultationRepoPG) Create(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO consultations (id, clinic_id, appointment_id, patient_id, doctor_id,
			symptoms, diagnosis, treatment_plan, follow_up_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.ClinicID, c.AppointmentID, c.PatientID, c.DoctorID,
		c.Symptoms, c.Diagnosis, c.TreatmentPlan, c.FollowUpAt)
	return err
}

func (r *consultationRepoPG) GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Consultation, error) {
	frag, args, _ := scope.Predicate("clinic_id", ownerPredicate, 2)
	query := `SELECT ` + consultCols + ` FROM consultations WHERE id = $1 AND ` + frag
	c, err := scanConsultation(r.pool.QueryRow(ctx, query, append([]any{id}, args...)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("consultation")
	}
	return c, err
}

func (r *consultationRepoPG) List(ctx context.Context, scope auth.Scope, f ConsultationFilter) ([]*Consultation, int, error) {
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
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM consultations WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM consultations WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		consultCols, where, next, next+1)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var consults []*Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, 0, err
		}
		consults = append(consults, c)
	}
	return consults, total, rows.Err()
}

func (r *consultationRepoPG) Update(ctx context.Context, c *Consultation) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE consultations SET symptoms=$2, diagnosis=$3, treatment_plan=$4, follow_up_at=$5, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Symptoms, c.Diagnosis, c.TreatmentPlan, c.FollowUpAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("consultation")
	}
	return nil
}
