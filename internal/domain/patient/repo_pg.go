package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const patientCols = `id, clinic_id, user_id, name, email, phone, date_of_birth, gender,
	address, blood_group, medical_history, emergency_contact, insurance, status,
	created_at, updated_at`

// Patients carry the owning user directly on the row.
const ownerPredicate = "user_id = %s"

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var history, contact, insurance []byte
	err := row.Scan(&p.ID, &p.ClinicID, &p.UserID, &p.Name, &p.Email, &p.Phone,
		&p.DateOfBirth, &p.Gender, &p.Address, &p.BloodGroup,
		&history, &contact, &insurance, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.MedicalHistory); err != nil {
			return nil, fmt.Errorf("decode medical history: %w", err)
		}
	}
	if len(contact) > 0 {
		if err := json.Unmarshal(contact, &p.EmergencyContact); err != nil {
			return nil, fmt.Errorf("decode emergency contact: %w", err)
		}
	}
	if len(insurance) > 0 {
		if err := json.Unmarshal(insurance, &p.Insurance); err != nil {
			return nil, fmt.Errorf("decode insurance: %w", err)
		}
	}
	return &p, nil
}

func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.Status == "" {
		p.Status = StatusActive
	}

	history, err := json.Marshal(p.MedicalHistory)
	if err != nil {
		return fmt.Errorf("encode medical history: %w", err)
	}
	var contact, insurance []byte
	if p.EmergencyContact != nil {
		if contact, err = marshalJSONB(p.EmergencyContact); err != nil {
			return fmt.Errorf("encode emergency contact: %w", err)
		}
	}
	if p.Insurance != nil {
		if insurance, err = marshalJSONB(p.Insurance); err != nil {
			return fmt.Errorf("encode insurance: %w", err)
		}
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO patients (id, clinic_id, user_id, name, email, phone, date_of_birth, gender,
			address, blood_group, medical_history, emergency_contact, insurance, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.ClinicID, p.UserID, p.Name, p.Email, p.Phone, p.DateOfBirth, p.Gender,
		p.Address, p.BloodGroup, history, contact, insurance, p.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Patient, error) {
	frag, args, _ := scope.Predicate("clinic_id", ownerPredicate, 2)
	query := `SELECT ` + patientCols + ` FROM patients WHERE id = $1 AND ` + frag
	p, err := scanPatient(r.pool.QueryRow(ctx, query, append([]any{id}, args...)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("patient")
	}
	return p, err
}

func (r *repoPG) List(ctx context.Context, scope auth.Scope, f ListFilter) ([]*Patient, int, error) {
	frag, args, next := scope.Predicate("clinic_id", ownerPredicate, 1)
	conds := []string{frag}

	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", next))
		args = append(args, f.Status)
		next++
	}
	if f.Search != "" {
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", next, next, next))
		args = append(args, "%"+f.Search+"%")
		next++
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM patients WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`,
		patientCols, where, next, next+1)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	history, err := json.Marshal(p.MedicalHistory)
	if err != nil {
		return fmt.Errorf("encode medical history: %w", err)
	}
	var contact, insurance []byte
	if p.EmergencyContact != nil {
		if contact, err = marshalJSONB(p.EmergencyContact); err != nil {
			return fmt.Errorf("encode emergency contact: %w", err)
		}
	}
	if p.Insurance != nil {
		if insurance, err = marshalJSONB(p.Insurance); err != nil {
			return fmt.Errorf("encode insurance: %w", err)
		}
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET name=$2, email=$3, phone=$4, date_of_birth=$5, gender=$6,
			address=$7, blood_group=$8, medical_history=$9, emergency_contact=$10,
			insurance=$11, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Email, p.Phone, p.DateOfBirth, p.Gender,
		p.Address, p.BloodGroup, history, contact, insurance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient")
	}
	return nil
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE patients SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient")
	}
	return nil
}
