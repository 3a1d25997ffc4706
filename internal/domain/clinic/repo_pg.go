package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const clinicCols = `id, name, address, phone, email, super_admin_id, is_active, settings, created_at, updated_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	var settings []byte
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email,
		&c.SuperAdminID, &c.IsActive, &settings, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &c.Settings); err != nil {
			return nil, fmt.Errorf("decode clinic settings: %w", err)
		}
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Clinic) error {
	c.ID = uuid.New()
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("encode clinic settings: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO clinics (id, name, address, phone, email, super_admin_id, is_active, settings)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.Name, c.Address, c.Phone, c.Email, c.SuperAdminID, c.IsActive, settings)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, scope auth.Scope, id uuid.UUID) (*Clinic, error) {
	// Patients never resolve clinics through their ownership scope.
	if scope.Kind == auth.ScopeOwner {
		return nil, apperr.NotFound("clinic")
	}

	frag, args, _ := scope.Predicate("id", "", 2)
	query := `SELECT ` + clinicCols + ` FROM clinics WHERE id = $1 AND ` + frag
	c, err := scanClinic(r.pool.QueryRow(ctx, query, append([]any{id}, args...)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("clinic")
	}
	return c, err
}

func (r *repoPG) List(ctx context.Context, scope auth.Scope, limit, offset int) ([]*Clinic, int, error) {
	if scope.Kind == auth.ScopeOwner {
		return nil, 0, nil
	}

	frag, args, next := scope.Predicate("id", "", 1)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clinics WHERE `+frag, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM clinics WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`,
		clinicCols, frag, next, next+1)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clinics []*Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, 0, err
		}
		clinics = append(clinics, c)
	}
	return clinics, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, c *Clinic) error {
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("encode clinic settings: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE clinics SET name=$2, address=$3, phone=$4, email=$5, super_admin_id=$6, settings=$7, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Address, c.Phone, c.Email, c.SuperAdminID, settings)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("clinic")
	}
	return nil
}

func (r *repoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE clinics SET is_active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("clinic")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clinics WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("clinic")
	}
	return nil
}
