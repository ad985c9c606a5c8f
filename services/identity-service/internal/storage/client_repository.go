package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/agendly/agendly/libs/db"
	"github.com/agendly/agendly/services/identity-service/internal/model"
)

type ClientRepository struct {
	pool *db.Pool
}

func NewClientRepository(pool *db.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

const clientColumns = `
	c.id, c.account_id, c.professional_id, a.name, a.email, c.phone, c.notes, c.created_at`

func (r *ClientRepository) Insert(ctx context.Context, profile model.ClientProfile) (model.ClientProfile, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO client_profiles (id, account_id, professional_id, phone, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		profile.ID, profile.AccountID, profile.ProfessionalID, profile.Phone, profile.Notes,
	).Scan(&profile.CreatedAt)
	if err != nil {
		return model.ClientProfile{}, err
	}
	return profile, nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id string) (model.ClientProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM client_profiles c
		JOIN accounts a ON a.id = c.account_id
		WHERE c.id = $1`, id)
	return scanClient(row)
}

func (r *ClientRepository) ListForProfessional(ctx context.Context, professionalID string) ([]model.ClientProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM client_profiles c
		JOIN accounts a ON a.id = c.account_id
		WHERE c.professional_id = $1
		ORDER BY a.name`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClientProfile
	for rows.Next() {
		p, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ClientRepository) Update(ctx context.Context, profile model.ClientProfile) (model.ClientProfile, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE client_profiles SET phone = $2, notes = $3 WHERE id = $1`,
		profile.ID, profile.Phone, profile.Notes)
	if err != nil {
		return model.ClientProfile{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.ClientProfile{}, ErrNotFound
	}
	if profile.Name != "" {
		if _, err := r.pool.Exec(ctx, `
			UPDATE accounts SET name = $2 WHERE id = $1`,
			profile.AccountID, profile.Name); err != nil {
			return model.ClientProfile{}, err
		}
	}
	return r.GetByID(ctx, profile.ID)
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM client_profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClient(row pgx.Row) (model.ClientProfile, error) {
	var p model.ClientProfile
	err := row.Scan(&p.ID, &p.AccountID, &p.ProfessionalID, &p.Name, &p.Email, &p.Phone, &p.Notes, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ClientProfile{}, ErrNotFound
	}
	return p, err
}
