package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/agendly/agendly/libs/db"
	"github.com/agendly/agendly/services/booking-service/internal/booking"
	"github.com/agendly/agendly/services/booking-service/internal/model"
)

type ServiceRepository struct {
	pool *db.Pool
}

func NewServiceRepository(pool *db.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

const serviceColumns = `id, name, duration_minutes, price, professional_id, created_at`

func (r *ServiceRepository) GetByID(ctx context.Context, id string) (model.Service, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Service{}, booking.ErrServiceNotFound
		}
		return model.Service{}, err
	}
	return svc, nil
}

func (r *ServiceRepository) List(ctx context.Context) ([]model.Service, error) {
	return r.list(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY name`)
}

func (r *ServiceRepository) ListForProfessional(ctx context.Context, professionalID string) ([]model.Service, error) {
	return r.list(ctx, `
		SELECT `+serviceColumns+` FROM services
		WHERE professional_id = $1 ORDER BY name`, professionalID)
}

func (r *ServiceRepository) Insert(ctx context.Context, svc model.Service) (model.Service, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, name, duration_minutes, price, professional_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		svc.ID, svc.Name, svc.DurationMinutes, svc.Price, svc.ProfessionalID,
	).Scan(&svc.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	return svc, nil
}

func (r *ServiceRepository) Update(ctx context.Context, svc model.Service) (model.Service, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE services
		SET name = $2, duration_minutes = $3, price = $4
		WHERE id = $1
		RETURNING created_at`,
		svc.ID, svc.Name, svc.DurationMinutes, svc.Price,
	).Scan(&svc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Service{}, booking.ErrServiceNotFound
		}
		return model.Service{}, err
	}
	return svc, nil
}

// Delete refuses while appointments still reference the service; the FK is
// ON DELETE RESTRICT.
func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, codeForeignKeyViolation) {
			return booking.ErrServiceInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrServiceNotFound
	}
	return nil
}

func (r *ServiceRepository) list(ctx context.Context, sql string, args ...any) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func scanService(row pgx.Row) (model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.ProfessionalID, &s.CreatedAt)
	return s, err
}
