package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agendly/agendly/libs/db"
	"github.com/agendly/agendly/services/booking-service/internal/booking"
	"github.com/agendly/agendly/services/booking-service/internal/model"
)

// AppointmentRepository persists appointments. The table carries a snapshot
// of the service duration so the exclusion constraint can compute the booked
// range; display fields come from the service join on reads.
type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

const appointmentColumns = `
	a.id, a.client_id, a.professional_id, a.service_id, a.start_time,
	a.duration_minutes, a.client_name, a.created_at, s.name`

func (r *AppointmentRepository) Insert(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, client_id, professional_id, service_id, start_time, duration_minutes, client_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		appt.ID, appt.ClientID, appt.ProfessionalID, appt.ServiceID,
		appt.StartTime, appt.ServiceDuration, appt.ClientName,
	).Scan(&appt.CreatedAt)
	if err != nil {
		if isPgError(err, codeExclusionViolation) {
			return model.Appointment{}, booking.ErrScheduleConflict
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.id = $1`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, booking.ErrAppointmentNotFound
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET client_id = $2, service_id = $3, start_time = $4, duration_minutes = $5, client_name = $6
		WHERE id = $1
		RETURNING created_at`,
		appt.ID, appt.ClientID, appt.ServiceID, appt.StartTime, appt.ServiceDuration, appt.ClientName,
	).Scan(&appt.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return model.Appointment{}, booking.ErrAppointmentNotFound
		case isPgError(err, codeExclusionViolation):
			return model.Appointment{}, booking.ErrScheduleConflict
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) ListDayForProfessional(ctx context.Context, professionalID string, dayStart, dayEnd time.Time) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.professional_id = $1 AND a.start_time >= $2 AND a.start_time < $3
		ORDER BY a.start_time`, professionalID, dayStart, dayEnd)
}

func (r *AppointmentRepository) ListDayForClient(ctx context.Context, clientID string, dayStart, dayEnd time.Time) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.client_id = $1 AND a.start_time >= $2 AND a.start_time < $3
		ORDER BY a.start_time`, clientID, dayStart, dayEnd)
}

func (r *AppointmentRepository) ListDay(ctx context.Context, dayStart, dayEnd time.Time) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.start_time >= $1 AND a.start_time < $2
		ORDER BY a.start_time`, dayStart, dayEnd)
}

func (r *AppointmentRepository) ListForClient(ctx context.Context, clientID string, from *time.Time) ([]model.Appointment, error) {
	if from != nil {
		return r.list(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments a
			JOIN services s ON s.id = a.service_id
			WHERE a.client_id = $1 AND a.start_time >= $2
			ORDER BY a.start_time`, clientID, *from)
	}
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.client_id = $1
		ORDER BY a.start_time`, clientID)
}

func (r *AppointmentRepository) SummaryForProfessional(ctx context.Context, professionalID string, from, to time.Time) (int, int, []model.ServiceUsage, error) {
	var total, totalMinutes int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(duration_minutes), 0)
		FROM appointments
		WHERE professional_id = $1 AND start_time >= $2 AND start_time <= $3`,
		professionalID, from, to,
	).Scan(&total, &totalMinutes)
	if err != nil {
		return 0, 0, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT a.service_id, s.name, COUNT(*)
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.professional_id = $1 AND a.start_time >= $2 AND a.start_time <= $3
		GROUP BY a.service_id, s.name
		ORDER BY COUNT(*) DESC, s.name`,
		professionalID, from, to)
	if err != nil {
		return 0, 0, nil, err
	}
	defer rows.Close()

	var usage []model.ServiceUsage
	for rows.Next() {
		var u model.ServiceUsage
		if err := rows.Scan(&u.ServiceID, &u.ServiceName, &u.Count); err != nil {
			return 0, 0, nil, err
		}
		usage = append(usage, u)
	}
	return total, totalMinutes, usage, rows.Err()
}

func (r *AppointmentRepository) list(ctx context.Context, sql string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID, &a.ClientID, &a.ProfessionalID, &a.ServiceID, &a.StartTime,
		&a.ServiceDuration, &a.ClientName, &a.CreatedAt, &a.ServiceName,
	)
	return a, err
}
