package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/salonhub/scheduling/libs/db"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
	"github.com/salonhub/scheduling/services/booking-service/internal/outbox"
	"github.com/salonhub/scheduling/services/booking-service/internal/store"
)

// AppointmentRepository is the Postgres store.Repository. Every write runs in
// one transaction that serializes on the (salon, staff lane) advisory lock,
// re-checks the lane, writes the row and its outbox event.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	now    func() time.Time
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo, now: time.Now}
}

var _ store.Repository = (*AppointmentRepository)(nil)

const appointmentColumns = `id::text, salon_id, title, start_time, end_time, client_name, client_phone,
	service, staff_id, status, notes, created_at, updated_at`

func (r *AppointmentRepository) List(ctx context.Context, salonID string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE salon_id = $1
		ORDER BY start_time ASC, id ASC
	`, salonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, salonID, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE salon_id = $1 AND id::text = $2
	`, salonID, id)
	appt, err := scanAppointment(row)
	if IsNotFound(err) {
		return model.Appointment{}, store.ErrNotFound
	}
	return appt, err
}

func (r *AppointmentRepository) Put(ctx context.Context, appt model.Appointment) error {
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || '/' || $2))`, appt.SalonID, appt.Staff.Lane()); err != nil {
			return fmt.Errorf("lock lane: %w", err)
		}

		if appt.Blocking() {
			var clash string
			err := tx.QueryRow(ctx, `
				SELECT id::text
				FROM appointments
				WHERE salon_id = $1
					AND staff_lane = $2
					AND status <> 'cancelled'
					AND id::text <> $3
					AND start_time < $5
					AND end_time > $4
				LIMIT 1
			`, appt.SalonID, appt.Staff.Lane(), appt.ID, appt.Start, appt.End).Scan(&clash)
			if err == nil {
				return store.ErrSlotConflict
			}
			if !IsNotFound(err) {
				return fmt.Errorf("check lane: %w", err)
			}
		}

		var inserted bool
		var staffID *string
		if id, ok := appt.Staff.ID(); ok {
			staffID = &id
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO appointments
				(id, salon_id, title, start_time, end_time, client_name, client_phone, service, staff_id, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				start_time = EXCLUDED.start_time,
				end_time = EXCLUDED.end_time,
				client_name = EXCLUDED.client_name,
				client_phone = EXCLUDED.client_phone,
				service = EXCLUDED.service,
				staff_id = EXCLUDED.staff_id,
				status = EXCLUDED.status,
				notes = EXCLUDED.notes,
				updated_at = EXCLUDED.updated_at
			WHERE appointments.salon_id = EXCLUDED.salon_id
			RETURNING (xmax = 0)
		`, appt.ID, appt.SalonID, appt.Title, appt.Start, appt.End, appt.ClientName, appt.ClientPhone,
			appt.Service, staffID, appt.Status, appt.Notes, appt.CreatedAt, appt.UpdatedAt).Scan(&inserted)
		if IsNotFound(err) {
			// id exists under another salon
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		eventType := outbox.AppointmentUpdated
		if inserted {
			eventType = outbox.AppointmentCreated
		}
		evt, err := outbox.AppointmentEvent(eventType, appt, r.now())
		if err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
	if IsConflict(err) {
		return store.ErrSlotConflict
	}
	return err
}

func (r *AppointmentRepository) Delete(ctx context.Context, salonID, id string) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var deleted string
		err := tx.QueryRow(ctx, `
			DELETE FROM appointments
			WHERE salon_id = $1 AND id::text = $2
			RETURNING id::text
		`, salonID, id).Scan(&deleted)
		if IsNotFound(err) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		evt, err := outbox.DeletedEvent(salonID, deleted, r.now())
		if err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		appt    model.Appointment
		staffID *string
		status  string
	)
	if err := row.Scan(
		&appt.ID,
		&appt.SalonID,
		&appt.Title,
		&appt.Start,
		&appt.End,
		&appt.ClientName,
		&appt.ClientPhone,
		&appt.Service,
		&staffID,
		&status,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	if staffID != nil {
		appt.Staff = model.AssignedTo(*staffID)
	}
	return appt, nil
}

// IsConflict matches the exclusion constraint that keeps a staff lane free of overlaps.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
