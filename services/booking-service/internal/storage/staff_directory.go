package storage

import (
	"context"

	"github.com/salonhub/scheduling/libs/db"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
	"github.com/salonhub/scheduling/services/booking-service/internal/staff"
)

// StaffDirectory is the Postgres staff.Directory, a local copy of the staff
// profiles published by business-service.
type StaffDirectory struct {
	pool *db.Pool
}

func NewStaffDirectory(pool *db.Pool) *StaffDirectory {
	return &StaffDirectory{pool: pool}
}

var _ staff.Directory = (*StaffDirectory)(nil)

func (d *StaffDirectory) List(ctx context.Context, salonID string) ([]model.StaffResource, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, salon_id, name, color, work_start, work_end, active, visible_in_calendar
		FROM staff_resources
		WHERE salon_id = $1
		ORDER BY lower(name), id
	`, salonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StaffResource
	for rows.Next() {
		var s model.StaffResource
		if err := rows.Scan(&s.ID, &s.SalonID, &s.Name, &s.Color, &s.WorkStart, &s.WorkEnd, &s.Active, &s.VisibleInCalendar); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (d *StaffDirectory) Get(ctx context.Context, salonID, id string) (model.StaffResource, error) {
	var s model.StaffResource
	err := d.pool.QueryRow(ctx, `
		SELECT id, salon_id, name, color, work_start, work_end, active, visible_in_calendar
		FROM staff_resources
		WHERE salon_id = $1 AND id = $2
	`, salonID, id).Scan(&s.ID, &s.SalonID, &s.Name, &s.Color, &s.WorkStart, &s.WorkEnd, &s.Active, &s.VisibleInCalendar)
	if IsNotFound(err) {
		return model.StaffResource{}, staff.ErrNotFound
	}
	return s, err
}

func (d *StaffDirectory) Upsert(ctx context.Context, s model.StaffResource) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO staff_resources (id, salon_id, name, color, work_start, work_end, active, visible_in_calendar)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (salon_id, id)
		DO UPDATE SET name = EXCLUDED.name,
		              color = EXCLUDED.color,
		              work_start = EXCLUDED.work_start,
		              work_end = EXCLUDED.work_end,
		              active = EXCLUDED.active,
		              visible_in_calendar = EXCLUDED.visible_in_calendar,
		              updated_at = now()
	`, s.ID, s.SalonID, s.Name, s.Color, s.WorkStart, s.WorkEnd, s.Active, s.VisibleInCalendar)
	return err
}

func (d *StaffDirectory) SetVisible(ctx context.Context, salonID, id string, visible bool) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE staff_resources
		SET visible_in_calendar = $3, updated_at = now()
		WHERE salon_id = $1 AND id = $2
	`, salonID, id, visible)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return staff.ErrNotFound
	}
	return nil
}
