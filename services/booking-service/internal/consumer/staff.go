// Package consumer applies events from other services to booking's read models.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
	"github.com/salonhub/scheduling/services/booking-service/internal/staff"
	"github.com/segmentio/kafka-go"
)

const StaffUpdatedTopic = "business.staff.updated.v1"

// staffUpdated is published by business-service whenever a staff profile changes.
type staffUpdated struct {
	StaffID           string `json:"staff_id"`
	SalonID           string `json:"salon_id"`
	Name              string `json:"name"`
	Color             string `json:"color"`
	WorkStart         string `json:"work_start"`
	WorkEnd           string `json:"work_end"`
	Active            *bool  `json:"active"`
	VisibleInCalendar *bool  `json:"visible_in_calendar"`
}

// StaffUpdated upserts the staff member into dir. Missing flags keep the
// current value, or default to true for a new member.
func StaffUpdated(dir staff.Directory) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt staffUpdated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode staff event: %w", err)
		}
		evt.StaffID = strings.TrimSpace(evt.StaffID)
		evt.SalonID = strings.TrimSpace(evt.SalonID)
		if evt.StaffID == "" || evt.SalonID == "" {
			return fmt.Errorf("staff event missing staff_id or salon_id")
		}

		res := model.StaffResource{ID: evt.StaffID, SalonID: evt.SalonID, Active: true, VisibleInCalendar: true}
		if cur, err := dir.Get(ctx, evt.SalonID, evt.StaffID); err == nil {
			res = cur
		}
		res.Name = evt.Name
		res.Color = evt.Color
		res.WorkStart = evt.WorkStart
		res.WorkEnd = evt.WorkEnd
		if evt.Active != nil {
			res.Active = *evt.Active
		}
		if evt.VisibleInCalendar != nil {
			res.VisibleInCalendar = *evt.VisibleInCalendar
		}
		return dir.Upsert(ctx, res)
	}
}
