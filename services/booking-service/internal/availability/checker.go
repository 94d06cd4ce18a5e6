package availability

import (
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

// Query describes a candidate slot. Callers must ensure End is after Start;
// the checker does not validate it.
type Query struct {
	Start     time.Time
	End       time.Time
	SalonID   string
	Staff     model.StaffRef
	ExcludeID string
}

// QueryFor builds the query that re-validates a stored appointment in place.
func QueryFor(a model.Appointment) Query {
	return Query{Start: a.Start, End: a.End, SalonID: a.SalonID, Staff: a.Staff, ExcludeID: a.ID}
}

// IsSlotAvailable scans appts of the query's salon and staff lane. Cancelled
// appointments and the excluded id never conflict.
func IsSlotAvailable(appts []model.Appointment, q Query) bool {
	for i := range appts {
		if competes(appts[i], q) {
			return false
		}
	}
	return true
}

// Conflicts returns every appointment that would collide with q.
func Conflicts(appts []model.Appointment, q Query) []model.Appointment {
	var out []model.Appointment
	for _, a := range appts {
		if competes(a, q) {
			out = append(out, a)
		}
	}
	return out
}

func competes(a model.Appointment, q Query) bool {
	if a.SalonID != q.SalonID || (q.ExcludeID != "" && a.ID == q.ExcludeID) {
		return false
	}
	if !a.Blocking() || a.Staff.Lane() != q.Staff.Lane() {
		return false
	}
	return Overlaps(a.Start, a.End, q.Start, q.End)
}

// Busy projects the lane's blocking appointments into intervals for AvailableSlots.
func Busy(appts []model.Appointment, salonID string, staff model.StaffRef) []Interval {
	var out []Interval
	for _, a := range appts {
		if a.SalonID != salonID || !a.Blocking() || a.Staff.Lane() != staff.Lane() {
			continue
		}
		out = append(out, Interval{Start: a.Start, End: a.End})
	}
	return out
}
