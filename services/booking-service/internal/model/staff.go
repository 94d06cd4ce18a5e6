package model

// StaffResource is the calendar's read-only view of a staff member.
type StaffResource struct {
	ID                string `json:"id"`
	SalonID           string `json:"salon_id"`
	Name              string `json:"name"`
	Color             string `json:"color,omitempty"`
	WorkStart         string `json:"work_start"`
	WorkEnd           string `json:"work_end"`
	Active            bool   `json:"active"`
	VisibleInCalendar bool   `json:"visible_in_calendar"`
}

// Schedulable reports whether the resource gets a calendar column.
func (s StaffResource) Schedulable() bool {
	return s.Active && s.VisibleInCalendar
}
