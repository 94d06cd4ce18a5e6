package model

import "time"

// StaffBlockTime is a window during which a staff member cannot be booked.
// Dates are inclusive YYYY-MM-DD; times are HH:MM with EndTime exclusive.
type StaffBlockTime struct {
	ID        string    `json:"id"`
	SalonID   string    `json:"salon_id"`
	StaffID   string    `json:"staff_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}
