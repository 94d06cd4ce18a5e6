package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID          string    `json:"id"`
	SalonID     string    `json:"salon_id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone,omitempty"`
	Service     string    `json:"service,omitempty"`
	Staff       StaffRef  `json:"staff_id"`
	Status      Status    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Duration is End - Start.
func (a Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// Blocking reports whether the appointment occupies its staff lane.
func (a Appointment) Blocking() bool {
	return a.Status != StatusCancelled
}

// DisplayTitle falls back to the service label when no title was given.
func DisplayTitle(title, service string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if s := strings.TrimSpace(service); s != "" {
		return s
	}
	return "Appointment"
}

// StaffRef is an optional reference to a staff member; the zero value is unassigned.
type StaffRef struct {
	id string
}

func Unassigned() StaffRef { return StaffRef{} }

func AssignedTo(id string) StaffRef {
	return StaffRef{id: strings.TrimSpace(id)}
}

func (r StaffRef) ID() (string, bool) {
	return r.id, r.id != ""
}

func (r StaffRef) IsAssigned() bool { return r.id != "" }

// Lane is the key appointments compete for: the staff id, or "" for the shared
// unassigned lane of a salon.
func (r StaffRef) Lane() string { return r.id }

func (r StaffRef) String() string {
	if r.id == "" {
		return "unassigned"
	}
	return r.id
}

func (r StaffRef) MarshalJSON() ([]byte, error) {
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

// UnmarshalJSON accepts null, a plain string, or the {"value": "..."} shape that
// select widgets post.
func (r *StaffRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Unassigned()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = AssignedTo(s)
		return nil
	case '{':
		var wrapped struct {
			Value *string `json:"value"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		if wrapped.Value == nil {
			*r = Unassigned()
			return nil
		}
		*r = AssignedTo(*wrapped.Value)
		return nil
	}
	return fmt.Errorf("staff reference: unsupported JSON %s", data)
}
