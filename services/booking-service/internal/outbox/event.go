package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/salonhub/scheduling/services/booking-service/internal/model"
)

// Topic names equal event types: one topic per event.
const (
	AppointmentCreated = "booking.appointment.created.v1"
	AppointmentUpdated = "booking.appointment.updated.v1"
	AppointmentDeleted = "booking.appointment.deleted.v1"

	aggregateAppointment = "appointment"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	SalonID       string
	Payload       []byte
}

type appointmentPayload struct {
	AppointmentID string       `json:"appointment_id"`
	SalonID       string       `json:"salon_id"`
	StaffID       *string      `json:"staff_id"`
	ClientName    string       `json:"client_name,omitempty"`
	Service       string       `json:"service,omitempty"`
	Start         time.Time    `json:"start,omitzero"`
	End           time.Time    `json:"end,omitzero"`
	Status        model.Status `json:"status,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

// AppointmentEvent snapshots appt for eventType.
func AppointmentEvent(eventType string, appt model.Appointment, at time.Time) (Event, error) {
	p := appointmentPayload{
		AppointmentID: appt.ID,
		SalonID:       appt.SalonID,
		ClientName:    appt.ClientName,
		Service:       appt.Service,
		Start:         appt.Start,
		End:           appt.End,
		Status:        appt.Status,
		OccurredAt:    at.UTC(),
	}
	if id, ok := appt.Staff.ID(); ok {
		p.StaffID = &id
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return Event{
		AggregateType: aggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		SalonID:       appt.SalonID,
		Payload:       payload,
	}, nil
}

// DeletedEvent carries only the identity of the removed appointment.
func DeletedEvent(salonID, appointmentID string, at time.Time) (Event, error) {
	return AppointmentEvent(AppointmentDeleted, model.Appointment{ID: appointmentID, SalonID: salonID}, at)
}
