package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/salonhub/scheduling/libs/kafkax"
	"github.com/salonhub/scheduling/services/booking-service/internal/model"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestAppointmentEventPayload(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	appt := model.Appointment{
		ID: "a1", SalonID: "sa1", ClientName: "Anna", Start: start, End: start.Add(time.Hour),
		Staff: model.AssignedTo("s1"), Status: model.StatusConfirmed,
	}
	evt, err := AppointmentEvent(AppointmentCreated, appt, start)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if evt.AggregateID != "a1" || evt.SalonID != "sa1" || evt.EventType != AppointmentCreated {
		t.Fatalf("unexpected envelope %+v", evt)
	}

	var body map[string]any
	if err := json.Unmarshal(evt.Payload, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["staff_id"] != "s1" || body["status"] != "confirmed" {
		t.Fatalf("unexpected payload %s", evt.Payload)
	}

	del, _ := DeletedEvent("sa1", "a1", start)
	body = map[string]any{}
	json.Unmarshal(del.Payload, &body)
	if _, ok := body["start"]; ok {
		t.Fatalf("deleted event should not carry a time range: %s", del.Payload)
	}
	if body["staff_id"] != nil {
		t.Fatalf("deleted event staff should be null: %s", del.Payload)
	}
}

func TestMessageCarriesMetaAndTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	rec := Record{
		EventID:     "evt-1",
		EventType:   AppointmentUpdated,
		AggregateID: "a1",
		SalonID:     "sa1",
		Payload:     []byte(`{}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	msg := Message(context.Background(), rec)

	if msg.Topic != AppointmentUpdated || string(msg.Key) != "sa1" {
		t.Fatalf("unexpected routing topic=%s key=%s", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.SalonID != "sa1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != rec.Traceparent {
		t.Fatalf("trace context not propagated, got %q", got)
	}
}

func TestMessageKeyFallsBackToAggregate(t *testing.T) {
	msg := Message(context.Background(), Record{EventType: AppointmentDeleted, AggregateID: "a9"})
	if string(msg.Key) != "a9" {
		t.Fatalf("expected aggregate key, got %s", msg.Key)
	}
	var _ MessageWriter = (*kafka.Writer)(nil)
}
