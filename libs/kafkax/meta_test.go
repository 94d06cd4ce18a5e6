package kafkax

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestEventMetaRoundTripThroughHeaders(t *testing.T) {
	meta := EventMeta{EventID: "evt-1", EventType: "booking.appointment.created.v1", SalonID: "sa1"}
	msg := kafka.Message{Topic: meta.EventType, Headers: meta.Headers()}

	got := ExtractEventMeta(msg)
	if got != meta {
		t.Fatalf("expected %+v, got %+v", meta, got)
	}
}

func TestExtractEventMetaFallsBackToKeyAndTopic(t *testing.T) {
	got := ExtractEventMeta(kafka.Message{Topic: "business.staff.updated.v1", Key: []byte("staff-9")})
	if got.EventID != "staff-9" || got.EventType != "business.staff.updated.v1" {
		t.Fatalf("unexpected meta %+v", got)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers("kafka-1:9092, ,kafka-2:9092")
	if len(got) != 2 || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}
