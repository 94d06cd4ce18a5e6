package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// EventMeta is the metadata carried as headers on every domain event.
type EventMeta struct {
	EventID   string
	EventType string
	SalonID   string
}

func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   HeaderValue(msg.Headers, "event_id"),
		EventType: HeaderValue(msg.Headers, "event_type"),
		SalonID:   HeaderValue(msg.Headers, "salon_id"),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

// Headers renders meta as Kafka headers, skipping empty values.
func (m EventMeta) Headers() []kafka.Header {
	var headers []kafka.Header
	for _, kv := range [][2]string{{"event_id", m.EventID}, {"event_type", m.EventType}, {"salon_id", m.SalonID}} {
		if kv[1] == "" {
			continue
		}
		headers = append(headers, kafka.Header{Key: kv[0], Value: []byte(kv[1])})
	}
	return headers
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
