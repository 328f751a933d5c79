package kafkax

import (
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
)

// EventMeta identifies a consumed message in logs and spans.
type EventMeta struct {
	EventID   string
	EventType string
	Topic     string
	Partition int
	Offset    int64
}

// ExtractEventMeta reads the event_id/event_type headers, falling back to the
// message key and topic.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   HeaderValue(msg.Headers, "event_id"),
		EventType: HeaderValue(msg.Headers, "event_type"),
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

func (m EventMeta) LogAttrs() []any {
	return []any{
		"event_id", m.EventID,
		"event_type", m.EventType,
		slog.Group("kafka", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset),
	}
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
