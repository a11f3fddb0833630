package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

func TestMessageConversion(t *testing.T) {
	now := time.Now()
	km := kafkago.Message{
		Topic:     "transcription.jobs",
		Partition: 2,
		Offset:    41,
		Key:       []byte("job-1"),
		Value:     []byte(`{"input":{}}`),
		Time:      now,
		Headers: []kafkago.Header{
			{Key: HeaderJobID, Value: []byte("job-1")},
			{Key: HeaderContentType, Value: []byte("application/json")},
		},
	}
	m := FromKafkaMessage(km)
	if m.Key != "job-1" || m.Partition != 2 || m.Offset != 41 || !m.Timestamp.Equal(now) {
		t.Errorf("unexpected message %+v", m)
	}
	if m.Headers[HeaderContentType] != "application/json" {
		t.Errorf("headers not copied: %v", m.Headers)
	}

	back := m.ToKafkaMessage()
	if string(back.Key) != "job-1" || string(back.Value) != `{"input":{}}` {
		t.Errorf("round trip lost data: %+v", back)
	}
	if len(back.Headers) != 2 || back.Headers[0].Key != HeaderContentType {
		t.Errorf("expected sorted headers, got %+v", back.Headers)
	}
}
