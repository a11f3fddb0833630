package kafka

import (
	"context"
	"sort"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Header names set on result messages.
const (
	HeaderContentType = "content-type"
	HeaderJobID       = "job-id"
	HeaderJobStatus   = "job-status"
)

// Message is a transport-neutral view of a Kafka record.
type Message struct {
	Key       string
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string
}

// MessageHandler processes one consumed message. A returned error is logged
// and the consumer moves on.
type MessageHandler func(ctx context.Context, msg Message) error

// FromKafkaMessage converts a kafka-go record.
func FromKafkaMessage(msg kafkago.Message) Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Headers:   headers,
	}
}

// ToKafkaMessage converts back to a kafka-go record. Headers are emitted in
// key order.
func (m Message) ToKafkaMessage() kafkago.Message {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(m.Headers[k])})
	}
	return kafkago.Message{
		Key:     []byte(m.Key),
		Value:   m.Value,
		Topic:   m.Topic,
		Time:    m.Timestamp,
		Headers: headers,
	}
}
