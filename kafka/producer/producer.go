// Package producer writes job outcomes to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/whisperjob/kafka"
	"github.com/kbukum/whisperjob/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer wraps a kafka-go Writer with TLS/SASL and bounded retries of
// transient failures.
type Producer struct {
	writer  messageWriter
	retries int
	backoff time.Duration
	log     *logger.Logger
	mu      sync.RWMutex
	closed  bool
}

// NewProducer creates a producer from cfg.
func NewProducer(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	transport, err := kafka.CreateTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}

	plog := log.WithComponent("kafka.producer")
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: kafka.ParseDuration(cfg.BatchTimeout),
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  kafka.ResolveCompression(cfg.Compression),
		WriteTimeout: kafka.ParseDuration(cfg.WriteTimeout),
		BatchBytes:   int64(cfg.MaxMessageBytes),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			plog.Error("writer: " + fmt.Sprintf(msg, args...))
		}),
	}
	plog.Info("Kafka producer initialized", logger.Fields(
		"brokers", cfg.Brokers,
		"compression", cfg.Compression,
	))
	return newProducer(w, cfg.Retries, plog), nil
}

func newProducer(w messageWriter, retries int, log *logger.Logger) *Producer {
	if retries <= 0 {
		retries = 1
	}
	return &Producer{writer: w, retries: retries, backoff: 100 * time.Millisecond, log: log}
}

// WriteMessages sends msgs, retrying transient failures with linear backoff.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("producer is closed")
	}

	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		lastErr = p.writer.WriteMessages(ctx, msgs...)
		if lastErr == nil {
			return nil
		}
		if !kafka.IsRetryableError(lastErr) || attempt == p.retries {
			break
		}
		p.log.Warn("Kafka write failed, retrying", logger.Fields(
			"attempt", attempt,
			"error", lastErr.Error(),
		))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * p.backoff):
		}
	}
	return fmt.Errorf("kafka write: %w", lastErr)
}

// SendJSON marshals value and writes it to topic under key.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value any, headers map[string]string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	h := map[string]string{kafka.HeaderContentType: "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	msg := kafka.Message{Topic: topic, Key: key, Value: data, Headers: h}
	return p.WriteMessages(ctx, msg.ToKafkaMessage())
}

// Close flushes pending writes and shuts the writer down.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	return p.writer.Close()
}
