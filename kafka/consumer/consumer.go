// Package consumer runs the job consume loop on a kafka-go Reader.
package consumer

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/whisperjob/kafka"
	"github.com/kbukum/whisperjob/logger"
)

const maxBackoff = 30 * time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// Consumer reads one topic in a consumer group. Messages are handled one at
// a time, so a worker never runs two jobs at once.
type Consumer struct {
	reader   messageReader
	topic    string
	groupID  string
	log      *logger.Logger
	failures int
}

// NewConsumer creates a consumer for topic.
func NewConsumer(cfg kafka.Config, topic string, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}

	dialer, err := kafka.CreateDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}

	clog := log.WithComponent("kafka.consumer")
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          cfg.MaxMessageBytes,
		SessionTimeout:    kafka.ParseDuration(cfg.SessionTimeout),
		HeartbeatInterval: kafka.ParseDuration(cfg.HeartbeatInterval),
		RebalanceTimeout:  kafka.ParseDuration(cfg.RebalanceTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+fmt.Sprintf(msg, args...), logger.Fields("topic", topic))
		}),
	})

	clog.Info("Kafka consumer initialized", logger.Fields(
		"topic", topic,
		"group_id", cfg.GroupID,
		"brokers", cfg.Brokers,
	))
	return newConsumer(reader, topic, cfg.GroupID, clog), nil
}

func newConsumer(r messageReader, topic, groupID string, log *logger.Logger) *Consumer {
	return &Consumer{reader: r, topic: topic, groupID: groupID, log: log}
}

// Consume reads messages until ctx is canceled, calling handler for each.
// Handler errors are logged; read errors back off linearly up to 30s.
func (c *Consumer) Consume(ctx context.Context, handler kafka.MessageHandler) error {
	c.log.Info("Starting consume loop", logger.Fields("topic", c.topic, "group_id", c.groupID))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := c.backoff(ctx, err); err != nil {
				return err
			}
			continue
		}
		c.failures = 0

		if err := handler(ctx, kafka.FromKafkaMessage(msg)); err != nil {
			c.log.Error("Message processing failed", logger.Fields(
				"error", err.Error(),
				"topic", msg.Topic,
				"offset", msg.Offset,
			))
		}
	}
}

func (c *Consumer) backoff(ctx context.Context, err error) error {
	c.failures++
	if c.failures <= 3 {
		c.log.Error("Kafka read error", logger.Fields(
			"error", err.Error(),
			"failures", c.failures,
			"topic", c.topic,
		))
	}
	wait := time.Duration(c.failures) * time.Second
	if wait > maxBackoff {
		wait = maxBackoff
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// Topic returns the consumed topic.
func (c *Consumer) Topic() string { return c.topic }

// Close shuts down the reader.
func (c *Consumer) Close() error {
	c.log.Info("Kafka consumer closing", logger.Fields("topic", c.topic))
	return c.reader.Close()
}
