package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/whisperjob/component"
	"github.com/kbukum/whisperjob/logger"
)

// ProducerCloser is satisfied by any producer that can be closed.
type ProducerCloser interface {
	Close() error
}

// ConsumerRunner is satisfied by any consumer that can run a consume loop.
type ConsumerRunner interface {
	Consume(ctx context.Context) error
	Close() error
	Topic() string
}

// Component owns the consumers and the producer and implements
// component.Component. Consumers stop before the producer closes so
// in-flight results still get written.
type Component struct {
	cfg       Config
	log       *logger.Logger
	producer  ProducerCloser
	consumers []ConsumerRunner
	cancelFn  context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool

	// probe checks broker reachability; replaced in tests.
	probe func(ctx context.Context, cfg *Config) error
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a Kafka component for the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	if log == nil {
		log = logger.NewNop()
	}
	return &Component{
		cfg:   cfg,
		log:   log.WithComponent("kafka"),
		probe: probeBroker,
	}
}

// SetProducer injects the producer. Must be called before Start.
func (c *Component) SetProducer(p ProducerCloser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producer = p
}

// AddConsumer injects a consumer. Must be called before Start.
func (c *Component) AddConsumer(cr ConsumerRunner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, cr)
}

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// Start runs every consumer loop in its own goroutine.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	// Consumers outlive the start context; Stop cancels them.
	consumeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelFn = cancel

	for _, cr := range c.consumers {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := cr.Consume(consumeCtx); err != nil && !errors.Is(err, context.Canceled) {
				c.log.Error("Consumer stopped with error", logger.Fields(
					"topic", cr.Topic(),
					"error", err.Error(),
				))
			}
		}()
	}

	c.running = true
	c.log.Info("Kafka component started", logger.Fields("consumers", len(c.consumers)))
	return nil
}

// Stop cancels the consumers, waits for in-flight jobs, then closes
// consumers and the producer.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}

	c.log.Info("Kafka component stopping")
	if c.cancelFn != nil {
		c.cancelFn()
	}
	c.wg.Wait()

	var errs []error
	for _, cr := range c.consumers {
		if err := cr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer %s: %w", cr.Topic(), err))
		}
	}
	c.consumers = nil
	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close producer: %w", err))
		}
		c.producer = nil
	}
	c.running = false
	return errors.Join(errs...)
}

// Health dials the first broker.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	cfg := c.cfg
	c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !running {
		h.Status, h.Message = component.StatusUnhealthy, "kafka not started"
		return h
	}
	if err := c.probe(ctx, &cfg); err != nil {
		h.Status, h.Message = component.StatusDegraded, err.Error()
	}
	return h
}

func probeBroker(ctx context.Context, cfg *Config) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}
	dialer, err := CreateDialer(cfg)
	if err != nil {
		return fmt.Errorf("dialer: %w", err)
	}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("broker unreachable: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("broker metadata: %w", err)
	}
	return nil
}
