package producer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/whisperjob/kafka"
	"github.com/kbukum/whisperjob/logger"
)

type fakeWriter struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	msgs   []kafkago.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func newTestProducer(w *fakeWriter, retries int) *Producer {
	p := newProducer(w, retries, logger.NewNop())
	p.backoff = time.Millisecond
	return p
}

func TestNewProducerDisabled(t *testing.T) {
	if _, err := NewProducer(kafka.Config{Enabled: false}, logger.NewNop()); err == nil {
		t.Fatal("expected error for disabled kafka")
	}
}

func TestSendJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w, 3)

	err := p.SendJSON(context.Background(), "results", "job-1",
		map[string]string{"status": "COMPLETED"},
		map[string]string{kafka.HeaderJobID: "job-1"})
	if err != nil {
		t.Fatalf("SendJSON: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	m := kafka.FromKafkaMessage(w.msgs[0])
	if m.Topic != "results" || m.Key != "job-1" {
		t.Errorf("unexpected routing %q/%q", m.Topic, m.Key)
	}
	if m.Headers[kafka.HeaderContentType] != "application/json" || m.Headers[kafka.HeaderJobID] != "job-1" {
		t.Errorf("unexpected headers %v", m.Headers)
	}
	var body map[string]string
	if err := json.Unmarshal(m.Value, &body); err != nil || body["status"] != "COMPLETED" {
		t.Errorf("unexpected body %s (%v)", m.Value, err)
	}
}

func TestRetriesTransientErrors(t *testing.T) {
	w := &fakeWriter{errs: []error{kafkago.NotEnoughReplicas, errors.New("dial tcp: connection refused"), nil}}
	p := newTestProducer(w, 3)
	if err := p.WriteMessages(context.Background(), kafkago.Message{Value: []byte("x")}); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if w.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", w.calls)
	}
}

func TestDoesNotRetryPermanentErrors(t *testing.T) {
	w := &fakeWriter{errs: []error{kafkago.MessageSizeTooLarge}}
	p := newTestProducer(w, 3)
	err := p.WriteMessages(context.Background(), kafkago.Message{Value: []byte("x")})
	if !errors.Is(err, kafkago.MessageSizeTooLarge) {
		t.Fatalf("expected wrapped MessageSizeTooLarge, got %v", err)
	}
	if w.calls != 1 {
		t.Errorf("expected a single attempt, got %d", w.calls)
	}
}

func TestGivesUpAfterRetries(t *testing.T) {
	refused := errors.New("connection refused")
	w := &fakeWriter{errs: []error{refused, refused, refused, refused}}
	p := newTestProducer(w, 2)
	if err := p.WriteMessages(context.Background(), kafkago.Message{}); !errors.Is(err, refused) {
		t.Fatalf("expected last error, got %v", err)
	}
	if w.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", w.calls)
	}
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w, 1)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
	if err := p.WriteMessages(context.Background(), kafkago.Message{}); err == nil {
		t.Error("expected error writing to closed producer")
	}
}
