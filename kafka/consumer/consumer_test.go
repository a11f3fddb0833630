package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/whisperjob/errors"
	"github.com/kbukum/whisperjob/job"
	"github.com/kbukum/whisperjob/kafka"
	"github.com/kbukum/whisperjob/logger"
)

type fakeReader struct {
	msgs   chan kafkago.Message
	closed bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	select {
	case m := <-f.msgs:
		return m, nil
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	}
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestNewConsumerDisabled(t *testing.T) {
	if _, err := NewConsumer(kafka.Config{}, "jobs", logger.NewNop()); err == nil {
		t.Fatal("expected error for disabled kafka")
	}
}

func TestConsumeDeliversInOrderUntilCanceled(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafkago.Message, 3)}
	for i, v := range []string{"a", "b", "c"} {
		r.msgs <- kafkago.Message{Topic: "jobs", Offset: int64(i), Value: []byte(v)}
	}
	c := newConsumer(r, "jobs", "g", logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	handler := func(_ context.Context, m kafka.Message) error {
		got = append(got, string(m.Value))
		if len(got) == 2 {
			return errors.New("handler failure is logged, not fatal")
		}
		if len(got) == 3 {
			cancel()
		}
		return nil
	}

	err := AsRunner(c, handler).Consume(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("unexpected delivery %v", got)
	}
	if err := c.Close(); err != nil || !r.closed {
		t.Error("expected reader closed")
	}
}

type fakeProcessor struct {
	got []job.Job
	env job.Envelope
}

func (f *fakeProcessor) Process(_ context.Context, j job.Job) job.Envelope {
	f.got = append(f.got, j)
	return f.env
}

type sent struct {
	topic, key string
	value      any
	headers    map[string]string
}

type fakeResults struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeResults) SendJSON(_ context.Context, topic, key string, value any, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{topic, key, value, headers})
	return f.err
}

func TestJobHandlerPublishesOutcome(t *testing.T) {
	proc := &fakeProcessor{env: job.BuildEnvelope("hello", []job.WordRecord{{Text: "hello", Start: 0, End: 1}}, nil)}
	results := &fakeResults{}
	h := JobHandler(proc, results, "results", logger.NewNop())

	err := h(context.Background(), kafka.Message{
		Key:   "key-ignored",
		Value: []byte(`{"id":"job-7","input":{"audio_base64":"AAAA"}}`),
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(proc.got) != 1 || proc.got[0].ID != "job-7" {
		t.Fatalf("expected job-7 processed, got %+v", proc.got)
	}
	if len(results.sent) != 1 {
		t.Fatalf("expected one result, got %d", len(results.sent))
	}
	s := results.sent[0]
	if s.topic != "results" || s.key != "job-7" {
		t.Errorf("unexpected routing %s/%s", s.topic, s.key)
	}
	if s.headers[kafka.HeaderJobStatus] != job.StatusCompleted {
		t.Errorf("unexpected status header %v", s.headers)
	}
	out, ok := s.value.(job.Outcome)
	if !ok || out.Output.Transcript == nil || out.Output.Transcript.FullText != "hello" {
		t.Errorf("unexpected outcome %+v", s.value)
	}
}

func TestJobHandlerUsesMessageKeyAsID(t *testing.T) {
	proc := &fakeProcessor{env: job.BuildEnvelope("", nil, nil)}
	results := &fakeResults{}
	h := JobHandler(proc, results, "results", logger.NewNop())

	if err := h(context.Background(), kafka.Message{Key: "from-key", Value: []byte(`{"input":{"audio_base64":"AAAA"}}`)}); err != nil {
		t.Fatal(err)
	}
	if proc.got[0].ID != "from-key" || results.sent[0].key != "from-key" {
		t.Errorf("expected id from message key, got %q / %q", proc.got[0].ID, results.sent[0].key)
	}
}

func TestJobHandlerRejectsMalformedMessage(t *testing.T) {
	proc := &fakeProcessor{}
	results := &fakeResults{}
	h := JobHandler(proc, results, "results", logger.NewNop())

	err := h(context.Background(), kafka.Message{
		Headers: map[string]string{kafka.HeaderJobID: "hdr-1"},
		Value:   []byte(`not json`),
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(proc.got) != 0 {
		t.Error("malformed message must not reach the pipeline")
	}
	out := results.sent[0].value.(job.Outcome)
	if out.ID != "hdr-1" || out.Status != job.StatusFailed {
		t.Errorf("unexpected outcome %+v", out)
	}
	if out.Output.Failure.Code != string(apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %s", out.Output.Failure.Code)
	}

	data, _ := json.Marshal(out)
	var wire map[string]any
	_ = json.Unmarshal(data, &wire)
	if wire["status"] != "FAILED" {
		t.Errorf("unexpected wire form %s", data)
	}
}

func TestJobHandlerReturnsPublishError(t *testing.T) {
	proc := &fakeProcessor{env: job.BuildEnvelope("", nil, nil)}
	results := &fakeResults{err: errors.New("broker down")}
	h := JobHandler(proc, results, "results", logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := h(ctx, kafka.Message{Key: "j", Value: []byte(`{"input":{"audio_base64":"AAAA"}}`)})
	if err == nil || !errors.Is(err, results.err) {
		t.Fatalf("expected publish error, got %v", err)
	}
}
