package classify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"logbook-hq/relay/pkg/capture"
	"logbook-hq/relay/pkg/filter"
)

// memoryPublisher collects published records.
type memoryPublisher struct {
	mu      sync.Mutex
	records []*Record
	err     error
}

func (m *memoryPublisher) Enqueue(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryPublisher) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// countingObserver counts observer callbacks.
type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
	kinds    map[string]int
	detected []string
}

func newCountingObserver() *countingObserver {
	return &countingObserver{outcomes: map[string]int{}, kinds: map[string]int{}}
}

func (o *countingObserver) ObserveTask(outcome string, _ time.Duration) {
	o.mu.Lock()
	o.outcomes[outcome]++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveRecord(kind string) {
	o.mu.Lock()
	o.kinds[kind]++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveServerDetected(name string) {
	o.mu.Lock()
	o.detected = append(o.detected, name)
	o.mu.Unlock()
}

func (o *countingObserver) ObserveBacklog(int) {}

func portDecoder() Decoder {
	return NewRuleDecoder("svdata=", []Rule{{Kind: "PORT", Path: "/kcsapi/api_port/port", Match: MatchExact}})
}

func payload(uri, body string) *capture.Payload {
	return &capture.Payload{
		ExchangeID:   "ex-" + uri,
		Method:       "POST",
		URI:          uri,
		RequestBody:  []byte("api_token=abc"),
		ResponseBody: []byte(body),
		CapturedAt:   time.Now(),
	}
}

func TestClassifier_Published(t *testing.T) {
	pub := &memoryPublisher{}
	f := filter.New(filter.Rules{})
	obs := newCountingObserver()
	c := NewClassifier(portDecoder(), pub, f, obs)

	outcome, rec, err := c.Run(context.Background(), Task{
		Payload: payload("/kcsapi/api_port/port", `svdata={"api_result":1}`),
		Host:    "203.104.209.71",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome != Published {
		t.Fatalf("outcome = %v, want %v", outcome, Published)
	}

	if pub.Len() != 1 {
		t.Fatalf("published %d records, want 1", pub.Len())
	}
	if rec.ID == "" || rec.Kind != "PORT" || rec.Host != "203.104.209.71" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Digest != Digest([]byte(`svdata={"api_result":1}`)) {
		t.Errorf("Digest = %q", rec.Digest)
	}
	if got := f.ServerName(); got != "203.104.209.71" {
		t.Errorf("ServerName() = %q, want %q", got, "203.104.209.71")
	}
	if obs.outcomes["published"] != 1 || obs.kinds["PORT"] != 1 || len(obs.detected) != 1 {
		t.Errorf("observer = %+v", obs)
	}
}

func TestClassifier_UndefinedDiscarded(t *testing.T) {
	pub := &memoryPublisher{}
	f := filter.New(filter.Rules{})
	c := NewClassifier(portDecoder(), pub, f, nil)

	outcome, rec, err := c.Run(context.Background(), Task{
		Payload: payload("/kcs/resources/image.json", `{"frames":{}}`),
		Host:    "api.example",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome != Discarded || rec != nil {
		t.Fatalf("Run() = %v, %v; want Discarded, nil", outcome, rec)
	}
	if pub.Len() != 0 {
		t.Error("undefined payload must not be enqueued")
	}
	if f.IsServerDetected() {
		t.Error("undefined payload must not mutate filter state")
	}
}

func TestClassifier_DecoderPanic(t *testing.T) {
	pub := &memoryPublisher{}
	f := filter.New(filter.Rules{})
	c := NewClassifier(DecoderFunc(func(string, []byte, []byte) (*Record, error) {
		panic("decoder exploded")
	}), pub, f, nil)

	outcome, _, err := c.Run(context.Background(), Task{Payload: payload("/a", "{}"), Host: "api.example"})
	if outcome != Failed {
		t.Fatalf("outcome = %v, want Failed", outcome)
	}

	var taskErr *TaskError
	if !errors.As(err, &taskErr) || !taskErr.Panicked {
		t.Fatalf("error = %v, want panicked TaskError", err)
	}
	if pub.Len() != 0 || f.IsServerDetected() {
		t.Error("failed task must not publish or detect")
	}
}

func TestClassifier_DecoderError(t *testing.T) {
	boom := errors.New("boom")
	c := NewClassifier(DecoderFunc(func(string, []byte, []byte) (*Record, error) {
		return nil, boom
	}), &memoryPublisher{}, filter.New(filter.Rules{}), nil)

	outcome, _, err := c.Run(context.Background(), Task{Payload: payload("/a", "{}"), Host: "api.example"})
	if outcome != Failed || !errors.Is(err, boom) {
		t.Errorf("Run() = %v, %v; want Failed, boom", outcome, err)
	}
}

func TestClassifier_PublishError(t *testing.T) {
	pub := &memoryPublisher{err: errors.New("queue closed")}
	f := filter.New(filter.Rules{})
	c := NewClassifier(portDecoder(), pub, f, nil)

	outcome, _, err := c.Run(context.Background(), Task{
		Payload: payload("/kcsapi/api_port/port", `{}`),
		Host:    "api.example",
	})

	var taskErr *TaskError
	if outcome != Failed || !errors.As(err, &taskErr) || taskErr.Stage != StagePublish {
		t.Fatalf("Run() = %v, %v; want Failed publish error", outcome, err)
	}
	if f.IsServerDetected() {
		t.Error("unpublished record must not detect server")
	}
}

func TestClassifier_ContentEncoding(t *testing.T) {
	pub := &memoryPublisher{}
	c := NewClassifier(portDecoder(), pub, filter.New(filter.Rules{}), nil)

	p := payload("/kcsapi/api_port/port", "")
	p.ResponseBody = gzipBytes(t, []byte(`svdata={"api_result":1}`))
	p.ContentEncoding = "gzip"

	outcome, rec, err := c.Run(context.Background(), Task{Payload: p, Host: "api.example"})
	if err != nil || outcome != Published {
		t.Fatalf("Run() = %v, %v", outcome, err)
	}
	if string(rec.Payload) != `{"api_result":1}` {
		t.Errorf("Payload = %s", rec.Payload)
	}

	p = payload("/kcsapi/api_port/port", "not gzip")
	p.ContentEncoding = "gzip"
	outcome, _, err = c.Run(context.Background(), Task{Payload: p, Host: "api.example"})

	var taskErr *TaskError
	if outcome != Failed || !errors.As(err, &taskErr) || taskErr.Stage != StageContent {
		t.Errorf("corrupt body: Run() = %v, %v", outcome, err)
	}
}

func TestClassifier_ConcurrentDetection(t *testing.T) {
	pub := &memoryPublisher{}
	f := filter.New(filter.Rules{})
	c := NewClassifier(portDecoder(), pub, f, nil)

	const tasks = 50
	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = c.Run(context.Background(), Task{
				Payload: payload("/kcsapi/api_port/port", `{}`),
				Host:    fmt.Sprintf("host-%d.example", i),
			})
		}(i)
	}
	wg.Wait()

	first := f.ServerName()
	if first == "" {
		t.Fatal("expected a detected server")
	}
	if pub.Len() != tasks {
		t.Errorf("published %d records, want %d", pub.Len(), tasks)
	}

	_, _, _ = c.Run(context.Background(), Task{Payload: payload("/kcsapi/api_port/port", `{}`), Host: "late.example"})
	if f.ServerName() != first {
		t.Errorf("ServerName changed from %q to %q", first, f.ServerName())
	}
}
