package classify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"logbook-hq/relay/pkg/capture"
)

// Outcome is the terminal state of a classification task.
type Outcome int

const (
	// Published means the record was recognized and enqueued.
	Published Outcome = iota + 1

	// Discarded means the payload decoded to Undefined, or the task was
	// submitted after the pool closed.
	Discarded

	// Failed means decoding or publishing failed.
	Failed
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Published:
		return "published"
	case Discarded:
		return "discarded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Task is one captured payload awaiting classification.
type Task struct {
	Payload *capture.Payload
	Host    string

	// Link is the span of the exchange that produced the payload. Tasks
	// outlive their exchange, so the task span links to it instead of
	// being its child.
	Link trace.SpanContext
}

// Publisher receives recognized records. records.Queue implementations
// satisfy it.
type Publisher interface {
	Enqueue(ctx context.Context, rec *Record) error
}

// Detector holds the detected server identity. filter.Filter satisfies it.
type Detector interface {
	IsServerDetected() bool
	TryDetect(name string) bool
}

// Observer is notified of task results. metrics.Collector satisfies it.
// A nil Observer is allowed.
type Observer interface {
	ObserveTask(outcome string, duration time.Duration)
	ObserveRecord(kind string)
	ObserveServerDetected(name string)
	ObserveBacklog(n int)
}

// Classifier runs classification tasks. It is safe for concurrent use.
type Classifier struct {
	decoder   Decoder
	publisher Publisher
	detector  Detector
	observer  Observer
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewClassifier creates a Classifier. observer may be nil.
func NewClassifier(decoder Decoder, publisher Publisher, detector Detector, observer Observer) *Classifier {
	return &Classifier{
		decoder:   decoder,
		publisher: publisher,
		detector:  detector,
		observer:  observer,
		tracer:    otel.Tracer("logbook-hq/relay/classify"),
		logger:    slog.Default().With("component", "classify"),
	}
}

// Run classifies one task. It returns the published record for the
// Published outcome and a *TaskError for Failed. Run never panics.
func (c *Classifier) Run(ctx context.Context, task Task) (outcome Outcome, rec *Record, err error) {
	start := time.Now()
	exchangeID := ""
	if task.Payload != nil {
		exchangeID = task.Payload.ExchangeID
	}

	opts := []trace.SpanStartOption{
		trace.WithAttributes(
			attribute.String("relay.exchange_id", exchangeID),
			attribute.String("relay.host", task.Host),
		),
	}
	if task.Link.IsValid() {
		opts = append(opts, trace.WithLinks(trace.Link{SpanContext: task.Link}))
	}
	ctx, span := c.tracer.Start(ctx, "classify.task", opts...)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in classification task",
				"exchange_id", exchangeID,
				"error", r,
				"stack", string(debug.Stack()),
			)
			outcome, rec = Failed, nil
			err = &TaskError{ExchangeID: exchangeID, Stage: StageDecode, Panicked: true, Cause: fmt.Errorf("%v", r)}
		}

		span.SetAttributes(attribute.String("relay.outcome", outcome.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if c.observer != nil {
			c.observer.ObserveTask(outcome.String(), time.Since(start))
		}
	}()

	if task.Payload == nil {
		return Discarded, nil, nil
	}
	p := task.Payload

	body, err := DecodeContent(p.ResponseBody, p.ContentEncoding)
	if err != nil {
		c.logger.Warn("failed to decode captured content",
			"exchange_id", exchangeID,
			"content_encoding", p.ContentEncoding,
			"error", err,
		)
		return Failed, nil, &TaskError{ExchangeID: exchangeID, Stage: StageContent, Cause: err}
	}

	decoded, err := c.decoder.Decode(p.URI, p.RequestBody, body)
	if err != nil {
		c.logger.Warn("decoder failed",
			"exchange_id", exchangeID,
			"uri", p.URI,
			"error", err,
		)
		return Failed, nil, &TaskError{ExchangeID: exchangeID, Stage: StageDecode, Cause: err}
	}

	if decoded == nil || !decoded.Kind.IsDefined() {
		c.logger.Debug("payload discarded",
			"exchange_id", exchangeID,
			"uri", p.URI,
		)
		return Discarded, nil, nil
	}

	decoded.ID = uuid.New().String()
	decoded.ExchangeID = exchangeID
	decoded.Host = task.Host
	decoded.Method = p.Method
	decoded.URI = p.URI
	decoded.CapturedAt = p.CapturedAt
	decoded.Digest = Digest(body)
	decoded.RawRequest = p.RequestBody
	decoded.RawResponse = body

	if err := c.publisher.Enqueue(ctx, decoded); err != nil {
		c.logger.Error("failed to publish record",
			"exchange_id", exchangeID,
			"kind", decoded.Kind,
			"error", err,
		)
		return Failed, nil, &TaskError{ExchangeID: exchangeID, Stage: StagePublish, Cause: err}
	}

	if c.observer != nil {
		c.observer.ObserveRecord(string(decoded.Kind))
	}

	if !c.detector.IsServerDetected() && c.detector.TryDetect(task.Host) {
		c.logger.Info("server detected", "server", task.Host, "exchange_id", exchangeID)
		if c.observer != nil {
			c.observer.ObserveServerDetected(task.Host)
		}
	}

	c.logger.Debug("record published",
		"exchange_id", exchangeID,
		"record_id", decoded.ID,
		"kind", decoded.Kind,
	)
	return Published, decoded, nil
}
