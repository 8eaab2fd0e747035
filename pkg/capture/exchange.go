package capture

import (
	"bytes"
	"context"
	"time"
)

// state is the completion state of an exchange.
type state uint8

const (
	statePending state = iota
	stateComplete
	stateAborted
)

// String returns the state name used in logs and metrics.
func (s state) String() string {
	switch s {
	case stateComplete:
		return "complete"
	case stateAborted:
		return "aborted"
	default:
		return "pending"
	}
}

// Exchange is the capture context of one in-flight HTTP exchange.
type Exchange struct {
	id         string
	remoteAddr string
	started    time.Time

	method      string
	host        string
	uri         string
	requestBody []byte
	hasRequest  bool

	contentType     string
	contentEncoding string

	buffer     *bytes.Buffer
	maxBytes   int64
	overflowed bool
	chunks     int

	state state
}

// New creates the capture context for an exchange. A maxBytes of zero or
// less means the response buffer is unbounded.
func New(id, remoteAddr string, maxBytes int64) *Exchange {
	return &Exchange{
		id:         id,
		remoteAddr: remoteAddr,
		started:    time.Now(),
		maxBytes:   maxBytes,
	}
}

// ID returns the exchange identifier.
func (e *Exchange) ID() string { return e.id }

// RemoteAddr returns the client address the exchange arrived from.
func (e *Exchange) RemoteAddr() string { return e.remoteAddr }

// Started returns the time the exchange was admitted.
func (e *Exchange) Started() time.Time { return e.started }

// SetTarget records the outbound method, host (without port) and request
// URI once the target has been resolved.
func (e *Exchange) SetTarget(method, host, uri string) {
	e.method = method
	e.host = host
	e.uri = uri
}

// Method returns the request method.
func (e *Exchange) Method() string { return e.method }

// Host returns the outbound host name, without port.
func (e *Exchange) Host() string { return e.host }

// URI returns the outbound request URI (path and raw query).
func (e *Exchange) URI() string { return e.uri }

// SetRequestBody retains the request body. A nil body is retained as an
// empty, present body; use no call at all for a request without one.
func (e *Exchange) SetRequestBody(body []byte) {
	if body == nil {
		body = []byte{}
	}
	e.requestBody = body
	e.hasRequest = true
}

// RequestBody returns the retained request body and whether one exists.
func (e *Exchange) RequestBody() ([]byte, bool) {
	return e.requestBody, e.hasRequest
}

// SetResponse records the response headers relevant to capture.
func (e *Exchange) SetResponse(contentType, contentEncoding string) {
	e.contentType = contentType
	e.contentEncoding = contentEncoding
}

// ContentType returns the response Content-Type header value, or "" until
// the response headers have arrived.
func (e *Exchange) ContentType() string { return e.contentType }

// ContentEncoding returns the response Content-Encoding header value.
func (e *Exchange) ContentEncoding() string { return e.contentEncoding }

// OnChunk offers one response body chunk to the exchange. need is the
// capture predicate evaluated for this chunk. When it is true the chunk is
// appended to the response buffer, which is created on the first such chunk.
// p is copied; the caller may reuse it.
//
// Once the buffer would exceed the configured cap the capture is dropped and
// later chunks are ignored. Chunks arriving after the exchange completed or
// aborted are ignored.
func (e *Exchange) OnChunk(p []byte, need bool) {
	if !need || len(p) == 0 || e.overflowed || e.state != statePending {
		return
	}

	if e.maxBytes > 0 && int64(e.Captured()+len(p)) > e.maxBytes {
		e.overflowed = true
		e.buffer = nil
		return
	}

	if e.buffer == nil {
		e.buffer = new(bytes.Buffer)
	}
	e.buffer.Write(p)
	e.chunks++
}

// Captured returns the number of response bytes captured so far.
func (e *Exchange) Captured() int {
	if e.buffer == nil {
		return 0
	}
	return e.buffer.Len()
}

// Chunks returns the number of chunks appended to the response buffer.
func (e *Exchange) Chunks() int { return e.chunks }

// HasBuffer reports whether a response buffer has been created.
func (e *Exchange) HasBuffer() bool { return e.buffer != nil }

// Overflowed reports whether the capture was dropped for exceeding the cap.
func (e *Exchange) Overflowed() bool { return e.overflowed }

// Complete marks the response as fully received. It has no effect on an
// aborted exchange.
func (e *Exchange) Complete() {
	if e.state == statePending {
		e.state = stateComplete
	}
}

// Abort marks the exchange as aborted and discards any captured bytes.
// An aborted exchange never yields a payload.
func (e *Exchange) Abort() {
	e.state = stateAborted
	e.buffer = nil
}

// Completed reports whether the response completed normally.
func (e *Exchange) Completed() bool { return e.state == stateComplete }

// Aborted reports whether the exchange was aborted.
func (e *Exchange) Aborted() bool { return e.state == stateAborted }

// State returns "pending", "complete" or "aborted".
func (e *Exchange) State() string { return e.state.String() }

type contextKey struct{}

// NewContext returns a copy of ctx carrying the exchange.
func NewContext(ctx context.Context, e *Exchange) context.Context {
	return context.WithValue(ctx, contextKey{}, e)
}

// FromContext returns the exchange carried by ctx, if any.
func FromContext(ctx context.Context) (*Exchange, bool) {
	e, ok := ctx.Value(contextKey{}).(*Exchange)
	return e, ok && e != nil
}
