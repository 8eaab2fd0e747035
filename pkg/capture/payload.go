package capture

import "time"

// Payload is the immutable snapshot of a captured exchange handed to
// classification. It has not been decoded yet.
type Payload struct {
	// ExchangeID correlates the payload with the exchange's log lines.
	ExchangeID string

	// Method and URI describe the request. URI holds the path and raw query.
	Method string
	URI    string

	// RequestBody is the request body, or nil when the request had none.
	RequestBody []byte

	// ResponseBody is the captured response body exactly as received, still
	// encoded according to ContentEncoding.
	ResponseBody []byte

	ContentType     string
	ContentEncoding string

	// CapturedAt is the time the response completed.
	CapturedAt time.Time
}

// HasRequestBody reports whether the request carried a body.
func (p *Payload) HasRequestBody() bool {
	return p.RequestBody != nil
}

// Payload builds the payload of a completed exchange and releases the
// exchange's buffer to it. It returns false when the exchange has no
// captured bytes, was aborted, has not completed, or has already yielded
// its payload. The false path does not allocate.
func (e *Exchange) Payload() (*Payload, bool) {
	if e.buffer == nil || e.buffer.Len() == 0 || e.state != stateComplete {
		return nil, false
	}

	p := &Payload{
		ExchangeID:      e.id,
		Method:          e.method,
		URI:             e.uri,
		ResponseBody:    e.buffer.Bytes(),
		ContentType:     e.contentType,
		ContentEncoding: e.contentEncoding,
		CapturedAt:      time.Now(),
	}
	if e.hasRequest {
		p.RequestBody = e.requestBody
	}

	e.buffer = nil
	e.requestBody = nil
	return p, true
}
