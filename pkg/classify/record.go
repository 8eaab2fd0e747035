package classify

import (
	"encoding/hex"
	"encoding/json"
	"net/url"
	"time"

	"github.com/zeebo/blake3"
)

// Kind identifies the structure a record was recognized as.
type Kind string

// Undefined is the kind of a payload that matched no known structure.
// Undefined records are never published.
const Undefined Kind = "UNDEFINED"

// IsDefined reports whether k names a recognized structure.
func (k Kind) IsDefined() bool {
	return k != "" && k != Undefined
}

// Record is the typed outcome of classifying a captured payload.
type Record struct {
	// Identity
	ID         string `json:"id"`          // UUID v4
	ExchangeID string `json:"exchange_id"` // Exchange the payload was captured from

	Kind Kind `json:"kind"`

	// Origin
	Host       string    `json:"host"`
	Method     string    `json:"method,omitempty"`
	URI        string    `json:"uri"`
	CapturedAt time.Time `json:"captured_at"`

	// Request holds form fields parsed from the request body, if any.
	Request url.Values `json:"request,omitempty"`

	// Payload is the structured response document.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Digest is the hex BLAKE3 digest of the decoded response body.
	Digest string `json:"digest,omitempty"`

	// RawRequest and RawResponse are the request body and the decoded
	// response body. They are kept for sinks that store raw bodies.
	RawRequest  []byte `json:"-"`
	RawResponse []byte `json:"-"`
}

// UndefinedRecord returns a record of kind Undefined.
func UndefinedRecord() *Record {
	return &Record{Kind: Undefined}
}

// Digest returns the hex BLAKE3 digest of body.
func Digest(body []byte) string {
	sum := blake3.Sum256(body)
	return hex.EncodeToString(sum[:])
}
