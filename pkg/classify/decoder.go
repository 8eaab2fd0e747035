package classify

// Decoder turns a captured (uri, request body, response body) triple into a
// record. request is nil when the request had no body; response has already
// had its Content-Encoding removed.
//
// A Decoder should return a record of kind Undefined for anything it does
// not recognize. Returned errors and panics are treated as a failed task.
type Decoder interface {
	Decode(uri string, request, response []byte) (*Record, error)
}

// DecoderFunc adapts an ordinary function to the Decoder interface.
type DecoderFunc func(uri string, request, response []byte) (*Record, error)

// Decode calls f(uri, request, response).
func (f DecoderFunc) Decode(uri string, request, response []byte) (*Record, error) {
	return f(uri, request, response)
}
