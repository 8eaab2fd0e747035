package classify

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedEncoding is returned for a Content-Encoding that cannot be
// decoded.
var ErrUnsupportedEncoding = errors.New("unsupported content encoding")

// zstdDecoder is shared; zstd.Decoder is safe for concurrent DecodeAll.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("classify: zstd decoder initialization failed: " + err.Error())
	}
}

// DecodeContent removes the codings listed in a Content-Encoding header
// value from body. Codings are undone in reverse order of application. An
// empty value or "identity" returns body unchanged.
func DecodeContent(body []byte, contentEncoding string) ([]byte, error) {
	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))

		var err error
		switch coding {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			body, err = readAll(gzip.NewReader(bytes.NewReader(body)))
		case "deflate":
			body, err = inflate(body)
		case "zstd":
			body, err = zstdDecoder.DecodeAll(body, nil)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, coding)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s content: %w", coding, err)
		}
	}
	return body, nil
}

// inflate decodes an HTTP "deflate" body. Servers send either a zlib
// stream, as the RFC requires, or a bare deflate stream.
func inflate(body []byte) ([]byte, error) {
	if out, err := readAll(zlib.NewReader(bytes.NewReader(body))); err == nil {
		return out, nil
	}
	return readAll(flate.NewReader(bytes.NewReader(body)), nil)
}

// readAll drains and closes r. It accepts the (reader, error) pair returned
// by the gzip and zlib constructors.
func readAll(r io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
