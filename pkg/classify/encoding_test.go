package classify

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zlibBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write(data)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func flateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write(data)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func TestDecodeContent(t *testing.T) {
	plain := []byte(`{"api_result":1,"api_data":"検索"}`)

	tests := []struct {
		name     string
		body     []byte
		encoding string
	}{
		{name: "none", body: plain, encoding: ""},
		{name: "identity", body: plain, encoding: "identity"},
		{name: "gzip", body: gzipBytes(t, plain), encoding: "gzip"},
		{name: "x-gzip upper case", body: gzipBytes(t, plain), encoding: "X-GZIP"},
		{name: "deflate zlib", body: zlibBytes(t, plain), encoding: "deflate"},
		{name: "deflate raw", body: flateBytes(t, plain), encoding: "deflate"},
		{name: "zstd", body: zstdBytes(t, plain), encoding: "zstd"},
		{name: "stacked", body: zstdBytes(t, gzipBytes(t, plain)), encoding: "gzip, zstd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeContent(tt.body, tt.encoding)
			if err != nil {
				t.Fatalf("DecodeContent() error = %v", err)
			}
			if !bytes.Equal(got, plain) {
				t.Errorf("DecodeContent() = %q, want %q", got, plain)
			}
		})
	}
}

func TestDecodeContent_Errors(t *testing.T) {
	if _, err := DecodeContent([]byte("x"), "br"); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("br: error = %v, want ErrUnsupportedEncoding", err)
	}
	if _, err := DecodeContent([]byte("not gzip"), "gzip"); err == nil {
		t.Error("corrupt gzip: expected error")
	}
}
