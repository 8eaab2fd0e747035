// Package testutil provides a scriptable upstream server for proxy tests.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Response scripts how the upstream answers a path.
type Response struct {
	StatusCode      int
	ContentType     string
	ContentEncoding string
	Headers         map[string]string

	// Chunks are written one by one with a flush after each, so the proxy
	// reads them as separate chunks.
	Chunks [][]byte

	// ChunkDelay is slept between chunks.
	ChunkDelay time.Duration

	// Truncate hijacks the connection after the chunks, so the proxy sees
	// an incomplete body.
	Truncate bool
}

// Request is what the upstream recorded about one request.
type Request struct {
	Method     string
	Host       string
	RequestURI string
	RawQuery   string
	Header     http.Header
	Body       []byte
}

// Upstream is an httptest server answering with scripted responses.
type Upstream struct {
	server    *httptest.Server
	mu        sync.Mutex
	responses map[string]Response
	requests  []Request
}

// NewUpstream starts an upstream server. Paths without a scripted response
// answer 200 with an empty text/plain body.
func NewUpstream() *Upstream {
	u := &Upstream{responses: make(map[string]Response)}
	u.server = httptest.NewServer(http.HandlerFunc(u.handler))
	return u
}

// URL returns the server's base URL.
func (u *Upstream) URL() string {
	return u.server.URL
}

// Close shuts the server down.
func (u *Upstream) Close() {
	u.server.Close()
}

// SetResponse scripts the response for path.
func (u *Upstream) SetResponse(path string, resp Response) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.responses[path] = resp
}

// Requests returns the requests received so far.
func (u *Upstream) Requests() []Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Request(nil), u.requests...)
}

// RequestCount returns the number of requests received.
func (u *Upstream) RequestCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

func (u *Upstream) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	u.mu.Lock()
	u.requests = append(u.requests, Request{
		Method:     r.Method,
		Host:       r.Host,
		RequestURI: r.RequestURI,
		RawQuery:   r.URL.RawQuery,
		Header:     r.Header.Clone(),
		Body:       body,
	})
	resp, ok := u.responses[r.URL.Path]
	u.mu.Unlock()

	if !ok {
		resp = Response{ContentType: "text/plain"}
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	if resp.ContentEncoding != "" {
		w.Header().Set("Content-Encoding", resp.ContentEncoding)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	rc := http.NewResponseController(w)
	for i, chunk := range resp.Chunks {
		if i > 0 && resp.ChunkDelay > 0 {
			time.Sleep(resp.ChunkDelay)
		}
		_, _ = w.Write(chunk)
		_ = rc.Flush()
	}

	if resp.Truncate {
		if conn, _, err := rc.Hijack(); err == nil {
			_ = conn.Close()
		}
	}
}
