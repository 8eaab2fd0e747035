package proxy

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"logbook-hq/relay/pkg/classify"
	"logbook-hq/relay/pkg/filter"
	"logbook-hq/relay/pkg/records"
)

// echoUpgradeServer answers every request with 101 and then echoes the
// first four bytes it receives on the upgraded connection.
func echoUpgradeServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "echo" {
			http.Error(w, "upgrade required", http.StatusUpgradeRequired)
			return
		}
		conn, rw, err := http.NewResponseController(w).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()

		fmt.Fprint(rw, "HTTP/1.1 101 Switching Protocols\r\nConnection: Upgrade\r\nUpgrade: echo\r\n\r\n")
		if err := rw.Flush(); err != nil {
			return
		}
		buf := make([]byte, 4)
		if _, err := io.ReadFull(rw, buf); err != nil {
			return
		}
		_, _ = conn.Write(buf)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandler_ForwardsProtocolUpgrade(t *testing.T) {
	upstream := echoUpgradeServer(t)
	target, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("parse upstream URL: %v", err)
	}

	f := filter.New(filter.Rules{ContentTypes: []string{"application/json"}})
	queue := records.NewMemoryQueue()
	dispatcher := &recordingDispatcher{
		inner: classify.Inline{Classifier: classify.NewClassifier(classify.NewRuleDecoder("", nil), queue, f, nil)},
	}
	h, err := NewHandler(Options{
		Guard:      NewGuard(true, nil),
		Filter:     f,
		Dispatcher: dispatcher,
		Target:     target,
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	relay := httptest.NewServer(h)
	t.Cleanup(relay.Close)

	conn, err := net.Dial("tcp", relay.Listener.Addr().String())
	if err != nil {
		t.Fatalf("dial relay: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	fmt.Fprint(conn, "GET /socket HTTP/1.1\r\nHost: relay.test\r\nConnection: Upgrade\r\nUpgrade: echo\r\n\r\n")

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		t.Fatalf("read upgrade response: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d, want 101", resp.StatusCode)
	}
	if got := resp.Header.Get("Upgrade"); got != "echo" {
		t.Errorf("Upgrade = %q, want echo", got)
	}

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("write upgraded stream: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(br, buf); err != nil {
		t.Fatalf("read upgraded stream: %v", err)
	}
	if string(buf) != "ping" {
		t.Errorf("echo = %q, want ping", buf)
	}

	if n := len(dispatcher.Tasks()); n != 0 {
		t.Errorf("tasks = %d, want 0 for an upgraded connection", n)
	}
}
