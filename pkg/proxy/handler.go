package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"logbook-hq/relay/pkg/capture"
	"logbook-hq/relay/pkg/classify"
	"logbook-hq/relay/pkg/filter"
	"logbook-hq/relay/pkg/telemetry/logging"
	"logbook-hq/relay/pkg/telemetry/metrics"
	"logbook-hq/relay/pkg/telemetry/tracing"
)

// Exchange outcomes reported to metrics.
const (
	OutcomeForwarded        = "forwarded"
	OutcomeCaptured         = "captured"
	OutcomeAborted          = "aborted"
	OutcomeUpstreamError    = "upstream_error"
	OutcomeNoTarget         = "no_target"
	OutcomeRejected         = "rejected"
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeBadRequest       = "bad_request"
)

// Options configures a Handler.
type Options struct {
	// Guard admits callers. Required.
	Guard *Guard

	// Filter is the capture predicate. Required.
	Filter *filter.Filter

	// Dispatcher receives completed captures. Required.
	Dispatcher classify.Dispatcher

	// Transport sends outbound requests. Nil uses a clone of
	// http.DefaultTransport with compression disabled.
	Transport http.RoundTripper

	// Target receives origin-form requests. Nil means only absolute-form
	// requests can be forwarded.
	Target *url.URL

	// MaxCaptureBytes caps one exchange's capture; zero means unbounded.
	MaxCaptureBytes int64

	// Metrics may be nil.
	Metrics *metrics.Collector

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handler is the capturing reverse proxy.
type Handler struct {
	guard      *Guard
	filter     *filter.Filter
	dispatcher classify.Dispatcher
	target     *url.URL
	maxBytes   atomic.Int64
	metrics    *metrics.Collector
	logger     *slog.Logger
	tracer     trace.Tracer
	proxy      *httputil.ReverseProxy
}

// NewHandler creates a handler and checks that the rewrite passes the query
// string through unchanged.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Guard == nil || opts.Filter == nil || opts.Dispatcher == nil {
		return nil, errors.New("proxy: guard, filter and dispatcher are required")
	}
	if opts.Target != nil && (opts.Target.Scheme == "" || opts.Target.Host == "") {
		return nil, fmt.Errorf("proxy: target %q must be an absolute URL", opts.Target)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DisableCompression = true
		transport = t
	}

	h := &Handler{
		guard:      opts.Guard,
		filter:     opts.Filter,
		dispatcher: opts.Dispatcher,
		target:     opts.Target,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "proxy"),
		tracer:     otel.Tracer(tracing.InstrumentationName),
	}
	h.maxBytes.Store(opts.MaxCaptureBytes)

	h.proxy = &httputil.ReverseProxy{
		Rewrite:        h.rewrite,
		Transport:      transport,
		ModifyResponse: h.modifyResponse,
		ErrorHandler:   h.errorHandler,
		ErrorLog:       slog.NewLogLogger(h.logger.Handler(), slog.LevelWarn),
		FlushInterval:  -1,
	}

	if err := h.VerifyQueryPassthrough(); err != nil {
		return nil, err
	}
	return h, nil
}

// SetMaxCaptureBytes changes the capture cap for later exchanges.
func (h *Handler) SetMaxCaptureBytes(n int64) {
	h.maxBytes.Store(n)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if err := h.guard.Admit(ctx, r.RemoteAddr); err != nil {
		h.logger.WarnContext(ctx, "exchange rejected", "remote_addr", r.RemoteAddr, "error", err)
		h.metrics.RecordRejection(rejectionReason(err))
		h.metrics.RecordExchange(r.Method, OutcomeRejected, time.Since(start))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodConnect {
		h.metrics.RecordExchange(r.Method, OutcomeMethodNotAllowed, time.Since(start))
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	target, err := h.resolveTarget(r)
	if err != nil {
		h.logger.WarnContext(ctx, "exchange has no target", "host", r.Host, "uri", r.RequestURI, "error", err)
		h.metrics.RecordExchange(r.Method, OutcomeNoTarget, time.Since(start))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	id := logging.GetExchangeID(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = logging.WithExchangeID(ctx, id)
	}

	ex := capture.New(id, r.RemoteAddr, h.maxBytes.Load())
	ex.SetTarget(r.Method, target.Hostname(), r.URL.RequestURI())

	ctx, span := h.tracer.Start(tracing.Extract(ctx, r.Header), "proxy.exchange",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(tracing.ExchangeAttributes(id, r.Method, ex.Host(), ex.URI())...),
	)
	defer span.End()

	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			h.logger.WarnContext(ctx, "failed to read request body", "error", err)
			tracing.SetStatus(span, err)
			h.metrics.RecordExchange(r.Method, OutcomeBadRequest, time.Since(start))
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		ex.SetRequestBody(body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
	}

	state := &exchangeState{target: target}
	ctx = withState(capture.NewContext(ctx, ex), state)

	defer func() {
		if rec := recover(); rec != nil {
			ex.Abort()
			span.SetAttributes(attribute.String(tracing.AttrOutcome, OutcomeAborted))
			h.metrics.RecordExchange(r.Method, OutcomeAborted, time.Since(start))
			panic(rec)
		}
	}()

	h.proxy.ServeHTTP(w, r.WithContext(ctx))

	outcome := h.finish(ctx, ex, state, span.SpanContext())
	span.SetAttributes(
		attribute.String(tracing.AttrOutcome, outcome),
		attribute.Bool(tracing.AttrCaptured, outcome == OutcomeCaptured),
	)
	tracing.SetStatus(span, state.upstreamErr)
	h.metrics.RecordExchange(r.Method, outcome, time.Since(start))
}

// resolveTarget returns the scheme and host the exchange is forwarded to.
func (h *Handler) resolveTarget(r *http.Request) (*url.URL, error) {
	if r.URL.IsAbs() {
		if r.URL.Host == "" || (r.URL.Scheme != "http" && r.URL.Scheme != "https") {
			return nil, fmt.Errorf("%w: unsupported request URI %q", ErrNoTarget, r.RequestURI)
		}
		return &url.URL{Scheme: r.URL.Scheme, Host: r.URL.Host}, nil
	}
	if h.target != nil {
		return h.target, nil
	}
	return nil, ErrNoTarget
}

// finish dispatches the capture of a completed exchange and returns the
// exchange outcome. The predicate is evaluated again here; its answer at
// completion decides whether the capture is dispatched.
func (h *Handler) finish(ctx context.Context, ex *capture.Exchange, state *exchangeState, link trace.SpanContext) string {
	switch {
	case state.upstreamErr != nil:
		return OutcomeUpstreamError
	case ex.Aborted():
		return OutcomeAborted
	case !ex.Completed():
		return OutcomeForwarded
	}

	if ex.Overflowed() {
		h.logger.DebugContext(ctx, "capture dropped", "reason", "overflow", "uri", ex.URI())
		h.metrics.RecordCaptureDropped("overflow")
		return OutcomeForwarded
	}

	if !h.filter.IsNeed(ex.Host(), ex.ContentType()) {
		if ex.HasBuffer() {
			h.metrics.RecordCaptureDropped("predicate")
		}
		return OutcomeForwarded
	}

	payload, ok := ex.Payload()
	if !ok {
		return OutcomeForwarded
	}

	h.metrics.RecordCapture(len(payload.ResponseBody))
	h.dispatcher.Submit(classify.Task{Payload: payload, Host: ex.Host(), Link: link})
	h.logger.DebugContext(ctx, "capture dispatched",
		"uri", payload.URI,
		"bytes", len(payload.ResponseBody),
		"chunks", ex.Chunks(),
	)
	return OutcomeCaptured
}

// rewrite builds the outbound request.
func (h *Handler) rewrite(pr *httputil.ProxyRequest) {
	state, _ := stateFrom(pr.In.Context())
	if state != nil && state.target != nil {
		pr.SetURL(state.target)
	}

	// httputil strips Forwarded together with the X-Forwarded headers;
	// only the sanitized set may be removed.
	if fwd, ok := pr.In.Header["Forwarded"]; ok {
		pr.Out.Header["Forwarded"] = append([]string(nil), fwd...)
	}
	SanitizeHeaders(pr.Out.Header)
	CorrectQuery(pr.Out, pr.In)
}

// modifyResponse records the response metadata and wraps the body so every
// chunk is offered to the capture. Upgraded connections are never captured;
// their body must stay the upstream's io.ReadWriteCloser.
func (h *Handler) modifyResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusSwitchingProtocols {
		return nil
	}
	ex, ok := capture.FromContext(resp.Request.Context())
	if !ok {
		return nil
	}
	ex.SetResponse(resp.Header.Get("Content-Type"), resp.Header.Get("Content-Encoding"))
	resp.Body = &captureBody{ReadCloser: resp.Body, ex: ex, filter: h.filter}
	return nil
}

// errorHandler answers 502 when the upstream cannot be reached.
func (h *Handler) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if ex, ok := capture.FromContext(ctx); ok {
		ex.Abort()
	}
	if state, ok := stateFrom(ctx); ok {
		state.upstreamErr = err
	}
	if errors.Is(err, context.Canceled) {
		h.logger.DebugContext(ctx, "exchange cancelled by client", "error", err)
	} else {
		h.logger.WarnContext(ctx, "upstream request failed", "host", r.URL.Host, "error", err)
	}
	w.WriteHeader(http.StatusBadGateway)
}

// captureBody offers every chunk read from the upstream body to the
// exchange. The predicate is consulted per chunk.
type captureBody struct {
	io.ReadCloser
	ex     *capture.Exchange
	filter *filter.Filter
}

func (b *captureBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.ex.OnChunk(p[:n], b.filter.IsNeed(b.ex.Host(), b.ex.ContentType()))
	}
	switch {
	case err == io.EOF:
		b.ex.Complete()
	case err != nil:
		b.ex.Abort()
	}
	return n, err
}

// exchangeState carries per-exchange proxy state through the request
// context.
type exchangeState struct {
	target      *url.URL
	upstreamErr error
}

type stateKey struct{}

func withState(ctx context.Context, s *exchangeState) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

func stateFrom(ctx context.Context) (*exchangeState, bool) {
	s, ok := ctx.Value(stateKey{}).(*exchangeState)
	return s, ok
}
