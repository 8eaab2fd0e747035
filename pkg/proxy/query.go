package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// CorrectQuery makes the outbound query byte-identical to the inbound raw
// query. Any query merged in from the target URL is discarded, so an absent
// inbound query stays absent and a bare "?" stays bare.
func CorrectQuery(out, in *http.Request) {
	out.URL.RawQuery = in.URL.RawQuery
	out.URL.ForceQuery = in.URL.ForceQuery
}

// passthroughProbe is a raw query the rewrite must carry unchanged. It
// mixes raw UTF-8, percent escapes in both cases and reserved characters.
const passthroughProbe = "q=検索&a=%e3%81%82&b=%2F&c=x+y&d=;&e"

// VerifyQueryPassthrough runs the handler's rewrite on a probe request and
// returns ErrQueryPassthrough if the outbound request line would not carry
// the probe query unchanged.
func (h *Handler) VerifyQueryPassthrough() error {
	in := &http.Request{
		Method: http.MethodGet,
		URL:    &url.URL{Scheme: "http", Host: "probe.invalid", Path: "/probe", RawQuery: passthroughProbe},
		Header: make(http.Header),
		Host:   "probe.invalid",
	}
	in = in.WithContext(withState(in.Context(), &exchangeState{
		target: &url.URL{Scheme: "http", Host: "probe.invalid"},
	}))

	// net/http/httputil drops query parameters it cannot parse before
	// Rewrite runs; start from an empty outbound query so the result
	// depends on the rewrite alone.
	pr := &httputil.ProxyRequest{In: in, Out: in.Clone(in.Context())}
	pr.Out.URL.RawQuery = ""
	h.rewrite(pr)

	if pr.Out.URL.RawQuery != passthroughProbe {
		return fmt.Errorf("%w: got %q", ErrQueryPassthrough, pr.Out.URL.RawQuery)
	}
	if want := "/probe?" + passthroughProbe; pr.Out.URL.RequestURI() != want {
		return fmt.Errorf("%w: request URI %q", ErrQueryPassthrough, pr.Out.URL.RequestURI())
	}
	return nil
}
