// Package capture holds the per-exchange state of the relay: the retained
// request body, the response metadata known once headers arrive, and the
// response buffer that accumulates captured body chunks.
//
// An Exchange is created when a request is admitted and travels with the
// request through its context. It is owned by the goroutine serving that
// exchange; response chunks for one exchange arrive sequentially, so the
// Exchange carries no locks.
//
// # Lifecycle
//
//	ex := capture.New(id, r.RemoteAddr, maxBytes)
//	ctx := capture.NewContext(r.Context(), ex)
//	...
//	ex.SetResponse(resp.Header.Get("Content-Type"), resp.Header.Get("Content-Encoding"))
//	ex.OnChunk(p, filter.IsNeed(ex.Host(), ex.ContentType()))
//	...
//	ex.Complete()
//	if payload, ok := ex.Payload(); ok {
//		pool.Submit(classify.Task{Payload: payload, Host: ex.Host()})
//	}
//
// The response buffer is created lazily on the first chunk that should be
// captured. Exchanges whose responses never match allocate nothing beyond
// the Exchange itself.
package capture
