// Package proxy implements the relay's capturing reverse proxy.
//
// Handler forwards every admitted exchange byte-for-byte to its upstream and
// relays the response back unchanged. While the response streams through,
// each chunk is offered to the exchange's capture context; once the exchange
// completes, a matching capture is handed to the classification dispatcher
// without blocking the client.
//
// # Exchange Flow
//
//  1. Guard.Admit refuses non-loopback callers when restrict_to_loopback is
//     set (400, nothing is dialed)
//  2. CONNECT is refused with 405
//  3. The target is resolved: an absolute-form request URI is forwarded to
//     its own host, anything else goes to upstream.target
//  4. The request body is read once and kept on the exchange
//  5. Rewrite removes the sanitized headers and restores the inbound raw
//     query exactly
//  6. ModifyResponse wraps the body; EOF completes the exchange and any
//     other error aborts it
//  7. The capture predicate is evaluated again at completion and a
//     classify.Task is submitted
//
// # Upstream Proxy
//
// NewTransport builds the outbound transport. When upstream.use_proxy is
// set all outbound requests go through the configured HTTP proxy; a
// malformed host or port fails construction.
package proxy
