package filter

import (
	"mime"
	"strings"
	"sync/atomic"
)

// Rules configures the capture predicate.
type Rules struct {
	// Hosts lists host names of interest. An entry starting with "*." matches
	// any subdomain. Empty means any host.
	Hosts []string

	// ContentTypes lists media type patterns of interest: "type/subtype",
	// "type/*" or "*/*". Empty means any content type.
	ContentTypes []string

	// LockToDetectedServer restricts capture to the detected server once one
	// has been detected.
	LockToDetectedServer bool
}

// compiled is the matching form of Rules.
type compiled struct {
	anyHost   bool
	hosts     map[string]struct{}
	suffixes  []string
	anyType   bool
	types     map[string]struct{}
	prefixes  []string
	lockToSrv bool
}

func compile(r Rules) *compiled {
	c := &compiled{
		anyHost:   len(r.Hosts) == 0,
		hosts:     make(map[string]struct{}, len(r.Hosts)),
		anyType:   len(r.ContentTypes) == 0,
		types:     make(map[string]struct{}, len(r.ContentTypes)),
		lockToSrv: r.LockToDetectedServer,
	}

	for _, h := range r.Hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "*":
			c.anyHost = true
		case strings.HasPrefix(h, "*."):
			c.suffixes = append(c.suffixes, h[1:])
		case h != "":
			c.hosts[h] = struct{}{}
		}
	}

	for _, t := range r.ContentTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		switch {
		case t == "*/*":
			c.anyType = true
		case strings.HasSuffix(t, "/*"):
			c.prefixes = append(c.prefixes, t[:len(t)-1])
		case t != "":
			c.types[t] = struct{}{}
		}
	}

	return c
}

func (c *compiled) matchHost(host string) bool {
	if c.anyHost {
		return true
	}
	host = strings.ToLower(host)
	if _, ok := c.hosts[host]; ok {
		return true
	}
	for _, suffix := range c.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func (c *compiled) matchType(contentType string) bool {
	if c.anyType {
		return true
	}
	mediaType := MediaType(contentType)
	if mediaType == "" {
		return false
	}
	if _, ok := c.types[mediaType]; ok {
		return true
	}
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}
	return false
}

// server is the detected server cell. A nil pointer means not detected.
type server struct {
	name string
}

// Filter is the capture predicate together with the detected server state.
// The zero value is not usable; create one with New.
type Filter struct {
	rules    atomic.Pointer[compiled]
	detected atomic.Pointer[server]
}

// New creates a Filter with the given rules.
func New(rules Rules) *Filter {
	f := &Filter{}
	f.rules.Store(compile(rules))
	return f
}

// Update replaces the capture rules. Exchanges already in flight see the
// new rules on their next evaluation. The detected server is kept.
func (f *Filter) Update(rules Rules) {
	f.rules.Store(compile(rules))
}

// IsNeed reports whether a response from host with the given Content-Type
// header value should be captured.
func (f *Filter) IsNeed(host, contentType string) bool {
	c := f.rules.Load()

	if c.lockToSrv {
		if srv := f.detected.Load(); srv != nil {
			if !strings.EqualFold(srv.name, host) {
				return false
			}
			return c.matchType(contentType)
		}
	}

	return c.matchHost(host) && c.matchType(contentType)
}

// IsServerDetected reports whether a server has been detected.
func (f *Filter) IsServerDetected() bool {
	return f.detected.Load() != nil
}

// ServerName returns the detected server name, or "" if none was detected.
func (f *Filter) ServerName() string {
	if srv := f.detected.Load(); srv != nil {
		return srv.name
	}
	return ""
}

// TryDetect records name as the detected server if none has been detected
// yet. It returns true only for the caller whose name was recorded; every
// later call is a no-op returning false.
func (f *Filter) TryDetect(name string) bool {
	return f.detected.CompareAndSwap(nil, &server{name: name})
}

// SetServerName records name as the detected server unless one has already
// been detected, in which case it does nothing.
func (f *Filter) SetServerName(name string) {
	f.TryDetect(name)
}

// MediaType returns the lower-cased media type of a Content-Type header
// value without its parameters, or "" if the value is empty or malformed.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Tolerate a bare "type/subtype" followed by garbage parameters.
		head, _, _ := strings.Cut(contentType, ";")
		mediaType = strings.ToLower(strings.TrimSpace(head))
	}
	if !strings.Contains(mediaType, "/") {
		return ""
	}
	return mediaType
}
