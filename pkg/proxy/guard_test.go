package proxy

import (
	"context"
	"errors"
	"testing"
)

type fakeResolver map[string][]string

func (f fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	addrs, ok := f[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

func TestGuard_Admit(t *testing.T) {
	resolver := fakeResolver{
		"localhost": {"127.0.0.1", "::1"},
		"mixed":     {"127.0.0.1", "192.0.2.10"},
		"empty":     {},
		"garbage":   {"not-an-ip"},
	}

	tests := []struct {
		name       string
		remoteAddr string
		wantReason string
	}{
		{"ipv4 loopback", "127.0.0.1:50000", ""},
		{"ipv4 loopback range", "127.8.9.10:50000", ""},
		{"ipv6 loopback", "[::1]:50000", ""},
		{"ipv4 mapped loopback", "[::ffff:127.0.0.1]:50000", ""},
		{"bare address", "127.0.0.1", ""},
		{"private address", "192.168.1.20:50000", ReasonNotLoopback},
		{"public ipv6", "[2001:db8::1]:50000", ReasonNotLoopback},
		{"name resolving to loopback", "localhost:50000", ""},
		{"name with non-loopback address", "mixed:50000", ReasonNotLoopback},
		{"unresolvable name", "nowhere.invalid:50000", ReasonUnresolvable},
		{"name without addresses", "empty:1", ReasonUnresolvable},
		{"name with bad address", "garbage:1", ReasonUnresolvable},
		{"empty", "", ReasonUnparseable},
		{"port only", ":50000", ReasonUnparseable},
	}

	g := NewGuard(true, resolver)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Admit(context.Background(), tt.remoteAddr)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Admit(%q) error = %v, want admit", tt.remoteAddr, err)
				}
				return
			}

			var ae *AdmissionError
			if !errors.As(err, &ae) {
				t.Fatalf("Admit(%q) error = %v, want *AdmissionError", tt.remoteAddr, err)
			}
			if ae.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", ae.Reason, tt.wantReason)
			}
			if rejectionReason(err) != tt.wantReason {
				t.Errorf("rejectionReason() = %q", rejectionReason(err))
			}
		})
	}
}

func TestGuard_Unrestricted(t *testing.T) {
	g := NewGuard(false, fakeResolver{})
	for _, addr := range []string{"203.0.113.9:1", "nowhere.invalid:1", ""} {
		if err := g.Admit(context.Background(), addr); err != nil {
			t.Errorf("Admit(%q) error = %v, want admit", addr, err)
		}
	}

	g.SetRestrictToLoopback(true)
	if !g.RestrictToLoopback() {
		t.Fatal("restriction not applied")
	}
	if err := g.Admit(context.Background(), "203.0.113.9:1"); err == nil {
		t.Error("restricted guard admitted a public address")
	}
}
