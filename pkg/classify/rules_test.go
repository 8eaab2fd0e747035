package classify

import (
	"testing"
)

func TestRuleDecoder_Decode(t *testing.T) {
	d := NewRuleDecoder("svdata=", []Rule{
		{Kind: "PORT", Path: "/kcsapi/api_port/port", Match: MatchExact},
		{Kind: "MASTER", Path: "/kcsapi/api_start2", Match: MatchPrefix},
		{Kind: "GET_MEMBER", Path: "/kcsapi/api_get_member/", Match: MatchPrefix},
		{Kind: "SHIP", Path: "/kcsapi/api_get_member/ship", Match: MatchPrefix},
	})

	tests := []struct {
		name     string
		uri      string
		response string
		want     Kind
	}{
		{name: "exact path", uri: "/kcsapi/api_port/port", response: `svdata={"api_result":1}`, want: "PORT"},
		{name: "exact path with query", uri: "/kcsapi/api_port/port?q=%E6%A4%9C", response: `{"api_result":1}`, want: "PORT"},
		{name: "exact does not match longer path", uri: "/kcsapi/api_port/port2", response: `{}`, want: Undefined},
		{name: "prefix", uri: "/kcsapi/api_start2/getData", response: `{}`, want: "MASTER"},
		{name: "longest prefix wins", uri: "/kcsapi/api_get_member/ship3", response: `{}`, want: "SHIP"},
		{name: "shorter prefix", uri: "/kcsapi/api_get_member/deck", response: `{}`, want: "GET_MEMBER"},
		{name: "unknown path", uri: "/index.html", response: `{}`, want: Undefined},
		{name: "invalid json", uri: "/kcsapi/api_port/port", response: `svdata={"api_result":`, want: Undefined},
		{name: "empty body", uri: "/kcsapi/api_port/port", response: ``, want: Undefined},
		{name: "relative uri", uri: "kcsapi/api_port/port", response: `{}`, want: Undefined},
		{name: "byte order mark", uri: "/kcsapi/api_port/port", response: "\xef\xbb\xbf{}", want: "PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := d.Decode(tt.uri, nil, []byte(tt.response))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if rec.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", rec.Kind, tt.want)
			}
		})
	}
}

func TestRuleDecoder_PayloadAndRequest(t *testing.T) {
	d := NewRuleDecoder("svdata=", []Rule{{Kind: "PORT", Path: "/kcsapi/api_port/port"}})

	rec, err := d.Decode("/kcsapi/api_port/port",
		[]byte("api_token=abc&api_verno=1"),
		[]byte(`svdata={"api_result":1,"api_data":{"a":1}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got := string(rec.Payload); got != `{"api_result":1,"api_data":{"a":1}}` {
		t.Errorf("Payload = %s", got)
	}
	if got := rec.Request.Get("api_token"); got != "abc" {
		t.Errorf("Request[api_token] = %q, want %q", got, "abc")
	}
	if got := rec.Request.Get("api_verno"); got != "1" {
		t.Errorf("Request[api_verno] = %q, want %q", got, "1")
	}
}

func TestRuleDecoder_Update(t *testing.T) {
	d := NewRuleDecoder("", nil)
	if rec, _ := d.Decode("/a", nil, []byte(`{}`)); rec.Kind != Undefined {
		t.Fatalf("empty rule set should decode to Undefined, got %q", rec.Kind)
	}

	d.Update("", []Rule{{Kind: "A", Path: "/a", Match: MatchExact}})
	if rec, _ := d.Decode("/a", nil, []byte(`{}`)); rec.Kind != "A" {
		t.Errorf("Kind after update = %q, want %q", rec.Kind, "A")
	}
}

func TestRuleDecoder_IgnoresUndefinedRules(t *testing.T) {
	d := NewRuleDecoder("", []Rule{
		{Kind: Undefined, Path: "/a"},
		{Kind: "", Path: "/b"},
	})
	for _, uri := range []string{"/a", "/b"} {
		if rec, _ := d.Decode(uri, nil, []byte(`{}`)); rec.Kind != Undefined {
			t.Errorf("Decode(%q) Kind = %q, want Undefined", uri, rec.Kind)
		}
	}
}

func TestKind_IsDefined(t *testing.T) {
	if Undefined.IsDefined() || Kind("").IsDefined() {
		t.Error("Undefined and empty kinds must not be defined")
	}
	if !Kind("PORT").IsDefined() {
		t.Error("PORT should be defined")
	}
}
