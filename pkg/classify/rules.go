package classify

import (
	"bytes"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
)

// MatchMode selects how a Rule compares its path with the request path.
type MatchMode string

const (
	// MatchExact requires the request path to equal the rule path.
	MatchExact MatchMode = "exact"

	// MatchPrefix requires the request path to start with the rule path.
	MatchPrefix MatchMode = "prefix"
)

// Rule maps a request path to a record kind.
type Rule struct {
	Kind  Kind
	Path  string
	Match MatchMode
}

// ruleSet is the immutable matching form of a rule list.
type ruleSet struct {
	stripPrefix []byte
	exact       map[string]Kind
	prefixes    []Rule // longest path first
}

func newRuleSet(stripPrefix string, rules []Rule) *ruleSet {
	rs := &ruleSet{
		stripPrefix: []byte(stripPrefix),
		exact:       make(map[string]Kind, len(rules)),
	}
	for _, r := range rules {
		if !r.Kind.IsDefined() || r.Path == "" {
			continue
		}
		if r.Match == MatchPrefix {
			rs.prefixes = append(rs.prefixes, r)
			continue
		}
		if _, dup := rs.exact[r.Path]; !dup {
			rs.exact[r.Path] = r.Kind
		}
	}
	sort.SliceStable(rs.prefixes, func(i, j int) bool {
		return len(rs.prefixes[i].Path) > len(rs.prefixes[j].Path)
	})
	return rs
}

func (rs *ruleSet) kindOf(path string) Kind {
	if kind, ok := rs.exact[path]; ok {
		return kind
	}
	for _, r := range rs.prefixes {
		if strings.HasPrefix(path, r.Path) {
			return r.Kind
		}
	}
	return Undefined
}

// RuleDecoder is the default Decoder. It recognizes a payload when the
// request path matches one of its rules and the response body, after an
// optional prefix is stripped, is a JSON document. Form-encoded request
// bodies are parsed into the record's Request fields.
//
// The rule set can be replaced at any time with Update.
type RuleDecoder struct {
	rules atomic.Pointer[ruleSet]
}

// NewRuleDecoder creates a RuleDecoder. stripPrefix is removed from the
// start of response bodies before they are parsed, e.g. "svdata=".
func NewRuleDecoder(stripPrefix string, rules []Rule) *RuleDecoder {
	d := &RuleDecoder{}
	d.Update(stripPrefix, rules)
	return d
}

// Update replaces the prefix and rules used by later Decode calls.
func (d *RuleDecoder) Update(stripPrefix string, rules []Rule) {
	d.rules.Store(newRuleSet(stripPrefix, rules))
}

// Decode implements Decoder. It never returns an error; anything it cannot
// recognize yields an Undefined record.
func (d *RuleDecoder) Decode(uri string, request, response []byte) (*Record, error) {
	rs := d.rules.Load()

	u, err := url.ParseRequestURI(uri)
	if err != nil {
		return UndefinedRecord(), nil
	}

	kind := rs.kindOf(u.Path)
	if kind == Undefined {
		return UndefinedRecord(), nil
	}

	body := bytes.TrimSpace(response)
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	if len(rs.stripPrefix) > 0 {
		body = bytes.TrimPrefix(body, rs.stripPrefix)
	}
	if len(body) == 0 || !json.Valid(body) {
		return UndefinedRecord(), nil
	}

	rec := &Record{
		Kind:    kind,
		Payload: json.RawMessage(bytes.Clone(body)),
	}
	if len(request) > 0 {
		// Partial results are kept; a body that is not a form yields none.
		if values, _ := url.ParseQuery(string(request)); len(values) > 0 {
			rec.Request = values
		}
	}
	return rec, nil
}
