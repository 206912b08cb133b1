// Package signal interprets inbound TradingView webhook payloads: it parses
// whatever body shape the alert arrives in, classifies which indicator
// pattern it matches, and builds the outbound alert message.
package signal

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// Payload is the loosely-typed webhook body. TradingView alerts arrive as
// JSON, form data, querystrings, or free text depending on how the alert was
// configured, so downstream inference works over string-keyed fields.
type Payload map[string]any

var kvPat = regexp.MustCompile(`^\s*([A-Za-z0-9_.\-]+)\s*[:=]\s*(.+?)\s*$`)

// ParseBody turns a raw webhook body into a Payload. It tries, in order:
// a JSON object, a querystring, and line/comma separated key:value pairs.
// For non-JSON input the full raw text is preserved under "text" so the
// inference layer can mine it.
func ParseBody(raw []byte) Payload {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return Payload{}
	}

	var j map[string]any
	if err := json.Unmarshal([]byte(text), &j); err == nil {
		return Payload(j)
	}

	out := Payload{}
	if strings.Contains(text, "=") && strings.Contains(text, "&") && !strings.Contains(text, "\n") {
		if qs, err := url.ParseQuery(text); err == nil {
			for k, vs := range qs {
				if len(vs) > 0 {
					out[k] = vs[len(vs)-1]
				}
			}
			if len(out) > 0 {
				out["text"] = text
				return out
			}
		}
	}

	var lines []string
	for _, block := range strings.Split(text, "\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if strings.ContainsAny(block, ":=") {
			for _, part := range strings.Split(block, ",") {
				if p := strings.TrimSpace(part); p != "" {
					lines = append(lines, p)
				}
			}
		} else {
			lines = append(lines, block)
		}
	}
	for _, ln := range lines {
		if m := kvPat.FindStringSubmatch(ln); m != nil {
			out[m[1]] = strings.Trim(strings.Trim(m[2], `"`), "'")
		}
	}

	out["text"] = text
	return out
}

// FromForm converts submitted form values into a Payload, last value wins.
func FromForm(form url.Values) Payload {
	out := Payload{}
	for k, vs := range form {
		if len(vs) > 0 {
			out[k] = vs[len(vs)-1]
		}
	}
	return out
}

// Str returns the payload field as a trimmed string, empty when absent.
func (p Payload) Str(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

// First returns the first non-empty field among keys.
func (p Payload) First(keys ...string) string {
	for _, k := range keys {
		if s := p.Str(k); s != "" {
			return s
		}
	}
	return ""
}
