package healthpoller

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedBody marks a response body that is not a JSON object.
var ErrMalformedBody = errors.New("malformed health report")

// Report is a health report as received from the endpoint. Every field is
// optional and decoded leniently; values of an unexpected type are treated
// the way a loosely typed client would treat them.
type Report struct {
	Service string
	Env     string
	Version string
	Time    string
	// Checks keeps the key order of the received object.
	Checks  []Check
	Timings map[string]json.RawMessage
	Errors  map[string]json.RawMessage

	// pretty is the decoded report re-encoded for display.
	pretty string
}

// Check is one entry of the report's checks object.
type Check struct {
	Name  string
	Value json.RawMessage
}

// OK coerces the check value to a boolean.
func (c Check) OK() bool {
	return truthy(c.Value)
}

// ParseReport decodes body. Anything other than a JSON object yields an
// empty report and ErrMalformedBody.
func ParseReport(body []byte) (Report, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return Report{}, ErrMalformedBody
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Report{}, errors.Join(ErrMalformedBody, err)
	}

	tree, err := decodeOrdered(trimmed)
	if err != nil {
		return Report{}, errors.Join(ErrMalformedBody, err)
	}

	var pretty strings.Builder
	writeIndented(&pretty, tree, 0)

	r := Report{pretty: pretty.String()}
	r.Service, _ = displayText(fields["service"])
	r.Env, _ = displayText(fields["env"])
	r.Version, _ = displayText(fields["version"])
	r.Time, _ = displayText(fields["time"])
	r.Checks = orderedEntries(fields["checks"])
	r.Timings = objectValues(fields["timings_ms"])
	r.Errors = objectValues(fields["errors"])

	return r, nil
}

// JSON returns the decoded report pretty-printed with two-space indentation
// in received key order, or "{}" for an empty report. Repeated keys appear
// once with their last value, so the text always agrees with the fields.
func (r Report) JSON() string {
	if r.pretty == "" {
		return "{}"
	}
	return r.pretty
}

// Timing returns the finite numeric timing recorded for name.
func (r Report) Timing(name string) (float64, bool) {
	raw := bytes.TrimSpace(r.Timings[name])
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Error returns the error text recorded for name, if any is set.
func (r Report) Error(name string) (string, bool) {
	return displayText(r.Errors[name])
}

func orderedEntries(raw json.RawMessage) []Check {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}

	var out []Check
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil
		}

		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil
		}

		// a repeated key keeps its first position and takes the last value
		if i, seen := index[key]; seen {
			out[i].Value = v
			continue
		}
		index[key] = len(out)
		out = append(out, Check{Name: key, Value: v})
	}
	return out
}

func objectValues(raw json.RawMessage) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}

	switch v[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		var s string
		return json.Unmarshal(v, &s) == nil && s != ""
	default:
		f, err := strconv.ParseFloat(string(v), 64)
		return err == nil && f != 0
	}
}

// displayText renders a JSON value as text, returning false for values that
// should show the placeholder instead.
func displayText(raw json.RawMessage) (string, bool) {
	if !truthy(raw) {
		return "", false
	}

	v := bytes.TrimSpace(raw)
	switch v[0] {
	case '"':
		var s string
		_ = json.Unmarshal(v, &s)
		return s, true
	case 't':
		return "true", true
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return strings.ToValidUTF8(string(v), "\uFFFD"), true
		}
		return strings.ToValidUTF8(buf.String(), "\uFFFD"), true
	default:
		f, _ := strconv.ParseFloat(string(v), 64)
		return formatNumber(f), true
	}
}

// formatNumber prints f the way a browser prints a number: shortest
// round-trip digits, with exponent notation below 1e-6 and from 1e21 up.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	// Go writes "1e-07"; browsers write "1e-7"
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}
