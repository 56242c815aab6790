package workflow

import (
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Tier is one strategy for pulling a JSON value out of model output.
type Tier struct {
	Name  string
	Parse func(text string) (any, bool)
}

// Tiers is the extraction chain, tried in order; the first success wins.
var Tiers = []Tier{
	{Name: "fenced", Parse: parseFenced},
	{Name: "span", Parse: parseSpan},
	{Name: "whole", Parse: parseWhole},
}

// NoStructuredResult is the tier name reported when no tier produced a value.
const NoStructuredResult = "none"

// Extract returns the first JSON value found in text. ok is false when the
// text holds no parseable JSON; that is a normal outcome, not an error.
func Extract(text string) (value any, ok bool) {
	value, _, ok = ExtractTier(text)
	return value, ok
}

// ExtractTier is Extract that also reports which tier succeeded.
func ExtractTier(text string) (any, string, bool) {
	for _, t := range Tiers {
		if v, ok := t.Parse(text); ok {
			return v, t.Name, true
		}
	}
	return nil, NoStructuredResult, false
}

var fencedBlock = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\n?(.*?)```")

func parseFenced(text string) (any, bool) {
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if v, ok := strictParse(m[1]); ok {
			return v, true
		}
	}
	return nil, false
}

// parseSpan takes the first opening brace or bracket and the last matching
// closing one.
func parseSpan(text string) (any, bool) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, false
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return nil, false
	}
	return strictParse(text[start : end+1])
}

func parseWhole(text string) (any, bool) {
	return strictParse(text)
}

func strictParse(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return normalizeNumbers(v), true
}

// normalizeNumbers turns decoded numbers into float64 where that is exact.
// Integers beyond float64's exact range stay json.Number so they are stored
// unchanged.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		return exactNumber(t)
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	}
	return v
}

const maxExactInt = 1 << 53

func exactNumber(n json.Number) any {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil || i > maxExactInt || i < -maxExactInt {
			return n
		}
		return float64(i)
	}
	f, err := n.Float64()
	if err != nil {
		return n
	}
	return f
}

// StoredValue applies the storage policy for a step output: a JSON string is
// stored as the string itself, any other JSON value as its compact
// serialization, and text without structure as the trimmed original.
func StoredValue(raw string, value any, structured bool) string {
	if !structured {
		return strings.TrimSpace(raw)
	}
	if s, ok := value.(string); ok {
		return s
	}
	b, err := json.Marshal(value)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return string(b)
}
