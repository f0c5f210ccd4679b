package usecase

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexNumber decodes a JSON number, a numeric string such as "85", "85%" or
// "$5,000", or null. Anything else leaves Valid false without failing the decode.
type FlexNumber struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexNumber) UnmarshalJSON(b []byte) error {
	*n = FlexNumber{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if v, ok := parseLooseNumber(s); ok {
			*n = FlexNumber{Value: v, Valid: true}
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = FlexNumber{Value: v, Valid: true}
	return nil
}

// Int rounds to the nearest integer.
func (n FlexNumber) Int() int { return int(math.Round(n.Value)) }

// Ptr returns nil when the number is absent.
func (n FlexNumber) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// IntPtr returns nil when the number is absent.
func (n FlexNumber) IntPtr() *int {
	if !n.Valid {
		return nil
	}
	v := n.Int()
	return &v
}

func parseLooseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// "5k" is common in model output
	mult := 1.0
	if strings.HasSuffix(s, "k") || strings.HasSuffix(s, "K") {
		mult = 1000
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v * mult, true
}

// FlexStrings decodes either a JSON array of strings or a single string.
// Non-string array items are skipped.
type FlexStrings []string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexStrings) UnmarshalJSON(b []byte) error {
	*f = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil && strings.TrimSpace(s) != "" {
			*f = FlexStrings{strings.TrimSpace(s)}
		}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil
	}
	out := make(FlexStrings, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*f = out
	return nil
}

// FlexBool decodes a JSON bool or the strings "true"/"yes"/"1" and their negations.
type FlexBool struct {
	Value bool
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexBool) UnmarshalJSON(b []byte) error {
	*f = FlexBool{}
	b = bytes.TrimSpace(b)
	switch strings.ToLower(strings.Trim(string(b), `"`)) {
	case "true", "yes", "1":
		*f = FlexBool{Value: true, Valid: true}
	case "false", "no", "0":
		*f = FlexBool{Value: false, Valid: true}
	}
	return nil
}

// firstString returns the first non-blank value.
func firstString(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(vals ...FlexNumber) FlexNumber {
	for _, v := range vals {
		if v.Valid {
			return v
		}
	}
	return FlexNumber{}
}

func firstBool(vals ...FlexBool) bool {
	for _, v := range vals {
		if v.Valid {
			return v.Value
		}
	}
	return false
}
