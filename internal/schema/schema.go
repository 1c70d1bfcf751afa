// Package schema implements the declarative schema and deterministic
// repair pass (§4.9) shared by every component that parses an LLM
// response: the Field Mapper's Action array and the Page Analyzer's
// PageAnalysis object.
package schema

import (
	"encoding/json"
	"regexp"
)

// snakeCaseRe validates the semantic-path / field-key vocabulary used
// throughout the data model (§3): lowercase, digits, underscores only.
var snakeCaseRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// IsSnakeCase reports whether s matches the closed semantic-key alphabet.
func IsSnakeCase(s string) bool {
	return s != "" && snakeCaseRe.MatchString(s)
}

// NormalizeConfidence coerces a raw confidence value into [0,1]. Values
// that look like they were emitted on a 1-10 scale are rescaled; values
// outside both ranges clamp to the nearest bound.
func NormalizeConfidence(v float64) float64 {
	switch {
	case v >= 0 && v <= 1:
		return v
	case v > 1 && v <= 10:
		return v / 10
	case v < 0:
		return 0
	default:
		return 1
	}
}

// InEnum reports whether v is a member of allowed.
func InEnum(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Decode attempts to unmarshal raw directly into T. On failure it applies
// Repair and retries once. If both attempts fail, it returns fallback and
// ok=false so the caller can proceed with a typed default object rather
// than propagate the parse error (§4.9, §7 LLM_OUTPUT_INVALID).
func Decode[T any](raw string, fallback T) (T, bool) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v, true
	}
	repaired := Repair(raw)
	if err := json.Unmarshal([]byte(repaired), &v); err == nil {
		return v, true
	}
	return fallback, false
}
