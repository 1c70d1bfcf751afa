package profile

import (
	"strconv"
	"strings"
)

// NormalizePhone formats a 10-digit US number as (NXX) NXX-XXXX (§3, §8).
// Numbers that don't reduce to exactly 10 digits pass through unchanged.
func NormalizePhone(s string) string {
	digits := onlyDigits(s)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return strings.TrimSpace(s)
	}
	return "(" + digits[0:3] + ") " + digits[3:6] + "-" + digits[6:10]
}

// NormalizeSalary renders a numeric string with thousands separators,
// e.g. "120000" -> "120,000" (§3, §8).
func NormalizeSalary(s string) string {
	digits := onlyDigits(s)
	if digits == "" {
		return strings.TrimSpace(s)
	}
	var out []byte
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, byte(c))
	}
	return string(out)
}

// NormalizeBoolString canonicalizes a boolean-ish token to Yes/No (§3).
func NormalizeBoolString(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	switch t {
	case "yes", "y", "true", "1", "on", "authorized", "checked":
		return "Yes"
	case "no", "n", "false", "0", "off", "unauthorized", "unchecked":
		return "No"
	}
	if b, err := strconv.ParseBool(t); err == nil {
		if b {
			return "Yes"
		}
		return "No"
	}
	return s
}

// degreeCanon maps common degree tokens/abbreviations to canonical
// display forms used both here (profile read normalization) and by the
// Action Executor's domain mapping ladder (§4.3 step 3) when matching
// degree dropdown options.
var degreeCanon = map[string]string{
	"hs": "High School Diploma", "ged": "High School Diploma",
	"high school": "High School Diploma",
	"aa": "Associate's", "as": "Associate's", "associate": "Associate's", "associates": "Associate's",
	"ba": "Bachelor's", "bs": "Bachelor's", "b.a.": "Bachelor's", "b.s.": "Bachelor's",
	"bachelor": "Bachelor's", "bachelors": "Bachelor's", "bachelor's": "Bachelor's",
	"ma": "Master's", "ms": "Master's", "m.a.": "Master's", "m.s.": "Master's", "mba": "MBA",
	"master": "Master's", "masters": "Master's", "master's": "Master's",
	"phd": "PhD", "ph.d.": "PhD", "doctorate": "PhD",
}

// NormalizeDegree canonicalizes a free-text degree token (§3).
func NormalizeDegree(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if canon, ok := degreeCanon[key]; ok {
		return canon
	}
	return strings.TrimSpace(s)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
