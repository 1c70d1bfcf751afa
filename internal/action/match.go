package action

import (
	"strings"

	"github.com/polzovatel/applyagent/internal/domsnap"
)

type matchResult struct {
	option     domsnap.Option
	confidence float64
}

// MatchOption runs the §4.3 fuzzy option-match ladder: exact equality,
// case-insensitive equality, domain mapping (country/state/year/degree),
// substring containment, acronym match, similarity threshold, and
// finally a low-confidence first-valid-option fallback.
func MatchOption(target string, options []domsnap.Option, fieldName, fieldLabel string) (matchResult, bool) {
	if strings.TrimSpace(target) == "" {
		return matchResult{}, false
	}
	targetLower := strings.ToLower(strings.TrimSpace(target))

	for _, o := range options {
		if o.Value == target || o.Text == target {
			return matchResult{o, 1.0}, true
		}
	}
	for _, o := range options {
		if strings.ToLower(o.Value) == targetLower || strings.ToLower(o.Text) == targetLower {
			return matchResult{o, 0.95}, true
		}
	}

	field := strings.ToLower(fieldName + " " + fieldLabel)
	switch {
	case strings.Contains(field, "country"):
		if m, ok := matchCountry(targetLower, options); ok {
			return m, true
		}
	case strings.Contains(field, "state") || strings.Contains(field, "province"):
		if m, ok := matchState(target, targetLower, options); ok {
			return m, true
		}
	case strings.Contains(field, "year") || strings.Contains(field, "graduation"):
		if m, ok := matchYear(target, options); ok {
			return m, true
		}
	case strings.Contains(field, "degree") || strings.Contains(field, "education"):
		if m, ok := matchDegree(targetLower, options); ok {
			return m, true
		}
	}

	for _, o := range options {
		tl, vl := strings.ToLower(o.Text), strings.ToLower(o.Value)
		if strings.Contains(tl, targetLower) || strings.Contains(targetLower, tl) {
			return matchResult{o, 0.8}, true
		}
		if strings.Contains(vl, targetLower) || strings.Contains(targetLower, vl) {
			return matchResult{o, 0.75}, true
		}
	}

	targetAbbr := abbreviate(target)
	for _, o := range options {
		if targetAbbr == abbreviate(o.Text) {
			return matchResult{o, 0.7}, true
		}
	}

	var best domsnap.Option
	var bestSim float64
	for _, o := range options {
		sim := maxSimilarity(targetLower, o)
		if sim > bestSim && sim > 0.6 {
			bestSim = sim
			best = o
		}
	}
	if bestSim > 0 {
		return matchResult{best, bestSim * 0.8}, true
	}

	for _, o := range options {
		if o.Value != "" && o.Text != "" {
			return matchResult{o, lowConfidence}, true
		}
	}
	return matchResult{}, false
}

func maxSimilarity(targetLower string, o domsnap.Option) float64 {
	ts := similarity(targetLower, strings.ToLower(o.Text))
	vs := similarity(targetLower, strings.ToLower(o.Value))
	if ts > vs {
		return ts
	}
	return vs
}

// similarity is a Ratcliff/Obershelp-style ratio: 2*matched / total
// length, built on the longest common subsequence. Mirrors the shape
// (not the exact recursion) of Python's difflib.SequenceMatcher.ratio.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	matched := lcsLength(a, b) * 2
	total := len(a) + len(b)
	return float64(matched) / float64(total)
}

func lcsLength(a, b string) int {
	m, n := len(a), len(b)
	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[n]
}

func abbreviate(s string) string {
	words := strings.Fields(s)
	if len(words) > 1 {
		var b strings.Builder
		for _, w := range words {
			if w == "" {
				continue
			}
			b.WriteString(strings.ToUpper(w[:1]))
		}
		return b.String()
	}
	up := strings.ToUpper(s)
	if len(up) > 3 {
		return up[:3]
	}
	return up
}

// ShouldCheckCheckbox ports the original's should_check_checkbox
// heuristic: explicit positive/negative values win, then field-name
// keyword hints (agree/terms/consent default to checked, newsletter/
// marketing default to unchecked), defaulting to unchecked.
func ShouldCheckCheckbox(value, fieldName, fieldLabel string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "yes", "true", "1", "on", "checked", "agree", "accept":
		return true
	case "no", "false", "0", "off", "unchecked", "disagree", "decline":
		return false
	}
	field := strings.ToLower(fieldName + " " + fieldLabel)
	for _, kw := range []string{"agree", "accept", "terms", "policy", "consent"} {
		if strings.Contains(field, kw) {
			return true
		}
	}
	for _, kw := range []string{"newsletter", "marketing", "email me", "subscribe"} {
		if strings.Contains(field, kw) {
			return false
		}
	}
	return false
}
