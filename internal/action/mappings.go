package action

import (
	"strings"

	"github.com/polzovatel/applyagent/internal/domsnap"
)

// countryVariants mirrors the original's country_mappings table: each
// canonical country maps to the strings that show up in option text or
// value across the ATS platforms observed.
var countryVariants = map[string][]string{
	"united states": {"usa", "us", "united states", "united states of america", "america"},
	"usa":           {"usa", "us", "united states", "united states of america"},
	"us":            {"usa", "us", "united states", "united states of america"},
	"uk":            {"uk", "united kingdom", "great britain", "gb", "britain"},
	"china":         {"china", "cn", "prc", "people's republic of china"},
	"canada":        {"canada", "ca", "can"},
}

func matchCountry(targetLower string, options []domsnap.Option) (matchResult, bool) {
	if variants, ok := countryVariants[targetLower]; ok {
		for _, o := range options {
			tl, vl := strings.ToLower(o.Text), strings.ToLower(o.Value)
			for _, v := range variants {
				if strings.Contains(tl, v) || strings.Contains(vl, v) {
					return matchResult{o, 0.9}, true
				}
			}
		}
	}
	for _, variants := range countryVariants {
		for _, v := range variants {
			if v != targetLower {
				continue
			}
			for _, o := range options {
				tl := strings.ToLower(o.Text)
				if strings.Contains(tl, v) {
					return matchResult{o, 0.9}, true
				}
			}
		}
	}
	return matchResult{}, false
}

// usStateAbbrToName mirrors the original's (partial) US state table.
var usStateAbbrToName = map[string]string{
	"ca": "california",
	"ny": "new york",
	"tx": "texas",
	"fl": "florida",
	"wa": "washington",
	"ma": "massachusetts",
	"il": "illinois",
	"pa": "pennsylvania",
}

func matchState(target, targetLower string, options []domsnap.Option) (matchResult, bool) {
	for _, o := range options {
		if len(target) == 2 && strings.ToLower(o.Value) == targetLower {
			return matchResult{o, 0.95}, true
		}
	}
	if fullName, ok := usStateAbbrToName[targetLower]; ok {
		for _, o := range options {
			if strings.Contains(strings.ToLower(o.Text), fullName) {
				return matchResult{o, 0.9}, true
			}
		}
	}
	for abbr, fullName := range usStateAbbrToName {
		if targetLower != fullName {
			continue
		}
		for _, o := range options {
			vl, tl := strings.ToLower(o.Value), strings.ToLower(o.Text)
			if strings.Contains(vl, abbr) || strings.Contains(tl, abbr) {
				return matchResult{o, 0.9}, true
			}
		}
	}
	return matchResult{}, false
}

func matchYear(target string, options []domsnap.Option) (matchResult, bool) {
	for _, o := range options {
		if strings.Contains(o.Text, target) || strings.Contains(o.Value, target) {
			return matchResult{o, 0.95}, true
		}
	}
	return matchResult{}, false
}

// degreeVariants mirrors the original's degree_mappings table.
var degreeVariants = map[string][]string{
	"bachelor's": {"bachelor", "bachelors", "bachelor's", "bs", "ba", "b.s.", "b.a."},
	"master's":   {"master", "masters", "master's", "ms", "ma", "m.s.", "m.a.", "mba"},
	"phd":        {"phd", "ph.d.", "doctor", "doctorate", "doctoral"},
	"associate":  {"associate", "associates", "associate's", "aa", "as", "a.a.", "a.s."},
}

func matchDegree(targetLower string, options []domsnap.Option) (matchResult, bool) {
	for _, variants := range degreeVariants {
		match := false
		for _, v := range variants {
			if targetLower == v {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		for _, v := range variants {
			for _, o := range options {
				if strings.Contains(strings.ToLower(o.Text), v) {
					return matchResult{o, 0.9}, true
				}
			}
		}
	}
	return matchResult{}, false
}

// radioMatchConfidence mirrors calculate_radio_match_confidence: field
// names carrying "authorization"/"authorized"/"visa" or "gender" get a
// semantic boost table before falling through to plain string overlap.
func radioMatchConfidence(target, radioValue, label, fieldName string) float64 {
	targetLower := strings.ToLower(strings.TrimSpace(target))
	valueLower := strings.ToLower(strings.TrimSpace(radioValue))
	labelLower := strings.ToLower(strings.TrimSpace(label))
	fieldLower := strings.ToLower(fieldName)

	if strings.Contains(fieldLower, "authorization") || strings.Contains(fieldLower, "authorized") || strings.Contains(fieldLower, "visa") {
		switch targetLower {
		case "yes", "true", "1":
			if strings.Contains(valueLower, "yes") || strings.Contains(labelLower, "yes") || strings.Contains(labelLower, "authorized") {
				return 0.95
			}
		case "no", "false", "0":
			if strings.Contains(valueLower, "no") || strings.Contains(labelLower, "no") || strings.Contains(labelLower, "not authorized") {
				return 0.95
			}
		}
	}

	if strings.Contains(fieldLower, "gender") {
		genderMap := map[string][]string{
			"male":   {"male", "m", "man"},
			"female": {"female", "f", "woman"},
			"other":  {"other", "non-binary", "prefer not to say"},
		}
		for _, variants := range genderMap {
			matchesTarget := false
			for _, v := range variants {
				if targetLower == v {
					matchesTarget = true
					break
				}
			}
			if !matchesTarget {
				continue
			}
			for _, v := range variants {
				if strings.Contains(valueLower, v) || strings.Contains(labelLower, v) {
					return 0.9
				}
			}
		}
	}

	if targetLower == valueLower || targetLower == labelLower {
		return 1.0
	}
	if strings.Contains(valueLower, targetLower) || strings.Contains(labelLower, targetLower) {
		return 0.8
	}
	if strings.Contains(targetLower, valueLower) || strings.Contains(targetLower, labelLower) {
		return 0.7
	}
	vs := similarity(targetLower, valueLower)
	ls := similarity(targetLower, labelLower)
	if vs > ls {
		return vs * 0.8
	}
	return ls * 0.8
}
