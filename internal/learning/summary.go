package learning

import "github.com/polzovatel/applyagent/internal/platform"

// Summary is the human-readable knowledge digest the original
// (`field_learning_system.py export_knowledge`) computed beyond the raw
// export — a supplemented feature consumed by the CLI's final printout,
// not by any other component.
type Summary struct {
	TotalMappings      int
	TotalExamples       int
	ObservedPlatforms   []string
	HighConfidenceCount int
	RecentEvents        []string
}

// Summarize reproduces the original's export-knowledge digest.
func (s *Store) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	sum.TotalMappings = len(s.doc.FieldMappings)
	for _, e := range s.doc.FieldMappings {
		sum.TotalExamples += len(e.Examples)
		if e.Confidence >= 0.8 {
			sum.HighConfidenceCount++
		}
	}
	for p := range s.doc.PlatformSpecific {
		sum.ObservedPlatforms = append(sum.ObservedPlatforms, p)
	}
	n := len(s.doc.LearningHistory)
	start := n - 10
	if start < 0 {
		start = 0
	}
	for _, ev := range s.doc.LearningHistory[start:] {
		sum.RecentEvents = append(sum.RecentEvents, ev.FieldKey+" -> "+ev.Semantic)
	}
	return sum
}

// platformTips is a static table of authoring hints per platform,
// grounded on field_learning_system.py's platform_patterns table.
// These are a nudge surfaced into the Field Mapper's prompt, never
// authoritative (§4.4).
var platformTips = map[platform.Tag][]string{
	platform.Greenhouse: {
		"Greenhouse forms commonly use native <select> for EEO questions",
		"resume upload is usually a drag-and-drop zone labeled 'Attach Resume/CV'",
	},
	platform.Lever: {
		"Lever's additional questions often render as custom dropdowns with role=listbox",
		"phone field is frequently named 'phone' with a country-code prefix selector",
	},
	platform.Workday: {
		"Workday renders multi-page forms; expect a 'Next' CTA between sections",
		"Workday custom dropdowns require a click to open before options are visible",
	},
}

// PlatformTips returns the known authoring tips for tag, or nil.
func PlatformTips(tag platform.Tag) []string {
	return platformTips[tag]
}
