package pageanalyze

import "testing"

func TestRepairFallsBackOnIllegalPageType(t *testing.T) {
	a := repair(rawAnalysis{PageType: "totally_bogus", Confidence: 0.8}, "https://x", "Title")
	if a.PageKind != UnknownPage {
		t.Errorf("expected UnknownPage fallback, got %v", a.PageKind)
	}
}

func TestRepairFallsBackOnIllegalActionType(t *testing.T) {
	a := repair(rawAnalysis{PageType: "job_detail", RecommendedAction: struct {
		ActionType string  `json:"action_type"`
		Confidence float64 `json:"confidence"`
	}{ActionType: "do_a_backflip", Confidence: 0.9}}, "https://x", "Title")
	if a.RecommendedKind != WaitForHuman {
		t.Errorf("expected WaitForHuman fallback, got %v", a.RecommendedKind)
	}
}

func TestRepairRescalesOutOfRangeConfidence(t *testing.T) {
	a := repair(rawAnalysis{PageType: "job_detail", Confidence: 8}, "https://x", "Title")
	if a.Confidence != 0.8 {
		t.Errorf("expected confidence rescaled to 0.8, got %v", a.Confidence)
	}
}

func TestRepairDefaultsIllegalElementType(t *testing.T) {
	a := repair(rawAnalysis{
		PageType:      "job_detail",
		CTACandidates: []CTACandidate{{Text: "Apply", ElementType: "span", Confidence: 0.9}},
	}, "https://x", "Title")
	if len(a.CTACandidates) != 1 || a.CTACandidates[0].ElementType != "button" {
		t.Fatalf("expected illegal element_type defaulted to button, got %+v", a.CTACandidates)
	}
}

func TestRepairDropsApplyButtonConsistencyViolation(t *testing.T) {
	a := repair(rawAnalysis{PageType: "job_detail", HasApplyButton: true}, "https://x", "Title")
	if a.HasApplyButton {
		t.Error("expected has_apply_button to be nulled out when no CTA candidates are present")
	}
}

func TestRepairDowngradesFormPageKindWithNoForms(t *testing.T) {
	a := repair(rawAnalysis{PageType: "job_detail_with_form", FormCount: 0}, "https://x", "Title")
	if a.PageKind != JobDetail {
		t.Errorf("expected downgrade to JobDetail when form_count is 0, got %v", a.PageKind)
	}
}

// TestRepairUpgradesJobDetailWhenFormsArePresent is seed case 6: a
// page classified job_detail with form_count=2 must be reclassified to
// job_detail_with_form rather than left inconsistent.
func TestRepairUpgradesJobDetailWhenFormsArePresent(t *testing.T) {
	a := repair(rawAnalysis{PageType: "job_detail", FormCount: 2}, "https://x", "Title")
	if a.PageKind != JobDetailWithForm {
		t.Errorf("expected upgrade to JobDetailWithForm when forms are present, got %v", a.PageKind)
	}
}

func TestRepairDowngradesFormPageKindToUnknownWithNoForms(t *testing.T) {
	a := repair(rawAnalysis{PageType: "form_page", FormCount: 0}, "https://x", "Title")
	if a.PageKind != UnknownPage {
		t.Errorf("expected form_page with zero forms to fall back to UnknownPage, got %v", a.PageKind)
	}
}

func TestRepairNeverRecommendsFillFormWithoutForms(t *testing.T) {
	raw := rawAnalysis{PageType: "job_detail", FormCount: 0}
	raw.RecommendedAction.ActionType = "fill_form"
	a := repair(raw, "https://x", "Title")
	if a.RecommendedKind != WaitForHuman {
		t.Errorf("expected fill_form with no forms to fall back to wait_for_human, got %v", a.RecommendedKind)
	}
}

func TestRepairNeverRecommendsClickCTAOnAFormPageWithForms(t *testing.T) {
	raw := rawAnalysis{PageType: "form_page", FormCount: 1}
	raw.RecommendedAction.ActionType = "click_cta"
	raw.CTACandidates = []CTACandidate{{Text: "Learn more", Selector: "#a", ElementType: "a"}}
	a := repair(raw, "https://x", "Title")
	if a.RecommendedKind != FillForm {
		t.Errorf("expected click_cta on a form_page with forms to reclassify to fill_form, got %v", a.RecommendedKind)
	}
}

func TestRepairNeverRecommendsClickCTAWithoutACandidate(t *testing.T) {
	raw := rawAnalysis{PageType: "job_detail"}
	raw.RecommendedAction.ActionType = "click_cta"
	a := repair(raw, "https://x", "Title")
	if a.RecommendedKind != WaitForHuman {
		t.Errorf("expected click_cta with no candidates to fall back to wait_for_human, got %v", a.RecommendedKind)
	}
}

func TestShouldProceedRequiresConfidence(t *testing.T) {
	a := Analysis{RecommendedKind: FillForm, ActionConf: 0.5, FormCount: 1, PageKind: FormPage}
	if ShouldProceed(a, 0.6) {
		t.Error("expected low action confidence to block proceeding")
	}
}

func TestShouldProceedFillForm(t *testing.T) {
	a := Analysis{RecommendedKind: FillForm, ActionConf: 0.9, FormCount: 1, PageKind: FormPage}
	if !ShouldProceed(a, 0.6) {
		t.Error("expected fill_form to proceed with a form present")
	}
}

func TestShouldProceedClickCTANeedsCandidate(t *testing.T) {
	a := Analysis{RecommendedKind: ClickCTA, ActionConf: 0.9, PageKind: JobDetail}
	if ShouldProceed(a, 0.6) {
		t.Error("expected click_cta to block without any CTA candidates")
	}
}

func TestExtractContentStripsScriptsAndCaps(t *testing.T) {
	raw := "<script>evil()</script><p>Hello world</p>"
	got := ExtractContent(raw)
	if got != "Hello world" {
		t.Errorf("expected stripped content %q, got %q", "Hello world", got)
	}
}
