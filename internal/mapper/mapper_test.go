package mapper

import (
	"strings"
	"testing"

	"github.com/polzovatel/applyagent/internal/domsnap"
	"github.com/polzovatel/applyagent/internal/profile"
)

func TestRuleMatchFirstName(t *testing.T) {
	el := domsnap.Element{Label: "First Name", ControlKind: domsnap.Text}
	m, ok := ruleMatch(el)
	if !ok || m.Semantic != "first_name" || m.DataPath != "basic_info.first_name" {
		t.Fatalf("expected first_name rule hit, got %+v ok=%v", m, ok)
	}
	if m.Confidence != ruleFieldConfidence {
		t.Errorf("expected fixed rule confidence %v, got %v", ruleFieldConfidence, m.Confidence)
	}
}

func TestRuleMatchResumeFile(t *testing.T) {
	el := domsnap.Element{Label: "Upload your resume or CV", ControlKind: domsnap.File}
	m, ok := ruleMatch(el)
	if !ok || m.DataPath != "files.resume.file_path" {
		t.Fatalf("expected resume file rule hit, got %+v ok=%v", m, ok)
	}
}

func TestRuleMatchNoHit(t *testing.T) {
	el := domsnap.Element{Label: "Favorite color", ControlKind: domsnap.Text}
	if _, ok := ruleMatch(el); ok {
		t.Fatal("expected no rule match for an unrelated field")
	}
}

func TestRecognitionRate(t *testing.T) {
	if got := RecognitionRate(10, 7); got != 0.7 {
		t.Errorf("expected 0.7, got %v", got)
	}
	if got := RecognitionRate(0, 0); got != 0 {
		t.Errorf("expected 0 for empty form, got %v", got)
	}
}

func TestPatternTokens(t *testing.T) {
	el := domsnap.Element{Label: "Current Company", ID: "curr-company-1"}
	tokens := patternTokens(el)
	if len(tokens) == 0 {
		t.Fatal("expected non-empty pattern tokens")
	}
}

func TestBuildPromptIncludesPlatformTipsAsContextOnly(t *testing.T) {
	prompt := buildPrompt(nil, "greenhouse", []string{"Greenhouse often nests the resume upload in an iframe"})
	if !strings.Contains(prompt, "Known tips for this platform (context only, not authoritative):") {
		t.Fatal("expected tips section header in prompt")
	}
	if !strings.Contains(prompt, "iframe") {
		t.Fatal("expected the tip text to appear in the prompt")
	}
}

func TestBuildPromptOmitsTipsSectionWhenEmpty(t *testing.T) {
	prompt := buildPrompt(nil, "unknown", nil)
	if strings.Contains(prompt, "Known tips") {
		t.Fatal("expected no tips section when there are no tips")
	}
}

// TestKeywordRuleDataPathsResolveOnProfile guards against rule-table
// entries pointing at semantic paths the Candidate Profile doesn't
// actually expose: a typo there makes the rule fire (matching on
// label/keyword) but then silently fail to produce a value, so the
// field is never filled on the rule-only fallback path.
func TestKeywordRuleDataPathsResolveOnProfile(t *testing.T) {
	var p profile.Profile
	p.BasicInfo.FirstName = "Ada"
	p.BasicInfo.LastName = "Lovelace"
	p.BasicInfo.Email = "ada@example.com"
	p.BasicInfo.Phone = "3105551234"
	p.BasicInfo.LinkedIn = "https://linkedin.com/in/ada"
	p.BasicInfo.GitHub = "https://github.com/ada"
	p.BasicInfo.Website = "https://ada.dev"
	p.Location.City = "London"
	p.Location.State = "England"
	p.Location.ZipCode = "00000"
	p.Location.Country = "UK"
	p.Education.University = "Royal Academy"
	p.Education.Degree = "Bachelor's"
	p.WorkInfo.CurrentCompany = "Analytical Engines Ltd"
	p.WorkInfo.CurrentTitle = "Mathematician"
	p.LegalStatus.WorkAuthorization = "yes"
	p.LegalStatus.RequireSponsorship = "no"

	for _, rule := range keywordRules {
		if _, ok := p.Get(rule.dataPath); !ok {
			t.Errorf("rule %q points at unresolvable data path %q", rule.semantic, rule.dataPath)
		}
	}
}
