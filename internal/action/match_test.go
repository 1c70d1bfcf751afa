package action

import (
	"testing"

	"github.com/polzovatel/applyagent/internal/domsnap"
)

func opts(pairs ...[2]string) []domsnap.Option {
	out := make([]domsnap.Option, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, domsnap.Option{Value: p[0], Text: p[1]})
	}
	return out
}

func TestMatchOptionExactBeatsFuzzy(t *testing.T) {
	m, ok := MatchOption("California", opts([2]string{"CA", "California"}, [2]string{"NY", "New York"}), "state", "State")
	if !ok || m.option.Text != "California" || m.confidence != 1.0 {
		t.Fatalf("expected exact match with confidence 1.0, got %+v ok=%v", m, ok)
	}
}

func TestMatchOptionCountryMapping(t *testing.T) {
	m, ok := MatchOption("USA", opts([2]string{"US", "United States of America"}), "country", "Country")
	if !ok || m.confidence != 0.9 {
		t.Fatalf("expected country mapping hit at 0.9, got %+v ok=%v", m, ok)
	}
}

func TestMatchOptionDegreeMapping(t *testing.T) {
	m, ok := MatchOption("bachelor's", opts([2]string{"BS", "Bachelor of Science"}), "degree", "Highest Degree")
	if !ok || m.confidence != 0.9 {
		t.Fatalf("expected degree mapping hit at 0.9, got %+v ok=%v", m, ok)
	}
}

func TestMatchOptionLastResortLowConfidence(t *testing.T) {
	m, ok := MatchOption("Xyzzyplugh", opts([2]string{"A", "Alpha"}, [2]string{"B", "Beta"}), "", "")
	if !ok || m.confidence != lowConfidence {
		t.Fatalf("expected low-confidence fallback, got %+v ok=%v", m, ok)
	}
}

func TestMatchOptionEmptyTargetMisses(t *testing.T) {
	if _, ok := MatchOption("", opts([2]string{"A", "Alpha"}), "", ""); ok {
		t.Fatal("expected empty target to miss")
	}
}

func TestShouldCheckCheckboxExplicitValues(t *testing.T) {
	if !ShouldCheckCheckbox("yes", "", "") {
		t.Error("expected yes to check")
	}
	if ShouldCheckCheckbox("no", "", "") {
		t.Error("expected no to uncheck")
	}
}

func TestShouldCheckCheckboxKeywordFallback(t *testing.T) {
	if !ShouldCheckCheckbox("", "agree_terms", "I agree to the terms") {
		t.Error("expected terms-agreement checkbox to default checked")
	}
	if ShouldCheckCheckbox("", "newsletter_signup", "Subscribe to our newsletter") {
		t.Error("expected newsletter checkbox to default unchecked")
	}
}

func TestRadioMatchConfidenceWorkAuthorization(t *testing.T) {
	conf := radioMatchConfidence("yes", "yes", "I am authorized to work", "work_authorization")
	if conf != 0.95 {
		t.Errorf("expected 0.95 for work-authorization yes match, got %v", conf)
	}
}

func TestSimilarityIdenticalStringsIsOne(t *testing.T) {
	if similarity("hello", "hello") != 1.0 {
		t.Error("expected identical strings to have similarity 1.0")
	}
}
