package validate

import "testing"

func TestValidationRate(t *testing.T) {
	r := Report{TotalFields: 4, ValidFields: 3}
	if got := r.ValidationRate(); got != 0.75 {
		t.Errorf("expected 0.75, got %v", got)
	}
}

func TestValidationRateEmptyBatch(t *testing.T) {
	r := Report{}
	if got := r.ValidationRate(); got != 0 {
		t.Errorf("expected 0 for empty batch, got %v", got)
	}
}

func TestErrorSelectorsNonEmpty(t *testing.T) {
	if len(errorSelectors) == 0 {
		t.Fatal("expected at least one error sentinel selector")
	}
}
