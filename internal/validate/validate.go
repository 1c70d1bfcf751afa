// Package validate is the Field Validator (§4.5): it confirms a fill
// actually stuck by attaching change/blur listeners, reading the value
// back, and scanning the page for error/loading sentinels.
package validate

import (
	"context"
	"fmt"
	"time"

	"github.com/polzovatel/applyagent/internal/browserdriver"
)

// loadingWait is W in §4.5: how long to wait for loading spinners to
// clear before a readback is considered final.
const loadingWait = 3 * time.Second

// FieldResult is one field's post-fill validation outcome.
type FieldResult struct {
	Selector      string
	SemanticKey   string
	ExpectedValue string
	ActualValue   string
	Valid         bool
	Err           string
}

// Report is the validation report the Workflow Orchestrator consumes
// to decide whether the 70%-success-ratio gate is met (§4.5, §4.8).
type Report struct {
	TotalFields  int
	ValidFields  int
	FailedFields []FieldResult
	AllResults   []FieldResult
}

// ValidationRate is ValidFields/TotalFields, 0 for an empty batch.
func (r Report) ValidationRate() float64 {
	if r.TotalFields == 0 {
		return 0
	}
	return float64(r.ValidFields) / float64(r.TotalFields)
}

// Filled is one field the Action Executor reports it attempted to fill.
type Filled struct {
	Selector      string
	SemanticKey   string
	ExpectedValue string
}

// attachAndReadScript installs change/blur listeners, synthetically
// dispatches both events so validation JS on the page fires, then reads
// the post-dispatch value back (checkbox state is normalized to
// "true"/"false" to match the expected-value comparison).
const attachAndReadScript = `
(selector) => {
  const el = document.querySelector(selector);
  if (!el) return null;
  el.addEventListener('change', () => { window.__fieldChanged = true; });
  el.addEventListener('blur', () => { window.__fieldBlurred = true; });
  el.dispatchEvent(new Event('blur', { bubbles: true }));
  el.dispatchEvent(new Event('change', { bubbles: true }));
  if (el.type === 'checkbox') return el.checked ? 'true' : 'false';
  return el.value;
}
`

// ValidateField dispatches change/blur on selector and compares the
// resulting value to expected (§4.5).
func ValidateField(ctx context.Context, d browserdriver.Driver, f Filled) FieldResult {
	res := FieldResult{Selector: f.Selector, SemanticKey: f.SemanticKey, ExpectedValue: f.ExpectedValue}

	v, err := d.Eval(ctx, attachAndReadScript, f.Selector)
	if err != nil {
		res.Err = fmt.Sprintf("validate: eval: %v", err)
		return res
	}
	actual, _ := v.(string)
	res.ActualValue = actual
	res.Valid = actual == f.ExpectedValue
	return res
}

// ValidateAll runs ValidateField over every filled field and builds the
// aggregate report (§4.5).
func ValidateAll(ctx context.Context, d browserdriver.Driver, filled []Filled) Report {
	report := Report{TotalFields: len(filled)}
	for _, f := range filled {
		res := ValidateField(ctx, d, f)
		report.AllResults = append(report.AllResults, res)
		if res.Valid {
			report.ValidFields++
		} else {
			report.FailedFields = append(report.FailedFields, res)
		}
	}
	return report
}

// errorSelectors are the common form-validation error sentinels (§4.5).
var errorSelectors = []string{
	".error-message",
	".field-error",
	".validation-error",
	"[class*=\"error\"]",
	"[role=\"alert\"]",
	".invalid-feedback",
}

// FormError is one visible error message found on the page.
type FormError struct {
	Selector string
	Message  string
}

const checkErrorsScript = `
(selectors) => {
  const out = [];
  for (const sel of selectors) {
    document.querySelectorAll(sel).forEach((el) => {
      const style = window.getComputedStyle(el);
      if (style.display === 'none' || style.visibility === 'hidden') return;
      const text = (el.textContent || '').trim();
      if (text) out.push({ selector: sel, message: text });
    });
  }
  return out;
}
`

// CheckFormErrors scans the page for visible error-sentinel elements.
func CheckFormErrors(ctx context.Context, d browserdriver.Driver) ([]FormError, error) {
	v, err := d.Eval(ctx, checkErrorsScript, errorSelectors)
	if err != nil {
		return nil, fmt.Errorf("validate: check form errors: %w", err)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, nil
	}
	out := make([]FormError, 0, len(items))
	for _, raw := range items {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		sel, _ := m["selector"].(string)
		msg, _ := m["message"].(string)
		out = append(out, FormError{Selector: sel, Message: msg})
	}
	return out, nil
}

const loadingIndicatorsScript = `
() => {
  const els = document.querySelectorAll('.loading, .spinner, [class*="loading"], [class*="spinner"]');
  return Array.from(els).every((el) => {
    const style = window.getComputedStyle(el);
    return style.display === 'none' || style.visibility === 'hidden';
  });
}
`

// WaitForValidationComplete polls until every loading/spinner indicator
// has cleared, up to loadingWait, then adds a fixed settle delay (§4.5).
func WaitForValidationComplete(ctx context.Context, d browserdriver.Driver) bool {
	deadline := time.Now().Add(loadingWait)
	for time.Now().Before(deadline) {
		v, err := d.Eval(ctx, loadingIndicatorsScript, nil)
		if err == nil {
			if done, ok := v.(bool); ok && done {
				time.Sleep(500 * time.Millisecond)
				return true
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}
