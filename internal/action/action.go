// Package action is the Action Executor (§4.3): it takes one DOM
// Element Record and a value to apply, dispatches on control kind, and
// reports what actually ended up on the page.
package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/polzovatel/applyagent/internal/browserdriver"
	"github.com/polzovatel/applyagent/internal/domsnap"
)

const (
	humanizeDelay = 500 * time.Millisecond
	textRetries   = 3
	textBackoff   = 500 * time.Millisecond
	lowConfidence = 0.3
)

// Result is the Execution Result (§3): the outcome of one fill attempt.
type Result struct {
	FieldKey       string
	ControlKind    domsnap.ControlKind
	AttemptedValue string
	ActualValue    string
	Success        bool
	Confidence     float64
	Err            string
}

// Fill dispatches el to the handler for its ControlKind and applies
// value. It never panics; every failure path is folded into Result.
func Fill(ctx context.Context, d browserdriver.Driver, el domsnap.Element, value string, log zerolog.Logger) Result {
	res := Result{
		FieldKey:       el.Selector,
		ControlKind:    el.ControlKind,
		AttemptedValue: value,
	}

	var err error
	switch el.ControlKind {
	case domsnap.Select, domsnap.CustomDropdown:
		err = fillSelect(ctx, d, el, value, &res)
	case domsnap.Radio:
		err = fillRadio(ctx, d, el, value, &res)
	case domsnap.Checkbox:
		err = fillCheckbox(ctx, d, el, value, &res)
	case domsnap.File:
		err = fillFile(ctx, d, el, value, &res)
	case domsnap.Hidden:
		err = fillHidden(ctx, d, el, value, &res)
	case domsnap.Date:
		err = fillDate(ctx, d, el, value, &res)
	default:
		err = fillText(ctx, d, el, value, &res)
	}

	if err != nil {
		res.Success = false
		res.Err = err.Error()
		log.Warn().Str("selector", el.Selector).Str("kind", string(el.ControlKind)).Err(err).Msg("action: fill failed")
	}
	return res
}

// dispatchBlurScript fires a synthetic blur so framework listeners that
// only bind to the event (not to real focus changes) still observe the
// fill; the subsequent Tab keypress handles the ones that need a real
// focus change instead.
const dispatchBlurScript = `
(selector) => {
  const el = document.querySelector(selector);
  if (el) el.dispatchEvent(new Event('blur', { bubbles: true }));
}
`

// fillText handles text/email/tel/url/number/textarea (§4.3): R=3
// retries with a fixed backoff, a humanization delay before the attempt
// so rapid-fire filling doesn't look scripted, then blur (dispatched
// synthetically and via a real Tab press) and a 100ms settle before the
// read-back compare — load-bearing for ATS validators that only run on
// blur.
func fillText(ctx context.Context, d browserdriver.Driver, el domsnap.Element, value string, res *Result) error {
	var lastErr error
	for attempt := 0; attempt < textRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(textBackoff)
		}
		time.Sleep(humanizeDelay)
		if err := d.Fill(ctx, el.Selector, value); err != nil {
			lastErr = err
			continue
		}
		if _, err := d.Eval(ctx, dispatchBlurScript, el.Selector); err != nil {
			lastErr = err
			continue
		}
		if err := d.Press(ctx, el.Selector, "Tab"); err != nil {
			lastErr = err
			continue
		}
		time.Sleep(100 * time.Millisecond)
		actual, err := d.Read(ctx, el.Selector)
		if err != nil {
			lastErr = err
			continue
		}
		if !valuesEquivalent(actual, value) {
			lastErr = fmt.Errorf("readback %q does not match expected %q", actual, value)
			continue
		}
		res.ActualValue = actual
		res.Success = true
		res.Confidence = 0.95
		return nil
	}
	return fmt.Errorf("action: fill text %s: %w", el.Selector, lastErr)
}

// valuesEquivalent compares a read-back value to the expected one
// modulo whitespace/case normalization (§8): browsers and ATS JS
// sometimes trim or re-case a value on blur without that being a real
// mismatch.
func valuesEquivalent(actual, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(actual), strings.TrimSpace(expected))
}

// setHiddenValueScript assigns value directly to a type=hidden input's
// DOM property and dispatches synthetic input+change events, since a
// hidden input can never satisfy Playwright's visible-actionability
// wait that Fill/WaitFor require.
const setHiddenValueScript = `
([selector, value]) => {
  const el = document.querySelector(selector);
  if (!el) return null;
  el.value = value;
  el.dispatchEvent(new Event('input', { bubbles: true }));
  el.dispatchEvent(new Event('change', { bubbles: true }));
  return el.value;
}
`

// fillHidden handles type=hidden inputs (§4.3): the Snapshotter
// deliberately surfaces these without ever waiting for visibility, so
// they must be set via scripted assignment rather than Fill/WaitFor.
func fillHidden(ctx context.Context, d browserdriver.Driver, el domsnap.Element, value string, res *Result) error {
	v, err := d.Eval(ctx, setHiddenValueScript, []any{el.Selector, value})
	if err != nil {
		return fmt.Errorf("action: scripted assign %s: %w", el.Selector, err)
	}
	actual, ok := v.(string)
	if !ok {
		return fmt.Errorf("action: scripted assign %s: element not found", el.Selector)
	}
	res.ActualValue = actual
	res.Success = true
	res.Confidence = 0.9
	return nil
}

// dispatchChangeScript fires a synthetic change event; native date
// inputs often only run their validation on change, which Playwright's
// Fill does not always trigger reliably across engines.
const dispatchChangeScript = `
(selector) => {
  const el = document.querySelector(selector);
  if (el) el.dispatchEvent(new Event('change', { bubbles: true }));
}
`

// fillDate handles date/datetime-local inputs (§4.3): fill the ISO
// value, dispatch change, read back and compare.
func fillDate(ctx context.Context, d browserdriver.Driver, el domsnap.Element, value string, res *Result) error {
	if err := d.Fill(ctx, el.Selector, value); err != nil {
		return fmt.Errorf("action: fill date %s: %w", el.Selector, err)
	}
	if _, err := d.Eval(ctx, dispatchChangeScript, el.Selector); err != nil {
		return fmt.Errorf("action: dispatch change on date %s: %w", el.Selector, err)
	}
	actual, err := d.Read(ctx, el.Selector)
	if err != nil {
		return fmt.Errorf("action: readback date %s: %w", el.Selector, err)
	}
	if !valuesEquivalent(actual, value) {
		return fmt.Errorf("action: date %s readback %q does not match expected %q", el.Selector, actual, value)
	}
	res.ActualValue = actual
	res.Success = true
	res.Confidence = 0.9
	return nil
}

func fillFile(ctx context.Context, d browserdriver.Driver, el domsnap.Element, path string, res *Result) error {
	if path == "" {
		return fmt.Errorf("action: no file path resolved for %s", el.Selector)
	}
	if err := d.SetInputFiles(ctx, el.Selector, path); err != nil {
		return fmt.Errorf("action: upload %s: %w", el.Selector, err)
	}
	res.ActualValue = path
	res.Success = true
	res.Confidence = 0.95
	return nil
}

func fillSelect(ctx context.Context, d browserdriver.Driver, el domsnap.Element, value string, res *Result) error {
	opts := el.Options
	if el.ControlKind == domsnap.CustomDropdown {
		if err := d.Click(ctx, el.Selector); err != nil {
			return fmt.Errorf("action: open custom dropdown %s: %w", el.Selector, err)
		}
		popupOpts, err := domsnap.FindCustomDropdownOptions(ctx, d, el.Selector)
		if err == nil && len(popupOpts) > 0 {
			opts = popupOpts
		}
	}
	if len(opts) == 0 {
		return fmt.Errorf("action: no options available for %s", el.Selector)
	}

	match, ok := MatchOption(value, opts, el.Name, el.Label)
	if !ok {
		return fmt.Errorf("action: no matching option for %q on %s", value, el.Selector)
	}

	if el.ControlKind == domsnap.CustomDropdown {
		optionSelector := fmt.Sprintf("[role=\"option\"]:has-text(%q), li:has-text(%q)", match.option.Text, match.option.Text)
		if err := d.Click(ctx, optionSelector); err != nil {
			return fmt.Errorf("action: click custom option %q: %w", match.option.Text, err)
		}
		res.ActualValue = match.option.Text
		res.Success = true
		res.Confidence = match.confidence
		return nil
	}

	loc := d.Page().Locator(el.Selector)
	if _, err := loc.SelectOption(playwright.SelectOptionValues{Values: &[]string{match.option.Value}}); err != nil {
		if _, err2 := loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{match.option.Text}}); err2 != nil {
			return fmt.Errorf("action: select option %q on %s: %w", match.option.Text, el.Selector, err2)
		}
	}
	res.ActualValue = match.option.Text
	res.Success = true
	res.Confidence = match.confidence
	return nil
}

func fillRadio(ctx context.Context, d browserdriver.Driver, el domsnap.Element, value string, res *Result) error {
	candidates, err := radioOptions(ctx, d, el)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("action: no radio options found for %s", el.Selector)
	}

	var best radioCandidate
	var bestConf float64
	for _, c := range candidates {
		conf := radioMatchConfidence(value, c.value, c.label, el.Name)
		if conf > bestConf {
			bestConf = conf
			best = c
		}
	}
	if bestConf <= 0.5 {
		return fmt.Errorf("action: no confident radio match for %q on %s", value, el.Selector)
	}
	if err := d.Click(ctx, best.selector); err != nil {
		return fmt.Errorf("action: click radio %s: %w", best.selector, err)
	}
	res.ActualValue = best.label
	res.Success = true
	res.Confidence = bestConf
	return nil
}

func fillCheckbox(ctx context.Context, d browserdriver.Driver, el domsnap.Element, value string, res *Result) error {
	shouldCheck := ShouldCheckCheckbox(value, el.Name, el.Label)
	loc := d.Page().Locator(el.Selector)
	checked, err := loc.IsChecked()
	if err != nil {
		return fmt.Errorf("action: read checkbox state %s: %w", el.Selector, err)
	}
	if checked != shouldCheck {
		if err := d.Click(ctx, el.Selector); err != nil {
			return fmt.Errorf("action: toggle checkbox %s: %w", el.Selector, err)
		}
	}
	if shouldCheck {
		res.ActualValue = "Checked"
	} else {
		res.ActualValue = "Not checked"
	}
	res.Success = true
	res.Confidence = 0.9
	return nil
}
