// Package orchestrator is the Workflow Orchestrator (§4.8): it drives
// one application attempt through an explicit state machine — load,
// analyze, decide, either chase a CTA or fill the form, validate, and
// either submit (only on explicit opt-in) or stop short for a human.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/applyagent/internal/action"
	"github.com/polzovatel/applyagent/internal/browserdriver"
	"github.com/polzovatel/applyagent/internal/domsnap"
	"github.com/polzovatel/applyagent/internal/learning"
	"github.com/polzovatel/applyagent/internal/llm"
	"github.com/polzovatel/applyagent/internal/mapper"
	"github.com/polzovatel/applyagent/internal/pageanalyze"
	"github.com/polzovatel/applyagent/internal/platform"
	"github.com/polzovatel/applyagent/internal/profile"
	"github.com/polzovatel/applyagent/internal/session"
	"github.com/polzovatel/applyagent/internal/telemetry"
	"github.com/polzovatel/applyagent/internal/validate"
)

// State is one node of the §4.8 state machine.
type State string

const (
	StateStart       State = "START"
	StateLoading     State = "LOADING"
	StateAnalyzing   State = "ANALYZING"
	StateDeciding    State = "DECIDING"
	StateClickingCTA State = "CLICKING_CTA"
	StateFilling     State = "FILLING"
	StateValidating  State = "VALIDATING"
	StateAbortLogin  State = "ABORT_LOGIN"
	StateAbortHuman  State = "ABORT_HUMAN"
	StateDone        State = "DONE"
	StateError       State = "ERROR"
)

const (
	// MaxCTAHops is H in §4.8: how many CTA clicks the orchestrator will
	// chase before giving up and asking for a human.
	MaxCTAHops = 3
	// MaxFieldRetries is the per-field retry cap (§4.8): how many extra
	// fill attempts a field gets when the Action Executor reports failure.
	// A field that fills but then fails post-fill validation is not
	// re-filled.
	MaxFieldRetries = 2
	// SuccessRatioThreshold gates whether a run is allowed to submit
	// (§4.8, §9 Open Question: kept as a named, overridable constant
	// rather than made configurable per profile).
	SuccessRatioThreshold = 0.7
	// MinPageConfidence is the Page Analyzer's own should_proceed floor.
	MinPageConfidence = 0.6
	// MinRecognitionRate is the supplemented low floor (form_fields.py's
	// FormAnalysisResult.recognition_rate): below this share of fields
	// understood, a form isn't worth attempting at all. Distinct from
	// SuccessRatioThreshold, which gates execution success, not
	// comprehension.
	MinRecognitionRate = 0.3

	snapshotRetryLimit = 1
)

// Result is the end-of-run summary the CLI prints (§4.8).
type Result struct {
	FinalState   State
	FieldsTotal  int
	FieldsValid  int
	SuccessRatio float64
	Submitted    bool
	AbortReason  string
}

// Orchestrator wires every component into one application attempt.
type Orchestrator struct {
	driver  browserdriver.Driver
	llm     llm.Client
	profile *profile.Profile
	store   *learning.Store
	sink    *telemetry.Sink
	sess    *session.Session
	log     zerolog.Logger
}

func New(d browserdriver.Driver, client llm.Client, prof *profile.Profile, store *learning.Store, sink *telemetry.Sink, sess *session.Session, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{driver: d, llm: client, profile: prof, store: store, sink: sink, sess: sess, log: log}
}

// Run drives one application attempt starting at url. submit gates the
// final submit click: it is never clicked implicitly (§1, §4.8).
func (o *Orchestrator) Run(ctx context.Context, url string, submit bool) (Result, error) {
	tag := platform.Detect(url)
	state := StateStart

	state = StateLoading
	if err := o.driver.Navigate(ctx, url); err != nil {
		return o.fail(ctx, state, telemetry.NavFailed, "navigate: "+err.Error())
	}

	if captcha, _ := o.driver.DetectCaptcha(ctx); captcha {
		return o.fail(ctx, state, telemetry.CaptchaDetected, "captcha detected on initial load")
	}

	emptySnapshots := 0
	for hop := 0; ; hop++ {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, state, telemetry.NavTimeout, "session deadline exceeded: "+err.Error())
		}
		state = StateAnalyzing
		analysis, err := o.analyzeCurrentPage(ctx, url)
		if err != nil {
			return o.fail(ctx, state, telemetry.SnapshotEmpty, "page analysis failed: "+err.Error())
		}

		state = StateDeciding
		switch analysis.RecommendedKind {
		case pageanalyze.LoginRequired:
			return o.fail(ctx, StateAbortLogin, telemetry.LoginRequired, "login wall detected")
		case pageanalyze.FillForm:
			goto fill
		case pageanalyze.ClickCTA:
			if hop >= MaxCTAHops {
				return o.fail(ctx, StateAbortHuman, "", fmt.Sprintf("exceeded %d CTA hops without reaching a form", MaxCTAHops))
			}
			if !pageanalyze.ShouldProceed(analysis, MinPageConfidence) || len(analysis.CTACandidates) == 0 {
				return o.fail(ctx, StateAbortHuman, "", "no confident CTA candidate")
			}
			state = StateClickingCTA
			best := analysis.CTACandidates[0]
			if err := o.driver.Click(ctx, best.Selector); err != nil {
				return o.fail(ctx, state, telemetry.SelectorNotFound, "click CTA: "+err.Error())
			}
			time.Sleep(1 * time.Second)
			continue
		default:
			return o.fail(ctx, StateAbortHuman, "", fmt.Sprintf("recommended action %q requires a human", analysis.RecommendedKind))
		}
	}

fill:
	state = StateFilling
	groups := domsnap.Collect(ctx, o.driver, o.log)
	for len(groups) == 0 && emptySnapshots < snapshotRetryLimit {
		emptySnapshots++
		time.Sleep(1 * time.Second)
		groups = domsnap.Collect(ctx, o.driver, o.log)
	}
	if len(groups) == 0 {
		return o.fail(ctx, state, telemetry.SnapshotEmpty, "no fillable groups found after retry")
	}

	m := mapper.New(o.llm, o.store, o.profile)
	groupMappings, elementCount, mappedCount := o.mapGroups(ctx, groups, m, tag)

	if rate := mapper.RecognitionRate(elementCount, mappedCount); elementCount > 0 && rate < MinRecognitionRate {
		reason := fmt.Sprintf(
			"recognition rate %.2f below floor %.2f (%d/%d fields understood) — not worth attempting",
			rate, MinRecognitionRate, mappedCount, elementCount)
		o.screenshotAndError(ctx, telemetry.SnapshotEmpty, reason, "low-recognition")
		return Result{FinalState: StateAbortHuman, AbortReason: reason}, nil
	}

	results, total, valid := o.fillGroups(ctx, groupMappings, tag)

	state = StateValidating
	if total == 0 {
		// A form with zero interactive elements is a legitimate empty
		// result, not a failure: nothing to fill, nothing to validate.
		return Result{FinalState: StateDone, SuccessRatio: 0}, nil
	}
	ratio := float64(valid) / float64(total)

	res := Result{FinalState: StateDone, FieldsTotal: total, FieldsValid: valid, SuccessRatio: ratio}
	if ratio < SuccessRatioThreshold {
		res.FinalState = StateAbortHuman
		res.AbortReason = fmt.Sprintf("fill success ratio %.2f below threshold %.2f", ratio, SuccessRatioThreshold)
		o.screenshotAndError(ctx, telemetry.FillVerifyMismatch, url, "low-success-ratio")
		return res, nil
	}

	if submit {
		if err := o.clickSubmit(ctx); err != nil {
			res.FinalState = StateError
			res.AbortReason = "submit: " + err.Error()
			o.screenshotAndError(ctx, telemetry.SelectorNotFound, url, "submit-failure")
			return res, nil
		}
		res.Submitted = true
	}

	o.sink.Success(url, map[string]any{
		"fields_total": total, "fields_valid": valid, "results": len(results), "submitted": res.Submitted,
	})
	return res, nil
}

// groupMapping pairs a Logical Group's elements with their resolved
// Mappings, keyed by selector, so the recognition-rate gate can run
// between mapping and filling without re-invoking the Field Mapper.
type groupMapping struct {
	elements []domsnap.Element
	mapped   map[string]mapper.Mapping
}

// mapGroups resolves every group via the Field Mapper and reports how
// many of the total elements it actually understood — the supplemented
// recognition-rate metric (form_fields.py's FormAnalysisResult), which
// the orchestrator gates on before spending any fill attempts.
func (o *Orchestrator) mapGroups(ctx context.Context, groups []domsnap.LogicalGroup, m *mapper.Mapper, tag platform.Tag) ([]groupMapping, int, int) {
	var out []groupMapping
	total, mapped := 0, 0

	for _, group := range groups {
		total += len(group.Elements)
		mappings, err := m.MapGroup(ctx, group, tag)
		if err != nil {
			o.log.Warn().Err(err).Str("group", group.Name).Msg("orchestrator: mapping failed for group")
			continue
		}
		bySelector := make(map[string]mapper.Mapping, len(mappings))
		for _, mp := range mappings {
			bySelector[mp.Selector] = mp
		}
		mapped += len(bySelector)
		out = append(out, groupMapping{elements: group.Elements, mapped: bySelector})
	}
	return out, total, mapped
}

func (o *Orchestrator) fillGroups(ctx context.Context, groups []groupMapping, tag platform.Tag) ([]action.Result, int, int) {
	var results []action.Result
	var filled []validate.Filled
	total, valid := 0, 0

	for _, group := range groups {
		for _, el := range group.elements {
			mp, ok := group.mapped[el.Selector]
			if !ok {
				continue
			}
			total++
			res := o.fillWithRetry(ctx, el, mp)
			results = append(results, res)
			if res.Success {
				expected := res.ActualValue
				if el.ControlKind == domsnap.Checkbox {
					// The validator reads checkbox state back as "true"/"false".
					expected = strconv.FormatBool(res.ActualValue == "Checked")
				}
				filled = append(filled, validate.Filled{Selector: el.Selector, SemanticKey: mp.Semantic, ExpectedValue: expected})
			}
		}
	}

	validate.WaitForValidationComplete(ctx, o.driver)
	report := validate.ValidateAll(ctx, o.driver, filled)
	for _, r := range report.AllResults {
		if r.Valid {
			valid++
			key := learning.FieldKey(r.SemanticKey, "", "", nil)
			o.store.Record(key, r.SemanticKey, r.SemanticKey, r.ActualValue, "validated fill", tag)
		}
	}
	return results, total, valid
}

// fillWithRetry applies the §4.8 per-field retry cap: a field gets up
// to MaxFieldRetries additional attempts if the Action Executor itself
// reports failure (not a post-fill validation failure, which is the
// Field Validator's job).
func (o *Orchestrator) fillWithRetry(ctx context.Context, el domsnap.Element, mp mapper.Mapping) action.Result {
	var res action.Result
	for attempt := 0; attempt <= MaxFieldRetries; attempt++ {
		res = action.Fill(ctx, o.driver, el, mp.Value, o.log)
		if res.Success {
			return res
		}
	}
	return res
}

func (o *Orchestrator) analyzeCurrentPage(ctx context.Context, url string) (pageanalyze.Analysis, error) {
	title, _ := o.driver.Eval(ctx, "() => document.title", nil)
	titleStr, _ := title.(string)
	content, err := o.driver.Read(ctx, "")
	if err != nil {
		return pageanalyze.Analysis{}, err
	}
	buttons, forms := o.collectButtonsAndForms(ctx)
	return pageanalyze.Analyze(ctx, o.llm, url, titleStr, content, buttons, forms)
}

const buttonsAndFormsScript = `
() => {
  const buttons = Array.from(document.querySelectorAll('button, a[role="button"], input[type="submit"], input[type="button"]'))
    .map((el, i) => ({ text: (el.textContent || el.value || '').trim(), selector: el.id ? ('#' + CSS.escape(el.id)) : (':nth-match(button, ' + (i + 1) + ')') }));
  const forms = Array.from(document.querySelectorAll('form')).map((f, i) => ({ selector: f.id ? ('#' + CSS.escape(f.id)) : (':nth-match(form, ' + (i + 1) + ')') }));
  return { buttons, forms };
}
`

func (o *Orchestrator) collectButtonsAndForms(ctx context.Context) ([]pageanalyze.Button, []pageanalyze.Form) {
	v, err := o.driver.Eval(ctx, buttonsAndFormsScript, nil)
	if err != nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, nil
	}
	var buttons []pageanalyze.Button
	if raw, ok := m["buttons"].([]any); ok {
		for _, b := range raw {
			bm, ok := b.(map[string]any)
			if !ok {
				continue
			}
			text, _ := bm["text"].(string)
			sel, _ := bm["selector"].(string)
			buttons = append(buttons, pageanalyze.Button{Text: text, Selector: sel})
		}
	}
	var forms []pageanalyze.Form
	if raw, ok := m["forms"].([]any); ok {
		for _, f := range raw {
			fm, ok := f.(map[string]any)
			if !ok {
				continue
			}
			sel, _ := fm["selector"].(string)
			forms = append(forms, pageanalyze.Form{Selector: sel})
		}
	}
	return buttons, forms
}

// submitSelectors are tried in order; the first visible match wins.
// There is no AI guess here — submission is explicit and deterministic
// once the orchestrator has decided to submit (§1 Non-goals: never
// submit without the operator's opt-in).
var submitSelectors = []string{
	"button[type=\"submit\"]",
	"input[type=\"submit\"]",
	"button:has-text(\"Submit\")",
	"button:has-text(\"Apply\")",
}

func (o *Orchestrator) clickSubmit(ctx context.Context) error {
	var lastErr error
	for _, sel := range submitSelectors {
		if err := o.driver.Click(ctx, sel); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("no submit control matched: %w", lastErr)
}

func (o *Orchestrator) fail(ctx context.Context, state State, kind telemetry.Kind, reason string) (Result, error) {
	if kind != "" {
		o.screenshotAndError(ctx, kind, reason, strings.ToLower(string(state))+"-failure")
	}
	return Result{FinalState: state, AbortReason: reason}, nil
}

// screenshotAndError best-effort captures the page before recording a
// fatal event; a failed screenshot never blocks the telemetry write.
func (o *Orchestrator) screenshotAndError(ctx context.Context, kind telemetry.Kind, eventContext, name string) {
	shotPath := o.sess.ScreenshotPath(name)
	if err := o.driver.Screenshot(ctx, shotPath); err != nil {
		shotPath = ""
	}
	o.sink.ErrorWithScreenshot(kind, eventContext, shotPath, nil)
}
