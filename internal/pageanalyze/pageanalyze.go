// Package pageanalyze is the Page Analyzer (§4.7): it classifies a
// page (job listing, application form, login wall, ...) and ranks CTA
// candidates via a schema-validated LLM call, with a deterministic
// repair pass over the raw response.
package pageanalyze

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/polzovatel/applyagent/internal/llm"
	"github.com/polzovatel/applyagent/internal/schema"
)

// PageKind is the closed page-type enum (§3).
type PageKind string

const (
	JobDetail         PageKind = "job_detail"
	JobDetailWithForm PageKind = "job_detail_with_form"
	FormPage          PageKind = "form_page"
	LoginPage         PageKind = "login_page"
	ExternalRedirect  PageKind = "external_redirect"
	UnknownPage       PageKind = "unknown"
)

var validPageKinds = map[PageKind]bool{
	JobDetail: true, JobDetailWithForm: true, FormPage: true,
	LoginPage: true, ExternalRedirect: true, UnknownPage: true,
}

// ActionKind is the closed recommended-action enum (§3).
type ActionKind string

const (
	FillForm      ActionKind = "fill_form"
	ClickCTA      ActionKind = "click_cta"
	LoginRequired ActionKind = "login_required"
	WaitForHuman  ActionKind = "wait_for_human"
	NoAction      ActionKind = "no_action"
)

var validActionKinds = map[ActionKind]bool{
	FillForm: true, ClickCTA: true, LoginRequired: true, WaitForHuman: true, NoAction: true,
}

// CTACandidate is a ranked call-to-action element (§3).
type CTACandidate struct {
	Text          string         `json:"text"`
	Selector      string         `json:"selector"`
	Confidence    float64        `json:"confidence"`
	ElementType   string         `json:"element_type"`
	Attributes    map[string]any `json:"attributes"`
	PriorityScore int            `json:"priority_score"`
}

// Button and Form are the coarse page-content inputs the caller
// extracts before invoking Analyze (§4.7).
type Button struct {
	Text     string `json:"text"`
	Selector string `json:"selector"`
}

type Form struct {
	Selector string `json:"selector"`
}

// Analysis is the Page Analysis record (§3).
type Analysis struct {
	PageKind        PageKind       `json:"page_type"`
	Confidence      float64        `json:"confidence"`
	Title           string         `json:"title"`
	URL             string         `json:"url"`
	FormCount       int            `json:"form_count"`
	HasApplyButton  bool           `json:"has_apply_button"`
	CTACandidates   []CTACandidate `json:"cta_candidates"`
	Reasoning       string         `json:"reasoning"`
	RecommendedKind ActionKind     `json:"recommended_action_type"`
	ActionConf      float64        `json:"recommended_action_confidence"`
}

// maxContentChars is the cap §4.7 puts on extracted page text before
// it reaches the LLM prompt.
const maxContentChars = 5000

var stripTags = regexp.MustCompile(`(?is)<(script|style|nav|footer)[^>]*>.*?</(script|style|nav|footer)>`)
var tagRe = regexp.MustCompile(`(?s)<[^>]+>`)

// ExtractContent strips script/style/nav/footer elements out of raw
// HTML-ish text, then caps it to maxContentChars (§4.7). Ad blocks are
// not recognized and stay in the text. It is a
// best-effort extractor, not an HTML parser: callers that already have
// rendered text (e.g. from the Browser Driver's Read) can skip this.
func ExtractContent(raw string) string {
	cleaned := stripTags.ReplaceAllString(raw, "")
	cleaned = tagRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if len(cleaned) > maxContentChars {
		cleaned = cleaned[:maxContentChars]
	}
	return cleaned
}

var analysisSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"page_type":       map[string]any{"type": "string"},
		"confidence":      map[string]any{"type": "number"},
		"form_count":      map[string]any{"type": "integer"},
		"has_apply_button": map[string]any{"type": "boolean"},
		"cta_candidates":  map[string]any{"type": "array"},
		"reasoning":       map[string]any{"type": "string"},
	},
}

type rawAnalysis struct {
	PageType       string         `json:"page_type"`
	Confidence     float64        `json:"confidence"`
	FormCount      int            `json:"form_count"`
	HasApplyButton bool           `json:"has_apply_button"`
	CTACandidates  []CTACandidate `json:"cta_candidates"`
	Reasoning      string         `json:"reasoning"`
	RecommendedAction struct {
		ActionType string  `json:"action_type"`
		Confidence float64 `json:"confidence"`
	} `json:"recommended_action"`
}

const analyzerSystemPrompt = `You classify a job-application web page and recommend the next action.
Respond with JSON only, no markdown fences, no prose. Shape:
{"page_type": "job_detail|job_detail_with_form|form_page|login_page|external_redirect|unknown",
 "confidence": 0.0-1.0, "form_count": int, "has_apply_button": bool,
 "cta_candidates": [{"text":"...", "selector":"...", "confidence":0.0-1.0, "element_type":"button|a|input",
   "attributes":{}, "priority_score": int}],
 "reasoning": "...",
 "recommended_action": {"action_type": "fill_form|click_cta|login_required|wait_for_human|no_action",
   "confidence": 0.0-1.0}}
If no form is present but the page plausibly leads to one, recommend click_cta. If the page is a
login wall, recommend login_required. When uncertain, recommend wait_for_human with low confidence.`

// Analyze classifies the page and ranks its CTA candidates (§4.7).
func Analyze(ctx context.Context, client llm.Client, url, title, content string, buttons []Button, forms []Form) (Analysis, error) {
	content = ExtractContent(content)
	prompt := buildPrompt(url, title, content, buttons, forms)

	resp, err := client.Generate(ctx, llm.Request{
		System:      analyzerSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.0,
		MaxTokens:   1200,
	})
	if err != nil {
		return fallbackAnalysis(url, title, fmt.Sprintf("llm call failed: %v", err)), nil
	}

	raw, ok := schema.Decode(resp.Text, rawAnalysis{})
	if !ok {
		return fallbackAnalysis(url, title, "could not decode analyzer output"), nil
	}

	return repair(raw, url, title), nil
}

// repair applies the §4.7 defaulting rules to a raw decoded response:
// illegal enums fall back to unknown/wait_for_human, out-of-range
// confidences are rescaled, and CTA candidates with a malformed
// element_type default to "button".
func repair(raw rawAnalysis, url, title string) Analysis {
	kind := PageKind(raw.PageType)
	if !validPageKinds[kind] {
		kind = UnknownPage
	}

	cand := make([]CTACandidate, 0, len(raw.CTACandidates))
	for _, c := range raw.CTACandidates {
		c.Confidence = schema.NormalizeConfidence(c.Confidence)
		if c.ElementType == "" || !validElementTypes[c.ElementType] {
			c.ElementType = "button"
		}
		cand = append(cand, c)
	}
	sort.SliceStable(cand, func(i, j int) bool {
		if cand[i].Confidence != cand[j].Confidence {
			return cand[i].Confidence > cand[j].Confidence
		}
		return cand[i].PriorityScore > cand[j].PriorityScore
	})

	// §3 consistency: form_page|job_detail_with_form ⇒ form_count>0, and
	// a form_count>0 page classified as a bare job_detail should be
	// reclassified up rather than left inconsistent with the form count.
	switch {
	case kind == JobDetail && raw.FormCount > 0:
		kind = JobDetailWithForm
	case kind == JobDetailWithForm && raw.FormCount == 0:
		kind = JobDetail
	case kind == FormPage && raw.FormCount == 0:
		kind = UnknownPage
	}

	action := ActionKind(raw.RecommendedAction.ActionType)
	if !validActionKinds[action] {
		action = WaitForHuman
	}
	actionConf := schema.NormalizeConfidence(raw.RecommendedAction.Confidence)

	// §3 consistency: fill_form only with forms; click_cta requires a
	// target candidate and never applies once a form is already present
	// on a form page — fill it instead of chasing another CTA.
	switch {
	case action == FillForm && raw.FormCount == 0:
		action = WaitForHuman
	case action == ClickCTA && len(cand) == 0:
		action = WaitForHuman
	case action == ClickCTA && kind == FormPage && raw.FormCount > 0:
		action = FillForm
	}

	hasApply := raw.HasApplyButton
	if hasApply && len(cand) == 0 {
		hasApply = false
	}

	return Analysis{
		PageKind: kind, Confidence: schema.NormalizeConfidence(raw.Confidence),
		Title: title, URL: url, FormCount: raw.FormCount, HasApplyButton: hasApply,
		CTACandidates: cand, Reasoning: raw.Reasoning,
		RecommendedKind: action, ActionConf: actionConf,
	}
}

var validElementTypes = map[string]bool{"button": true, "a": true, "input": true}

func fallbackAnalysis(url, title, reason string) Analysis {
	return Analysis{
		PageKind: UnknownPage, Confidence: 0, Title: title, URL: url,
		FormCount: 0, HasApplyButton: false, CTACandidates: nil,
		Reasoning: reason, RecommendedKind: WaitForHuman, ActionConf: 0,
	}
}

func buildPrompt(url, title, content string, buttons []Button, forms []Form) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nTitle: %s\n\nContent:\n%s\n\nButtons:\n", url, title, content)
	for _, btn := range buttons {
		fmt.Fprintf(&b, "- %q (selector=%q)\n", btn.Text, btn.Selector)
	}
	fmt.Fprintf(&b, "\nForms: %d\n", len(forms))
	for _, f := range forms {
		fmt.Fprintf(&b, "- %s\n", f.Selector)
	}
	return b.String()
}

// ShouldProceed is the §4.7 decision function: the recommended action
// must clear minConfidence, and fill_form/click_cta additionally need
// their structural preconditions (a form present, a CTA candidate
// present) satisfied.
func ShouldProceed(a Analysis, minConfidence float64) bool {
	if a.ActionConf < minConfidence {
		return false
	}
	switch a.RecommendedKind {
	case FillForm:
		return a.FormCount > 0 && (a.PageKind == JobDetailWithForm || a.PageKind == FormPage)
	case ClickCTA:
		if a.PageKind != JobDetail && a.PageKind != JobDetailWithForm {
			return false
		}
		return len(a.CTACandidates) > 0 && a.CTACandidates[0].Confidence >= minConfidence
	default:
		return false
	}
}
