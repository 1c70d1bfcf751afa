// Package mapper is the Field Mapper (§4.4): it turns a Logical Group
// of DOM Element Records into Action Records, one data_path per
// element, first trying the Learning Store, then a rule-based keyword
// table, then falling back to an LLM semantic pass.
package mapper

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/polzovatel/applyagent/internal/domsnap"
	"github.com/polzovatel/applyagent/internal/learning"
	"github.com/polzovatel/applyagent/internal/llm"
	"github.com/polzovatel/applyagent/internal/platform"
	"github.com/polzovatel/applyagent/internal/profile"
	"github.com/polzovatel/applyagent/internal/schema"
)

// chunkThreshold is the element count above which an LLM pass is split
// into chunkSize-sized batches with a selector-keyed union merge
// (first resolution wins, §4.4).
const (
	chunkThreshold = 30
	chunkSize      = 20
)

// Mapping is one resolved field -> data path association (§3's Action
// Record, minus the actual fill outcome which the Action Executor
// reports separately).
type Mapping struct {
	Selector   string
	FieldKey   string
	Semantic   string
	DataPath   string
	Value      string
	Confidence float64
	Source     string // "learning", "rule", or "llm"
}

// Mapper resolves Logical Groups into field-level Mappings.
type Mapper struct {
	llm     llm.Client
	store   *learning.Store
	profile *profile.Profile
}

func New(client llm.Client, store *learning.Store, prof *profile.Profile) *Mapper {
	return &Mapper{llm: client, store: store, profile: prof}
}

// MapGroup resolves every element of group to a Mapping, preferring the
// Learning Store, then the rule-based keyword table, then the LLM —
// batching LLM calls at chunkSize and merging by selector (first
// resolution wins, §4.4).
func (m *Mapper) MapGroup(ctx context.Context, group domsnap.LogicalGroup, tag platform.Tag) ([]Mapping, error) {
	resolved := make(map[string]Mapping, len(group.Elements))
	var unresolved []domsnap.Element

	for _, el := range group.Elements {
		key := learning.FieldKey(el.Label, el.Placeholder, el.ID, patternTokens(el))
		if entry, ok := m.store.Lookup(key, patternTokens(el), tag); ok {
			if v, hasVal := m.profile.Get(entry.DataPath); hasVal {
				resolved[el.Selector] = Mapping{
					Selector: el.Selector, FieldKey: key, Semantic: entry.Semantic,
					DataPath: entry.DataPath, Value: v, Confidence: entry.Confidence, Source: "learning",
				}
				continue
			}
		}
		if rm, ok := ruleMatch(el); ok {
			if v, hasVal := m.profile.Get(rm.DataPath); hasVal {
				rm.Selector = el.Selector
				rm.FieldKey = key
				rm.Value = v
				resolved[el.Selector] = rm
				continue
			}
		}
		unresolved = append(unresolved, el)
	}

	if len(unresolved) > 0 && m.llm != nil {
		tips := learning.PlatformTips(tag)
		llmResolved, err := m.resolveViaLLM(ctx, unresolved, tag, tips)
		if err != nil {
			return nil, err
		}
		for selector, mp := range llmResolved {
			if _, already := resolved[selector]; !already {
				resolved[selector] = mp
			}
		}
	}

	out := make([]Mapping, 0, len(group.Elements))
	for _, el := range group.Elements {
		if mp, ok := resolved[el.Selector]; ok {
			out = append(out, mp)
		}
	}
	return out, nil
}

// RecognitionRate is the supplemented feature mirroring the original's
// FormAnalysisResult.recognition_rate: the share of elements a mapping
// pass actually resolved.
func RecognitionRate(total, mapped int) float64 {
	if total == 0 {
		return 0
	}
	return float64(mapped) / float64(total)
}

func patternTokens(el domsnap.Element) []string {
	source := strings.Join([]string{el.Label, el.Placeholder, el.ID, el.Name}, " ")
	fields := strings.FieldsFunc(strings.ToLower(source), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

// keywordRule is one entry of the rule-based fallback table, grounded
// on form_fields.py's FIELD_MAPPINGS.
type keywordRule struct {
	semantic string
	dataPath string
	keywords []string
	patterns []*regexp.Regexp
}

var keywordRules = buildKeywordRules()

func buildKeywordRules() []keywordRule {
	mk := func(semantic, dataPath string, keywords []string, patterns []string) keywordRule {
		res := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			res = append(res, regexp.MustCompile(p))
		}
		return keywordRule{semantic: semantic, dataPath: dataPath, keywords: keywords, patterns: res}
	}
	return []keywordRule{
		mk("first_name", "basic_info.first_name", []string{"first name", "fname", "given name"}, []string{`first.*name`}),
		mk("last_name", "basic_info.last_name", []string{"last name", "lname", "surname", "family name"}, []string{`last.*name`}),
		mk("email", "basic_info.email", []string{"email", "e-mail", "email address"}, []string{`e.?mail`}),
		mk("phone", "basic_info.phone", []string{"phone", "mobile", "cell", "telephone"}, []string{`phone`, `mobile`, `cell`}),
		mk("linkedin_url", "basic_info.linkedin", []string{"linkedin"}, []string{`linkedin`}),
		mk("github_url", "basic_info.github", []string{"github"}, []string{`github`}),
		mk("portfolio", "basic_info.website", []string{"portfolio", "website"}, []string{`portfolio`, `website`}),
		mk("current_company", "work_info.current_company", []string{"current company", "employer", "organization"}, []string{`current.*company`, `employer`}),
		mk("current_title", "work_info.current_title", []string{"current title", "job title", "position"}, []string{`title`, `position`}),
		mk("work_authorization", "legal_status.work_authorization", []string{"work authorization", "authorized to work", "visa status"}, []string{`work.*auth`, `visa.*status`}),
		mk("require_sponsorship", "legal_status.require_sponsorship", []string{"sponsorship", "require sponsorship", "visa sponsorship"}, []string{`sponsor`}),
		mk("city", "location.city", []string{"city"}, []string{`city`}),
		mk("state", "location.state", []string{"state", "province"}, []string{`state`, `province`}),
		mk("zip_code", "location.zip_code", []string{"zip", "postal"}, []string{`zip`, `postal`}),
		mk("country", "location.country", []string{"country"}, []string{`country`}),
		mk("school", "education.university", []string{"school", "university"}, []string{`school`, `university`}),
		mk("degree", "education.degree", []string{"degree"}, []string{`degree`}),
	}
}

// ruleFieldConfidence is the fixed confidence assigned to any rule-based
// hit (§4.4).
const ruleFieldConfidence = 0.7

func ruleMatch(el domsnap.Element) (Mapping, bool) {
	if el.ControlKind == domsnap.File {
		lower := strings.ToLower(el.Label + " " + el.Placeholder + " " + el.Name)
		if strings.Contains(lower, "resume") || strings.Contains(lower, "cv") {
			return Mapping{Semantic: "resume", DataPath: "files.resume.file_path", Confidence: ruleFieldConfidence, Source: "rule"}, true
		}
		if strings.Contains(lower, "cover") {
			return Mapping{Semantic: "cover_letter", DataPath: "files.cover_letter.file_path", Confidence: ruleFieldConfidence, Source: "rule"}, true
		}
		return Mapping{}, false
	}

	probe := strings.ToLower(strings.Join([]string{el.Label, el.Placeholder, el.Name, el.ID, el.AriaLabel}, " "))
	var best keywordRule
	found := false
	for _, rule := range keywordRules {
		matched := false
		for _, kw := range rule.keywords {
			if strings.Contains(probe, kw) {
				matched = true
				break
			}
		}
		if !matched {
			for _, re := range rule.patterns {
				if re.MatchString(probe) {
					matched = true
					break
				}
			}
		}
		if matched {
			best = rule
			found = true
			break
		}
	}
	if !found {
		return Mapping{}, false
	}
	return Mapping{Semantic: best.semantic, DataPath: best.dataPath, Confidence: ruleFieldConfidence, Source: "rule"}, true
}

// mappingSchema describes the expected LLM answer as a JSON Schema: an
// array of {selector, semantic, data_path, confidence}. It is not sent
// with the request; mapperSystemPrompt states the shape and the answer
// is decoded into []llmMapping.
var mappingSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selector":   map[string]any{"type": "string"},
			"semantic":   map[string]any{"type": "string"},
			"data_path":  map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number"},
		},
		"required": []string{"selector", "semantic", "data_path", "confidence"},
	},
}

type llmMapping struct {
	Selector   string  `json:"selector"`
	Semantic   string  `json:"semantic"`
	DataPath   string  `json:"data_path"`
	Confidence float64 `json:"confidence"`
}

func (m *Mapper) resolveViaLLM(ctx context.Context, elems []domsnap.Element, tag platform.Tag, tips []string) (map[string]Mapping, error) {
	if len(elems) <= chunkThreshold {
		return m.resolveChunk(ctx, elems, tag, tips)
	}

	out := map[string]Mapping{}
	for start := 0; start < len(elems); start += chunkSize {
		end := start + chunkSize
		if end > len(elems) {
			end = len(elems)
		}
		chunk := elems[start:end]
		mappings, err := m.resolveChunk(ctx, chunk, tag, tips)
		if err != nil {
			return nil, err
		}
		for selector, mp := range mappings {
			if _, already := out[selector]; !already {
				out[selector] = mp
			}
		}
	}
	return out, nil
}

func (m *Mapper) resolveChunk(ctx context.Context, elems []domsnap.Element, tag platform.Tag, tips []string) (map[string]Mapping, error) {
	prompt := buildPrompt(elems, tag, tips)
	resp, err := m.llm.Generate(ctx, llm.Request{
		System:      mapperSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.0,
		MaxTokens:   1500,
	})
	if err != nil {
		return nil, fmt.Errorf("mapper: llm call: %w", err)
	}

	decoded, ok := schema.Decode(resp.Text, []llmMapping{})
	if !ok {
		return nil, fmt.Errorf("mapper: could not decode LLM mapping output")
	}

	out := map[string]Mapping{}
	for _, lm := range decoded {
		if lm.Selector == "" || lm.DataPath == "" {
			continue
		}
		v, hasVal := m.profile.Get(lm.DataPath)
		if !hasVal {
			continue
		}
		out[lm.Selector] = Mapping{
			Selector: lm.Selector, FieldKey: lm.Semantic, Semantic: lm.Semantic,
			DataPath: lm.DataPath, Value: v,
			Confidence: schema.NormalizeConfidence(lm.Confidence), Source: "llm",
		}
	}
	return out, nil
}

// mapperSystemPrompt instructs the model to map form fields onto the
// candidate profile's dotted semantic paths, never inventing values.
const mapperSystemPrompt = `You map job application form fields to a candidate profile's data paths.
You will be given a list of form elements (selector, kind, label, placeholder, name) and the full set
of data paths available on the candidate profile (e.g. basic_info.first_name, work_info.current_title).
Respond with a JSON array only, no prose, no markdown fences. Each entry: {"selector": "...",
"semantic": "...", "data_path": "...", "confidence": 0.0-1.0}. Only map a field if you are
reasonably confident; omit fields you cannot map. Never invent a data_path that was not listed.`

// buildPrompt includes the Learning Store's platform-specific authoring
// tips as optional context only — a nudge, never authoritative, per
// §4.4's prompt-construction contract.
func buildPrompt(elems []domsnap.Element, tag platform.Tag, tips []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n\nForm elements:\n", tag)
	for _, el := range elems {
		fmt.Fprintf(&b, "- selector=%q kind=%s label=%q placeholder=%q name=%q\n",
			el.Selector, el.ControlKind, el.Label, el.Placeholder, el.Name)
	}
	if len(tips) > 0 {
		b.WriteString("\nKnown tips for this platform (context only, not authoritative):\n")
		for _, tip := range tips {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
	}
	b.WriteString("\nAvailable data paths:\n")
	for _, p := range profile.Paths() {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	return b.String()
}
