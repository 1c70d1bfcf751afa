// Package domsnap is the DOM Snapshotter (§4.2): it collects a page's
// interactive form controls into a compact, typed, position-ordered,
// logically grouped structure sized for an LLM prompt.
package domsnap

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/polzovatel/applyagent/internal/browserdriver"
)

// ControlKind is the closed set of interactive control kinds (§3).
type ControlKind string

const (
	Text           ControlKind = "text"
	Email          ControlKind = "email"
	Tel            ControlKind = "tel"
	URL            ControlKind = "url"
	Number         ControlKind = "number"
	Select         ControlKind = "select"
	CustomDropdown ControlKind = "custom_dropdown"
	Radio          ControlKind = "radio"
	Checkbox       ControlKind = "checkbox"
	Textarea       ControlKind = "textarea"
	File           ControlKind = "file"
	Date           ControlKind = "date"
	Hidden         ControlKind = "hidden"
)

// ValidControlKinds is the closed set §8's invariant checks against.
var ValidControlKinds = map[ControlKind]bool{
	Text: true, Email: true, Tel: true, URL: true, Number: true,
	Select: true, CustomDropdown: true, Radio: true, Checkbox: true,
	Textarea: true, File: true, Date: true, Hidden: true,
}

// Option is one entry of a select/custom-dropdown's option list.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Element is one DOM Element Record (§3).
type Element struct {
	Tag            string      `json:"tag"`
	ControlKind    ControlKind `json:"control_kind"`
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	AriaLabel      string      `json:"aria_label"`
	AriaLabelledBy string      `json:"aria_labelledby"`
	Role           string      `json:"role"`
	Label          string      `json:"label"`
	Placeholder    string      `json:"placeholder"`
	Visible        bool        `json:"visible"`
	Options        []Option    `json:"options,omitempty"`
	Value          string      `json:"value"`
	Selector       string      `json:"selector"`
	Group          string      `json:"group"`

	// x, y are the sort key used to derive on-screen position order;
	// dropped before export (§4.2 "drop it before export").
	x, y float64
}

// LogicalGroup is a named bucket of Element Records derived from the
// nearest enclosing fieldset/role=group/form-section (§3).
type LogicalGroup struct {
	Name     string    `json:"name"`
	Elements []Element `json:"elements"`
}

// GroupCap is G in §3/§4.2: oversize groups split deterministically.
const GroupCap = 50

// Collect runs the two-tier snapshot algorithm: CDP accessibility tree
// first (sees virtualized/off-screen elements), falling back to an
// injected JS walk. It never returns an error — a total failure yields
// an empty slice so the Orchestrator can surface SNAPSHOT_EMPTY (§4.2,
// §7).
func Collect(ctx context.Context, d browserdriver.Driver, log zerolog.Logger) []LogicalGroup {
	if err := ctx.Err(); err != nil {
		return nil
	}

	elems, err := collectViaCDP(ctx, d)
	if err != nil || len(elems) == 0 {
		if err != nil {
			log.Debug().Err(err).Msg("domsnap: CDP tier unavailable, falling back to JS extraction")
		}
		elems, err = collectViaJS(ctx, d)
		if err != nil {
			log.Warn().Err(err).Msg("domsnap: JS extraction failed")
			return nil
		}
	}

	sortByPosition(elems)
	return groupAndSplit(elems)
}

func sortByPosition(elems []Element) {
	const verticalTolerance = 10.0
	sort.SliceStable(elems, func(i, j int) bool {
		a, b := elems[i], elems[j]
		if abs(a.y-b.y) <= verticalTolerance {
			return a.x < b.x
		}
		return a.y < b.y
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
