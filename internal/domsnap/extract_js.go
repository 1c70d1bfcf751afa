package domsnap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/polzovatel/applyagent/internal/browserdriver"
)

// rawElement mirrors the JSON shape produced by extractionScript.
type rawElement struct {
	Tag            string   `json:"tag"`
	Type           string   `json:"type"`
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	AriaLabel      string   `json:"ariaLabel"`
	AriaLabelledBy string   `json:"ariaLabelledBy"`
	Role           string   `json:"role"`
	Label          string   `json:"label"`
	Placeholder    string   `json:"placeholder"`
	Visible        bool     `json:"visible"`
	Value          string   `json:"value"`
	Selector       string   `json:"selector"`
	Group          string   `json:"group"`
	IsCustom       bool     `json:"isCustomDropdown"`
	OptionValues   []string `json:"optionValues"`
	OptionTexts    []string `json:"optionTexts"`
	X              float64  `json:"x"`
	Y              float64  `json:"y"`
}

// extractionScript walks the top document's light DOM looking for form
// controls, label-based ARIA widgets, and custom dropdown triggers;
// shadow roots and iframes are not searched. It resolves each control's
// label using the
// §4.2 precedence (label[for] > nearest ancestor label > nearest
// preceding-sibling label), skips hidden controls (except file/hidden
// inputs, which are kept so the Action Executor can still target them),
// and dedups by id||name||synthetic index.
const extractionScript = `
() => {
  const CANDIDATES = [
    'input', 'select', 'textarea', '[contenteditable="true"]',
    '[role="combobox"]', '[role="listbox"]', '[role="radio"]', '[role="checkbox"]'
  ].join(',');

  function isHidden(el) {
    const cs = window.getComputedStyle(el);
    return cs.display === 'none' || cs.visibility === 'hidden' || el.hidden === true;
  }

  function labelFor(el) {
    if (el.id) {
      const lbl = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
      if (lbl && lbl.textContent.trim()) return lbl.textContent.trim();
    }
    let anc = el.closest('label');
    if (anc && anc.textContent.trim()) return anc.textContent.trim();
    let sib = el.previousElementSibling;
    while (sib) {
      if (sib.tagName === 'LABEL' && sib.textContent.trim()) return sib.textContent.trim();
      sib = sib.previousElementSibling;
    }
    return '';
  }

  function nearestGroup(el) {
    const container = el.closest('fieldset, [role="group"], [class*="form-section"], [class*="field-group"]');
    if (!container) return 'default';
    const legend = container.querySelector('legend, [class*="section-title"], h2, h3');
    if (legend && legend.textContent.trim()) return legend.textContent.trim();
    return container.id || 'default';
  }

  function selectorFor(el, idx) {
    if (el.id) return '#' + CSS.escape(el.id);
    if (el.name) return el.tagName.toLowerCase() + '[name="' + CSS.escape(el.name) + '"]';
    return ':nth-match(' + el.tagName.toLowerCase() + ', ' + (idx + 1) + ')';
  }

  const seen = new Set();
  const out = [];
  let idx = 0;
  document.querySelectorAll(CANDIDATES).forEach((el) => {
    const key = el.id || el.name || ('synthetic_' + idx);
    if (seen.has(key)) { idx++; return; }
    seen.add(key);

    const type = (el.getAttribute('type') || '').toLowerCase();
    const hidden = isHidden(el);
    if (hidden && type !== 'file' && type !== 'hidden') { idx++; return; }

    const rect = el.getBoundingClientRect();
    const opts = [];
    const optTexts = [];
    if (el.tagName === 'SELECT') {
      el.querySelectorAll('option').forEach((o) => { opts.push(o.value); optTexts.push(o.textContent.trim()); });
    }

    out.push({
      tag: el.tagName.toLowerCase(),
      type: type,
      id: el.id || '',
      name: el.name || '',
      ariaLabel: el.getAttribute('aria-label') || '',
      ariaLabelledBy: el.getAttribute('aria-labelledby') || '',
      role: el.getAttribute('role') || '',
      label: labelFor(el),
      placeholder: el.getAttribute('placeholder') || '',
      visible: !hidden,
      value: el.value !== undefined ? String(el.value) : '',
      selector: selectorFor(el, idx),
      group: nearestGroup(el),
      isCustomDropdown: el.getAttribute('role') === 'combobox' || el.getAttribute('aria-haspopup') === 'listbox',
      optionValues: opts,
      optionTexts: optTexts,
      x: rect.left,
      y: rect.top,
    });
    idx++;
  });
  return out;
}
`

func collectViaJS(ctx context.Context, d browserdriver.Driver) ([]Element, error) {
	v, err := d.Eval(ctx, extractionScript, nil)
	if err != nil {
		return nil, fmt.Errorf("domsnap: js extraction: %w", err)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("domsnap: re-encode js result: %w", err)
	}
	var raws []rawElement
	if err := json.Unmarshal(encoded, &raws); err != nil {
		return nil, fmt.Errorf("domsnap: decode js result: %w", err)
	}

	out := make([]Element, 0, len(raws))
	for _, r := range raws {
		out = append(out, rawToElement(r))
	}
	return out, nil
}

func rawToElement(r rawElement) Element {
	opts := make([]Option, 0, len(r.OptionValues))
	for i := range r.OptionValues {
		text := r.OptionValues[i]
		if i < len(r.OptionTexts) {
			text = r.OptionTexts[i]
		}
		opts = append(opts, Option{Value: r.OptionValues[i], Text: text})
	}
	return Element{
		Tag:            r.Tag,
		ControlKind:    classify(r),
		ID:             r.ID,
		Name:           r.Name,
		AriaLabel:      r.AriaLabel,
		AriaLabelledBy: r.AriaLabelledBy,
		Role:           r.Role,
		Label:          r.Label,
		Placeholder:    r.Placeholder,
		Visible:        r.Visible,
		Options:        opts,
		Value:          r.Value,
		Selector:       r.Selector,
		Group:          r.Group,
		x:              r.X,
		y:              r.Y,
	}
}

// classify maps a raw tag/type/role combination onto the closed
// ControlKind set (§3).
func classify(r rawElement) ControlKind {
	switch r.Tag {
	case "select":
		if r.IsCustom {
			return CustomDropdown
		}
		return Select
	case "textarea":
		return Textarea
	case "div", "span", "ul":
		if r.IsCustom || r.Role == "combobox" || r.Role == "listbox" {
			return CustomDropdown
		}
	}
	if r.Role == "radio" {
		return Radio
	}
	if r.Role == "checkbox" {
		return Checkbox
	}
	switch r.Type {
	case "email":
		return Email
	case "tel":
		return Tel
	case "url":
		return URL
	case "number":
		return Number
	case "radio":
		return Radio
	case "checkbox":
		return Checkbox
	case "file":
		return File
	case "date", "datetime-local", "month", "week":
		return Date
	case "hidden":
		return Hidden
	}
	if r.Tag == "div" && r.AriaLabel == "" && r.Role == "" {
		return Text
	}
	return Text
}
