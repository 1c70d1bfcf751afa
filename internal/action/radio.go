package action

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/polzovatel/applyagent/internal/browserdriver"
	"github.com/polzovatel/applyagent/internal/domsnap"
)

type radioCandidate struct {
	selector string
	value    string
	label    string
}

// radioGroupScript finds every radio sharing el's name attribute and
// resolves each one's label the same way the DOM Snapshotter does
// (label[for] first, then the nearest ancestor <label>).
const radioGroupScript = `
(name) => {
  const radios = Array.from(document.querySelectorAll('input[type="radio"][name="' + CSS.escape(name) + '"]'));
  return radios.map((r, i) => {
    let label = '';
    if (r.id) {
      const lbl = document.querySelector('label[for="' + CSS.escape(r.id) + '"]');
      if (lbl) label = lbl.textContent.trim();
    }
    if (!label) {
      const anc = r.closest('label');
      if (anc) label = anc.textContent.trim();
    }
    return {
      value: r.value || '',
      label: label,
      selector: r.id ? ('#' + CSS.escape(r.id)) : (':nth-match(input[type="radio"][name="' + CSS.escape(name) + '"], ' + (i + 1) + ')'),
    };
  });
}
`

func radioOptions(ctx context.Context, d browserdriver.Driver, el domsnap.Element) ([]radioCandidate, error) {
	name := el.Name
	if name == "" {
		return nil, fmt.Errorf("action: radio element %s has no name attribute to group by", el.Selector)
	}
	v, err := d.Eval(ctx, radioGroupScript, name)
	if err != nil {
		return nil, fmt.Errorf("action: enumerate radio group %q: %w", name, err)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("action: re-encode radio group: %w", err)
	}
	var raw []struct {
		Value    string `json:"value"`
		Label    string `json:"label"`
		Selector string `json:"selector"`
	}
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return nil, fmt.Errorf("action: decode radio group: %w", err)
	}
	out := make([]radioCandidate, 0, len(raw))
	for _, r := range raw {
		out = append(out, radioCandidate{selector: r.Selector, value: r.Value, label: r.Label})
	}
	return out, nil
}
