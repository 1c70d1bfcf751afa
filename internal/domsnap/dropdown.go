package domsnap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/polzovatel/applyagent/internal/browserdriver"
)

// findCustomDropdownOptionsScript reads back the option texts/values of
// the trigger's associated popup, which must already be open; it neither
// opens nor closes the popup. Custom
// dropdowns render their options into a disconnected listbox, usually
// appended near the end of <body>, so it cannot be discovered by
// static DOM inspection alone — the trigger has to be clicked first.
const findCustomDropdownOptionsScript = `
(selector) => {
  const trigger = document.querySelector(selector);
  if (!trigger) return [];
  const popupId = trigger.getAttribute('aria-controls') || trigger.getAttribute('aria-owns');
  let list = popupId ? document.getElementById(popupId) : null;
  if (!list) {
    list = document.querySelector('[role="listbox"]:not([hidden])') ||
      document.querySelector('[role="menu"]:not([hidden])');
  }
  if (!list) return [];
  const opts = [];
  list.querySelectorAll('[role="option"], li, div[data-value]').forEach((el) => {
    const text = el.textContent.trim();
    if (!text) return;
    opts.push({ value: el.getAttribute('data-value') || text, text: text });
  });
  return opts;
}
`

// FindCustomDropdownOptions reads the option list a custom (non-native
// <select>) dropdown exposes after its trigger has been activated
// (§4.2). The caller is expected to have already clicked the trigger to
// open the popup.
func FindCustomDropdownOptions(ctx context.Context, d browserdriver.Driver, triggerSelector string) ([]Option, error) {
	v, err := d.Eval(ctx, findCustomDropdownOptionsScript, triggerSelector)
	if err != nil {
		return nil, fmt.Errorf("domsnap: find custom dropdown options: %w", err)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("domsnap: re-encode dropdown options: %w", err)
	}
	var opts []Option
	if err := json.Unmarshal(encoded, &opts); err != nil {
		return nil, fmt.Errorf("domsnap: decode dropdown options: %w", err)
	}
	return opts, nil
}

// findFileInputForLabelScript resolves a visually-hidden file input
// that sits behind a styled "Upload resume" button: it looks for a
// label whose text matches, then returns a selector for the <input
// type=file> it points to (via `for`, ancestry, or same-container
// proximity).
const findFileInputForLabelScript = `
(text) => {
  const needle = text.toLowerCase();
  const labels = Array.from(document.querySelectorAll('label, button, div, span'));
  for (const el of labels) {
    const t = (el.textContent || '').trim().toLowerCase();
    if (!t || !t.includes(needle)) continue;
    if (el.tagName === 'LABEL' && el.htmlFor) {
      const input = document.getElementById(el.htmlFor);
      if (input && input.type === 'file') return selectorOf(input);
    }
    const nested = el.querySelector('input[type="file"]');
    if (nested) return selectorOf(nested);
    const container = el.closest('div, form, fieldset');
    if (container) {
      const sibling = container.querySelector('input[type="file"]');
      if (sibling) return selectorOf(sibling);
    }
  }
  return '';

  function selectorOf(input) {
    if (input.id) return '#' + CSS.escape(input.id);
    if (input.name) return 'input[type="file"][name="' + CSS.escape(input.name) + '"]';
    return 'input[type="file"]';
  }
}
`

// FindFileInputForLabel locates the (often visually hidden) file input
// behind a styled upload control whose visible label text contains
// text, returning a CSS selector usable with SetInputFiles, or "" if
// none was found (§4.2).
func FindFileInputForLabel(ctx context.Context, d browserdriver.Driver, text string) (string, error) {
	v, err := d.Eval(ctx, findFileInputForLabelScript, text)
	if err != nil {
		return "", fmt.Errorf("domsnap: find file input for label: %w", err)
	}
	selector, _ := v.(string)
	return selector, nil
}
