package domsnap

import (
	"context"
	"fmt"

	"github.com/polzovatel/applyagent/internal/browserdriver"
)

// actionableAXRoles mirrors the teacher snapshotter's interactive-role
// allowlist, narrowed to the form-control roles this engine cares about
// (links/buttons are the Page Analyzer's concern, not the form filler's).
var actionableAXRoles = map[string]ControlKind{
	"textbox":  Text,
	"combobox": CustomDropdown,
	"checkbox": Checkbox,
	"radio":    Radio,
	"textarea": Textarea,
}

// collectViaCDP asks Chrome DevTools Protocol for the full accessibility
// tree and maps actionable nodes onto coarse Element Records. This is
// the primary tier (§4.2): it sees elements the JS fallback would miss
// if they are virtualized or scrolled out of the layout viewport, but
// it cannot recover id/name/option lists, so anything it returns is
// necessarily less complete than the JS tier's output.
func collectViaCDP(ctx context.Context, d browserdriver.Driver) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page := d.Page()
	if page == nil {
		return nil, fmt.Errorf("domsnap: no page bound")
	}
	session, err := page.Context().NewCDPSession(page)
	if err != nil {
		return nil, fmt.Errorf("domsnap: open CDP session: %w", err)
	}
	defer session.Detach()

	result, err := session.Send("Accessibility.getFullAXTree", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("domsnap: Accessibility.getFullAXTree: %w", err)
	}
	raw, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("domsnap: unexpected CDP response shape")
	}
	nodesAny, ok := raw["nodes"].([]any)
	if !ok {
		return nil, fmt.Errorf("domsnap: CDP response missing nodes")
	}

	out := make([]Element, 0, len(nodesAny))
	for i, n := range nodesAny {
		node, ok := n.(map[string]any)
		if !ok {
			continue
		}
		role := stringField(node, "role")
		kind, ok := actionableAXRoles[role]
		if !ok {
			continue
		}
		name := stringField(node, "name")
		out = append(out, Element{
			Tag:         role,
			ControlKind: kind,
			Role:        role,
			Label:       name,
			AriaLabel:   name,
			Visible:     true,
			Selector:    fmt.Sprintf(":nth-match([role=%q], %d)", role, i+1),
			Group:       "default",
			x:           0,
			y:           float64(i),
		})
	}
	return out, nil
}

func stringField(node map[string]any, key string) string {
	field, ok := node[key].(map[string]any)
	if !ok {
		return ""
	}
	v, _ := field["value"].(string)
	return v
}
