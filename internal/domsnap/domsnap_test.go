package domsnap

import "testing"

func TestGroupAndSplitKeepsSmallGroupsIntact(t *testing.T) {
	elems := []Element{
		{ID: "a", Group: "contact"},
		{ID: "b", Group: "contact"},
		{ID: "c", Group: "eeo"},
	}
	groups := groupAndSplit(elems)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.Name == "contact" && len(g.Elements) != 2 {
			t.Errorf("expected contact group to keep 2 elements, got %d", len(g.Elements))
		}
	}
}

func TestGroupAndSplitSplitsOversizeGroupDeterministically(t *testing.T) {
	elems := make([]Element, GroupCap+5)
	for i := range elems {
		elems[i] = Element{ID: "f", Group: "big"}
	}
	groups := groupAndSplit(elems)
	if len(groups) != 2 {
		t.Fatalf("expected 2 split groups, got %d", len(groups))
	}
	if groups[0].Name != "big_part1" || groups[1].Name != "big_part2" {
		t.Fatalf("unexpected split names: %q, %q", groups[0].Name, groups[1].Name)
	}
	if len(groups[0].Elements) != GroupCap || len(groups[1].Elements) != 5 {
		t.Fatalf("unexpected split sizes: %d, %d", len(groups[0].Elements), len(groups[1].Elements))
	}
}

func TestGroupAndSplitDefaultsUngroupedElements(t *testing.T) {
	groups := groupAndSplit([]Element{{ID: "a"}})
	if len(groups) != 1 || groups[0].Name != "default" {
		t.Fatalf("expected a single default group, got %+v", groups)
	}
}

func TestClassifyMapsInputTypesToControlKinds(t *testing.T) {
	cases := []struct {
		tag, typ, role string
		isCustom       bool
		want           ControlKind
	}{
		{"input", "email", "", false, Email},
		{"input", "tel", "", false, Tel},
		{"input", "checkbox", "", false, Checkbox},
		{"input", "file", "", false, File},
		{"input", "hidden", "", false, Hidden},
		{"select", "", "", false, Select},
		{"select", "", "", true, CustomDropdown},
		{"textarea", "", "", false, Textarea},
		{"div", "", "combobox", false, CustomDropdown},
	}
	for _, c := range cases {
		got := classify(rawElement{Tag: c.tag, Type: c.typ, Role: c.role, IsCustom: c.isCustom})
		if got != c.want {
			t.Errorf("classify(tag=%q type=%q role=%q custom=%v) = %q, want %q", c.tag, c.typ, c.role, c.isCustom, got, c.want)
		}
	}
}

func TestClassifyUnknownControlKindsAreAllValid(t *testing.T) {
	unknown := []rawElement{
		{Tag: "div"},
		{Tag: "input", Type: "color"},
		{Tag: "span", Role: "button"},
		{Tag: "ul", Role: "list"},
	}
	for _, r := range unknown {
		if kind := classify(r); !ValidControlKinds[kind] {
			t.Fatalf("classify(%+v) = %q, missing from valid set", r, kind)
		}
	}
}

func TestSortByPositionOrdersTopToBottomThenLeftToRight(t *testing.T) {
	elems := []Element{
		{ID: "c", x: 50, y: 5},
		{ID: "a", x: 10, y: 0},
		{ID: "b", x: 30, y: 3},
	}
	sortByPosition(elems)
	order := []string{elems[0].ID, elems[1].ID, elems[2].ID}
	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
}
