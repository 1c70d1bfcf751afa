package schema

import "testing"

func TestRepairStripsFencesAndTrailingCommas(t *testing.T) {
	raw := "```json\n{\"a\": 1, \"b\": [1, 2, ], }\n```"
	repaired := Repair(raw)
	var v map[string]any
	if _, ok := Decode(repaired, map[string]any{}); !ok {
		t.Fatalf("expected repaired JSON to decode, got %q", repaired)
	}
	_ = v
}

func TestRepairStripsComments(t *testing.T) {
	raw := "{\n  // a comment\n  \"a\": 1 /* inline */\n}"
	v, ok := Decode[map[string]any](raw, nil)
	if !ok {
		t.Fatalf("expected decode to succeed after repair")
	}
	if v["a"].(float64) != 1 {
		t.Errorf("unexpected value: %v", v["a"])
	}
}

func TestRepairLeavesSlashesInsideStringsAlone(t *testing.T) {
	raw := `{"reasoning": "apply at https://jobs.example.com", "recommended_action": "click_cta"}`
	repaired := Repair(raw)
	if repaired != raw {
		t.Fatalf("expected identity on already-valid JSON containing //, got %q", repaired)
	}
	v, ok := Decode[map[string]any](raw, nil)
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if v["reasoning"] != "apply at https://jobs.example.com" {
		t.Errorf("unexpected reasoning value: %v", v["reasoning"])
	}
}

func TestRepairStripsBlockCommentButKeepsStringWithSlashStar(t *testing.T) {
	raw := "{\n  /* a real comment */\n  \"note\": \"see /* not a comment */ in docs\"\n}"
	v, ok := Decode[map[string]any](raw, nil)
	if !ok {
		t.Fatalf("expected decode to succeed after repair, raw=%q", raw)
	}
	if v["note"] != "see /* not a comment */ in docs" {
		t.Errorf("expected string content to survive untouched, got %v", v["note"])
	}
}

func TestRepairBalancesBrackets(t *testing.T) {
	raw := `{"actions": [{"selector": "#a", "value": "x"`
	v, ok := Decode[map[string]any](raw, nil)
	if !ok {
		t.Fatalf("expected truncated JSON to repair and decode, got %v", v)
	}
}

func TestDecodeFallsBackToDefaultOnIrrecoverableInput(t *testing.T) {
	type payload struct {
		Kind string `json:"kind"`
	}
	fallback := payload{Kind: "unknown"}
	v, ok := Decode("not json at all and no braces", fallback)
	if ok {
		t.Fatalf("expected decode to fail for irrecoverable input")
	}
	if v != fallback {
		t.Errorf("expected fallback value, got %+v", v)
	}
}

func TestDecodeIdentityOnAlreadyValidInput(t *testing.T) {
	type payload struct {
		Kind string `json:"kind"`
	}
	v, ok := Decode(`{"kind":"job_detail"}`, payload{})
	if !ok || v.Kind != "job_detail" {
		t.Errorf("expected identity decode, got %+v ok=%v", v, ok)
	}
}

func TestNormalizeConfidence(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{8, 0.8},
		{-1, 0},
		{11, 1},
		{1, 1},
	}
	for _, c := range cases {
		if got := NormalizeConfidence(c.in); got != c.want {
			t.Errorf("NormalizeConfidence(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsSnakeCase(t *testing.T) {
	if !IsSnakeCase("basic_info_first_name") {
		t.Error("expected valid snake_case to pass")
	}
	if IsSnakeCase("Basic-Info") {
		t.Error("expected invalid key to fail")
	}
	if IsSnakeCase("") {
		t.Error("expected empty string to fail")
	}
}
