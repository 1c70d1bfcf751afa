package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestErrorAppendsJSONLWithRemediation(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(filepath.Join(dir, "errors.jsonl"), filepath.Join(dir, "success.jsonl"))
	defer sink.Close()

	if err := sink.Error(LoginRequired, "detected login wall", nil); err != nil {
		t.Fatalf("Error: %v", err)
	}
	if err := sink.Error(SelectorNotFound, "missing #email", nil); err != nil {
		t.Fatalf("Error: %v", err)
	}
	sink.Close()

	events := readEvents(t, filepath.Join(dir, "errors.jsonl"))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != LoginRequired || events[0].Remediation == "" {
		t.Errorf("expected LOGIN_REQUIRED event to carry a remediation hint, got %+v", events[0])
	}
	if events[1].Kind != SelectorNotFound || events[1].Remediation != "" {
		t.Errorf("expected SELECTOR_NOT_FOUND event to carry no remediation, got %+v", events[1])
	}
}

func TestSuccessWritesToSeparateLog(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(filepath.Join(dir, "errors.jsonl"), filepath.Join(dir, "success.jsonl"))

	if err := sink.Success("filled first_name", map[string]any{"selector": "#fn"}); err != nil {
		t.Fatalf("Success: %v", err)
	}
	sink.Close()

	if _, err := os.Stat(filepath.Join(dir, "errors.jsonl")); err == nil {
		t.Error("did not expect errors.jsonl to exist when only successes were recorded")
	}
	events := readEvents(t, filepath.Join(dir, "success.jsonl"))
	if len(events) != 1 || events[0].Context != "filled first_name" {
		t.Errorf("unexpected success events: %+v", events)
	}
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		events = append(events, ev)
	}
	return events
}
