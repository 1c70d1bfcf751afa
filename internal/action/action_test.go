package action

import (
	"context"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/polzovatel/applyagent/internal/domsnap"
)

// stubDriver is a minimal in-memory browserdriver.Driver: Fill/Eval
// just record state in a map, keyed by selector, so the executor's
// control-kind handlers can be exercised without a real browser.
type stubDriver struct {
	values       map[string]string
	readOverride map[string]string
	fillErr      error
	pressLog     []string
	evalErr      error
	readErr      error
}

func (s *stubDriver) Close(context.Context) error      { return nil }
func (s *stubDriver) Navigate(context.Context, string) error { return nil }
func (s *stubDriver) Query(string) (playwright.Locator, error)      { return nil, nil }
func (s *stubDriver) QueryAll(string) ([]playwright.Locator, error) { return nil, nil }

func (s *stubDriver) Eval(_ context.Context, script string, arg any) (any, error) {
	if s.evalErr != nil {
		return nil, s.evalErr
	}
	switch args := arg.(type) {
	case []any:
		selector, _ := args[0].(string)
		value, _ := args[1].(string)
		if s.values == nil {
			s.values = map[string]string{}
		}
		s.values[selector] = value
		return value, nil
	case string:
		// dispatchBlurScript / dispatchChangeScript: no observable state change.
		return nil, nil
	}
	return nil, nil
}

func (s *stubDriver) Click(context.Context, string) error { return nil }

func (s *stubDriver) Fill(_ context.Context, selector, value string) error {
	if s.fillErr != nil {
		return s.fillErr
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[selector] = value
	return nil
}

func (s *stubDriver) Press(_ context.Context, selector, key string) error {
	s.pressLog = append(s.pressLog, selector+":"+key)
	return nil
}

func (s *stubDriver) SetInputFiles(context.Context, string, string) error { return nil }
func (s *stubDriver) Screenshot(context.Context, string) error           { return nil }
func (s *stubDriver) WaitFor(context.Context, string, time.Duration) error { return nil }

func (s *stubDriver) Read(_ context.Context, selector string) (string, error) {
	if s.readErr != nil {
		return "", s.readErr
	}
	if v, ok := s.readOverride[selector]; ok {
		return v, nil
	}
	return s.values[selector], nil
}

func (s *stubDriver) SaveState(context.Context, string) error       { return nil }
func (s *stubDriver) DetectCaptcha(context.Context) (bool, error)    { return false, nil }
func (s *stubDriver) Page() playwright.Page                         { return nil }

func TestFillHiddenUsesScriptedAssignmentNotVisibleWait(t *testing.T) {
	d := &stubDriver{}
	el := domsnap.Element{Selector: "#tracking-id", ControlKind: domsnap.Hidden}

	res := Fill(context.Background(), d, el, "abc-123", zerolog.Nop())

	if !res.Success {
		t.Fatalf("expected hidden fill to succeed, got %+v", res)
	}
	if res.ActualValue != "abc-123" {
		t.Errorf("expected scripted value echoed back, got %q", res.ActualValue)
	}
	if d.values["#tracking-id"] != "abc-123" {
		t.Errorf("expected scripted assignment to land, got %v", d.values)
	}
}

func TestFillDateDispatchesChangeAndComparesReadback(t *testing.T) {
	d := &stubDriver{}
	el := domsnap.Element{Selector: "#start-date", ControlKind: domsnap.Date}

	res := Fill(context.Background(), d, el, "2026-08-01", zerolog.Nop())

	if !res.Success {
		t.Fatalf("expected date fill to succeed, got %+v", res)
	}
	if res.ActualValue != "2026-08-01" {
		t.Errorf("expected ISO readback, got %q", res.ActualValue)
	}
}

func TestFillTextDispatchesBlurAndPressesTab(t *testing.T) {
	d := &stubDriver{}
	el := domsnap.Element{Selector: "#first-name", ControlKind: domsnap.Text}

	res := Fill(context.Background(), d, el, "Ada", zerolog.Nop())

	if !res.Success {
		t.Fatalf("expected text fill to succeed, got %+v", res)
	}
	found := false
	for _, p := range d.pressLog {
		if p == "#first-name:Tab" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a Tab press on the field, got %v", d.pressLog)
	}
}

func TestFillTextFailsOnReadbackMismatch(t *testing.T) {
	d := &stubDriver{}
	el := domsnap.Element{Selector: "#email", ControlKind: domsnap.Email}
	// Fill silently succeeds but some page script rewrites the value
	// before it's read back — every retry sees the same mismatch.
	d.readOverride = map[string]string{"#email": "mutated@example.com"}

	res := Fill(context.Background(), d, el, "ada@example.com", zerolog.Nop())

	if res.Success {
		t.Fatalf("expected mismatch between filled and read-back value to fail, got %+v", res)
	}
}
