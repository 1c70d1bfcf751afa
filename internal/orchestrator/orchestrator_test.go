package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/polzovatel/applyagent/internal/session"
	"github.com/polzovatel/applyagent/internal/telemetry"
)

// stubDriver implements browserdriver.Driver with canned, in-memory
// behavior so orchestrator logic can be exercised without a real
// browser. clickLog records every selector Click was asked to try;
// shots counts Screenshot calls, which fail with shotErr when it is set.
type stubDriver struct {
	clickErrs map[string]error
	clickLog  []string
	shotErr   error
	shots     int
}

func (s *stubDriver) Close(context.Context) error      { return nil }
func (s *stubDriver) Navigate(context.Context, string) error { return nil }
func (s *stubDriver) Query(string) (playwright.Locator, error)       { return nil, nil }
func (s *stubDriver) QueryAll(string) ([]playwright.Locator, error)  { return nil, nil }
func (s *stubDriver) Eval(context.Context, string, any) (any, error) { return nil, nil }
func (s *stubDriver) Click(_ context.Context, selector string) error {
	s.clickLog = append(s.clickLog, selector)
	if err, ok := s.clickErrs[selector]; ok {
		return err
	}
	return nil
}
func (s *stubDriver) Fill(context.Context, string, string) error { return nil }
func (s *stubDriver) Press(context.Context, string, string) error { return nil }
func (s *stubDriver) SetInputFiles(context.Context, string, string) error { return nil }
func (s *stubDriver) Screenshot(context.Context, string) error {
	s.shots++
	return s.shotErr
}
func (s *stubDriver) WaitFor(context.Context, string, time.Duration) error { return nil }
func (s *stubDriver) Read(context.Context, string) (string, error) { return "", nil }
func (s *stubDriver) SaveState(context.Context, string) error { return nil }
func (s *stubDriver) DetectCaptcha(context.Context) (bool, error) { return false, nil }
func (s *stubDriver) Page() playwright.Page { return nil }

func newTestOrchestrator(t *testing.T, d *stubDriver) *Orchestrator {
	t.Helper()
	dir := t.TempDir()
	sess, err := session.New(dir, "https://boards.example.com/job/1")
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	sink := telemetry.NewSink(sess.ErrorsLogPath(), sess.SuccessLogPath())
	t.Cleanup(func() { sink.Close() })
	return New(d, nil, nil, nil, sink, sess, zerolog.Nop())
}

func TestClickSubmitTriesSelectorsInOrderAndStopsOnFirstSuccess(t *testing.T) {
	d := &stubDriver{clickErrs: map[string]error{
		"button[type=\"submit\"]": errFake("no element"),
	}}
	o := newTestOrchestrator(t, d)

	if err := o.clickSubmit(context.Background()); err != nil {
		t.Fatalf("expected second selector to succeed, got %v", err)
	}
	if len(d.clickLog) != 2 {
		t.Fatalf("expected exactly 2 click attempts, got %v", d.clickLog)
	}
}

func TestClickSubmitFailsWhenNoSelectorMatches(t *testing.T) {
	d := &stubDriver{clickErrs: map[string]error{}}
	for _, sel := range submitSelectors {
		d.clickErrs[sel] = errFake("not found")
	}
	o := newTestOrchestrator(t, d)

	if err := o.clickSubmit(context.Background()); err == nil {
		t.Fatal("expected clickSubmit to fail when every selector errors")
	}
	if len(d.clickLog) != len(submitSelectors) {
		t.Fatalf("expected all %d selectors tried, got %d", len(submitSelectors), len(d.clickLog))
	}
}

func TestScreenshotAndErrorWritesEventEvenWhenScreenshotFails(t *testing.T) {
	d := &stubDriver{shotErr: errFake("no page")}
	o := newTestOrchestrator(t, d)

	o.screenshotAndError(context.Background(), telemetry.NavFailed, "https://x", "nav-failure")

	data, err := os.ReadFile(o.sess.ErrorsLogPath())
	if err != nil {
		t.Fatalf("expected errors.jsonl to exist: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a written event")
	}
}

func TestFailReturnsAbortReasonWithoutScreenshotForBareAborts(t *testing.T) {
	d := &stubDriver{}
	o := newTestOrchestrator(t, d)

	res, err := o.fail(context.Background(), StateAbortHuman, "", "no confident CTA candidate")
	if err != nil {
		t.Fatalf("fail should never itself error, got %v", err)
	}
	if res.FinalState != StateAbortHuman || res.AbortReason == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if d.shots != 0 {
		t.Fatalf("expected no screenshot for a bare abort, got %d", d.shots)
	}
	if _, statErr := os.Stat(filepath.Join(o.sess.Dir(), "screenshots")); statErr != nil {
		t.Fatalf("expected screenshots dir to still exist: %v", statErr)
	}
}

func TestFillGroupsOnEmptyInputReportsZeroFieldsNotFailure(t *testing.T) {
	o := newTestOrchestrator(t, &stubDriver{})

	results, total, valid := o.fillGroups(context.Background(), nil, "")
	if total != 0 || valid != 0 {
		t.Fatalf("expected 0/0 for a form with no fillable groups, got %d/%d", total, valid)
	}
	if len(results) != 0 {
		t.Fatalf("expected no fill attempts, got %v", results)
	}
}

type errFake string

func (e errFake) Error() string { return string(e) }
