package browserdriver

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestWrapNilIsNil(t *testing.T) {
	if wrap(nil) != nil {
		t.Fatal("expected wrap(nil) to stay nil")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := wrap(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to unwrap to cause, got %v", err)
	}
}

func TestCaptchaMarkersNonEmpty(t *testing.T) {
	if len(captchaMarkers) == 0 {
		t.Fatal("expected at least one captcha marker selector")
	}
}

// TestRealBrowserLifecycle exercises a real Chromium instance end to end.
// It requires playwright browsers to be installed and is skipped in
// short mode, matching the rest of this pack's integration-test idiom.
func TestRealBrowserLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-browser test in short mode")
	}
	log := zerolog.Nop()
	launcher, err := NewLauncher(true, log)
	if err != nil {
		t.Skipf("playwright unavailable: %v", err)
	}
	defer launcher.Close()

	d, err := launcher.NewDriver("")
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	defer d.Close(context.Background())

	if err := d.Navigate(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	text, err := d.Read(context.Background(), "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if text == "" {
		t.Error("expected non-empty body text")
	}
}
