// Package browserdriver is the Browser Driver (§4.1): a thin facade
// over playwright-go exposing navigation, query, click, fill, file
// upload, screenshot, and scripted DOM eval, with basic anti-automation
// fingerprint smoothing on context creation.
package browserdriver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

const (
	navTimeout     = 60 * time.Second
	elementTimeout = 5 * time.Second
	navRetries     = 3
	navBackoff     = 3 * time.Second
	settleWait     = 2 * time.Second

	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// stealthScript neutralizes the most common automation fingerprints
// (§4.1): navigator.webdriver, plugin/language list shape. Requirements
// only — this is detection smoothing, not anti-bot defeat (§1 Non-goals).
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
`

// Driver exposes the minimal browser actions the rest of the engine
// needs (§4.1's operation list).
type Driver interface {
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Query(selector string) (playwright.Locator, error)
	QueryAll(selector string) ([]playwright.Locator, error)
	Eval(ctx context.Context, script string, arg any) (any, error)
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Press(ctx context.Context, selector, key string) error
	SetInputFiles(ctx context.Context, selector, path string) error
	Screenshot(ctx context.Context, path string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Read(ctx context.Context, selector string) (string, error)
	SaveState(ctx context.Context, path string) error
	DetectCaptcha(ctx context.Context) (bool, error)
	Page() playwright.Page
}

// Launcher owns the playwright process and one Chromium instance; one
// Launcher may spawn many independent Drivers (one per session, §5).
type Launcher struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	headless bool
	log      zerolog.Logger
}

// NewLauncher starts playwright and launches Chromium, headless or
// headed per the headless argument.
func NewLauncher(headless bool, log zerolog.Logger) (*Launcher, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("browserdriver: start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("browserdriver: launch chromium: %w", err)
	}
	return &Launcher{pw: pw, browser: browser, headless: headless, log: log}, nil
}

// NewDriver creates one browser context/page pair, optionally restoring
// a prior storage state (cookies/localStorage) from storagePath, and
// applies the stealth script (§4.1).
func (l *Launcher) NewDriver(storagePath string) (Driver, error) {
	opts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
		UserAgent:         playwright.String(desktopUA),
		Viewport:          &playwright.Size{Width: 1440, Height: 900},
		Locale:            playwright.String("en-US"),
	}
	if strings.TrimSpace(storagePath) != "" {
		if _, err := os.Stat(storagePath); err == nil {
			opts.StorageStatePath = playwright.String(storagePath)
		}
	}
	bctx, err := l.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("browserdriver: new context: %w", err)
	}
	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		l.log.Warn().Err(err).Msg("failed to install stealth script")
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("browserdriver: new page: %w", err)
	}
	page.SetDefaultTimeout(float64(elementTimeout.Milliseconds()))
	return &driver{ctx: bctx, page: page, log: l.log}, nil
}

// Close tears down the browser and the playwright process.
func (l *Launcher) Close() error {
	if l.browser != nil {
		_ = l.browser.Close()
	}
	if l.pw != nil {
		return l.pw.Stop()
	}
	return nil
}

type driver struct {
	ctx  playwright.BrowserContext
	page playwright.Page
	log  zerolog.Logger
}

func (d *driver) Page() playwright.Page { return d.page }

func (d *driver) Close(ctx context.Context) error {
	_ = ctx
	if d.page != nil {
		_ = d.page.Close()
	}
	if d.ctx != nil {
		return d.ctx.Close()
	}
	return nil
}

// Navigate implements the §4.1 navigation policy: try network-idle with
// a 60s timeout; on timeout fall back to dom-content-loaded plus a fixed
// settle wait; retry up to 3 times with 3s backoff; final attempt uses
// "load". Fails with NAV_TIMEOUT / NAV_FAILED (returned as wrapped
// errors; the Orchestrator maps them to telemetry kinds).
func (d *driver) Navigate(ctx context.Context, url string) error {
	var lastErr error
	for attempt := 0; attempt < navRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		waitUntil := playwright.WaitUntilStateNetworkidle
		if attempt == navRetries-1 {
			waitUntil = playwright.WaitUntilStateLoad
		}
		_, err := d.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: waitUntil,
			Timeout:   playwright.Float(float64(navTimeout.Milliseconds())),
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < navRetries-1 {
			d.log.Warn().Err(err).Int("attempt", attempt+1).Msg("navigation failed, retrying with settle fallback")
			_, _ = d.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
				State: playwright.LoadStateDomcontentloaded,
			})
			time.Sleep(settleWait)
			time.Sleep(navBackoff)
		}
	}
	return fmt.Errorf("browserdriver: navigate %s: %w", url, lastErr)
}

func (d *driver) Query(selector string) (playwright.Locator, error) {
	return d.page.Locator(selector), nil
}

func (d *driver) QueryAll(selector string) ([]playwright.Locator, error) {
	loc := d.page.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]playwright.Locator, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, loc.Nth(i))
	}
	return out, nil
}

func (d *driver) Eval(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := d.page.Evaluate(script, arg)
	return v, wrap(err)
}

func (d *driver) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := d.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible}); err != nil {
		return wrap(err)
	}
	_ = loc.ScrollIntoViewIfNeeded()
	return wrap(loc.Click())
}

func (d *driver) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := d.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible}); err != nil {
		return wrap(err)
	}
	return wrap(loc.Fill(value))
}

func (d *driver) Press(ctx context.Context, selector, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := d.page.Locator(selector).First()
	return wrap(loc.Press(key))
}

func (d *driver) SetInputFiles(ctx context.Context, selector, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := d.page.Locator(selector).First()
	return wrap(loc.SetInputFiles([]string{path}))
}

func (d *driver) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return wrap(err)
}

func (d *driver) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = elementTimeout
	}
	loc := d.page.Locator(selector)
	return wrap(loc.WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(timeout.Seconds() * 1000),
		State:   playwright.WaitForSelectorStateVisible,
	}))
}

func (d *driver) Read(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(selector) == "" {
		v, err := d.page.InnerText("body")
		return v, wrap(err)
	}
	loc := d.page.Locator(selector).First()
	v, err := loc.InputValue()
	if err == nil {
		return v, nil
	}
	v, err = loc.InnerText()
	return v, wrap(err)
}

func (d *driver) SaveState(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state, err := d.ctx.StorageState()
	if err != nil {
		return wrap(err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("browserdriver: marshal storage state: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// captchaMarkers are coarse text/selector fingerprints of common CAPTCHA
// widgets. Detection only (§1 Non-goals): the driver never attempts to
// solve one.
var captchaMarkers = []string{
	"iframe[src*='recaptcha']",
	"iframe[src*='hcaptcha']",
	"div.g-recaptcha",
	"[data-sitekey]",
}

// DetectCaptcha reports whether a known CAPTCHA widget is present on the
// current page.
func (d *driver) DetectCaptcha(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, sel := range captchaMarkers {
		count, err := d.page.Locator(sel).Count()
		if err != nil {
			continue
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("playwright: %w", err)
}
