// Package telemetry is the Error/Telemetry Sink: a structured,
// append-only event log mirrored to errors.jsonl and success.jsonl
// (§6, §7). The sink only writes: nothing reads the logs back, and
// neither the final session report nor the Learning Store draws on them.
package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Kind is the closed error taxonomy of §7 (kinds, not type names).
type Kind string

const (
	NavTimeout            Kind = "NAV_TIMEOUT"
	NavFailed             Kind = "NAV_FAILED"
	SelectorNotFound      Kind = "SELECTOR_NOT_FOUND"
	ElementHiddenUnexpect Kind = "ELEMENT_HIDDEN_UNEXPECTED"
	FillVerifyMismatch    Kind = "FILL_VERIFY_MISMATCH"
	OptionNotMatched      Kind = "OPTION_NOT_MATCHED"
	LLMCallFailed         Kind = "LLM_CALL_FAILED"
	LLMOutputInvalid      Kind = "LLM_OUTPUT_INVALID"
	CaptchaDetected       Kind = "CAPTCHA_DETECTED"
	LoginRequired         Kind = "LOGIN_REQUIRED"
	SnapshotEmpty         Kind = "SNAPSHOT_EMPTY"
)

// remediations gives a human-actionable suggestion for the error kinds
// that have an obvious one (a supplemented feature grounded on
// utils/error_reporter.py's severity/remediation pairing). Kinds not
// present here carry no remediation text.
var remediations = map[Kind]string{
	LoginRequired:   "sign in manually and re-run with a saved storage state",
	CaptchaDetected: "solve the challenge in a headed run",
	NavTimeout:      "retry with a longer navigation timeout or check connectivity",
}

// Event is one line of a session's event log.
type Event struct {
	Timestamp      time.Time      `json:"timestamp"`
	Kind           Kind           `json:"error_kind,omitempty"`
	Context        string         `json:"context,omitempty"`
	ScreenshotPath string         `json:"screenshot_path,omitempty"`
	DOMInfo        string         `json:"dom_info,omitempty"`
	Remediation    string         `json:"remediation,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// Sink writes Events to rotated errors.jsonl / success.jsonl files.
type Sink struct {
	mu      sync.Mutex
	errors  *lumberjack.Logger
	success *lumberjack.Logger
}

// NewSink sets up the session's event logs, rotated at 10MB / 3 backups
// so a long-running multi-session operator process never lets these grow
// unbounded. Each file is created on the first event written to it.
func NewSink(errorsPath, successPath string) *Sink {
	return &Sink{
		errors: &lumberjack.Logger{
			Filename:   errorsPath,
			MaxSize:    10,
			MaxBackups: 3,
			Compress:   false,
		},
		success: &lumberjack.Logger{
			Filename:   successPath,
			MaxSize:    10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// Error records a failure event, attaching a remediation hint when the
// kind has a known one.
func (s *Sink) Error(kind Kind, context string, fields map[string]any) error {
	ev := Event{
		Timestamp:   time.Now(),
		Kind:        kind,
		Context:     context,
		Remediation: remediations[kind],
		Fields:      fields,
	}
	return s.append(s.errors, ev)
}

// Success records a successful-fill event (mirror of Error, §6).
func (s *Sink) Success(context string, fields map[string]any) error {
	ev := Event{Timestamp: time.Now(), Context: context, Fields: fields}
	return s.append(s.success, ev)
}

// ErrorWithScreenshot attaches a screenshot path to an event before
// writing; used when the Orchestrator escalates to a fatal state (§7).
func (s *Sink) ErrorWithScreenshot(kind Kind, context, screenshotPath string, fields map[string]any) error {
	ev := Event{
		Timestamp:      time.Now(),
		Kind:           kind,
		Context:        context,
		ScreenshotPath: screenshotPath,
		Remediation:    remediations[kind],
		Fields:         fields,
	}
	return s.append(s.errors, ev)
}

func (s *Sink) append(w *lumberjack.Logger, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("telemetry: marshal event: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Close flushes and closes both underlying log files.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err1 := s.errors.Close()
	err2 := s.success.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
