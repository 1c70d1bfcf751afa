// Package session manages the lifecycle and artifact layout of a single
// application run: one candidate profile, one target URL, one browser
// context.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Session identifies one run and owns its artifact directory.
type Session struct {
	ID        string
	URL       string
	StartedAt time.Time
	root      string
}

// New mints a session rooted under baseDir/<id>/. baseDir is created if
// missing; the session subdirectory always is.
func New(baseDir, url string) (*Session, error) {
	id := uuid.NewString()
	root := filepath.Join(baseDir, id)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("session: create artifact dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "screenshots"), 0o755); err != nil {
		return nil, fmt.Errorf("session: create screenshot dir: %w", err)
	}
	return &Session{ID: id, URL: url, StartedAt: time.Now(), root: root}, nil
}

// Dir returns the session's artifact root.
func (s *Session) Dir() string { return s.root }

// ScreenshotPath returns a path for the named screenshot under this
// session's screenshot directory. name should not include an extension.
func (s *Session) ScreenshotPath(name string) string {
	return filepath.Join(s.root, "screenshots", name+".png")
}

// StorageStatePath returns a path for a browser storage-state file
// (cookies, localStorage) inside this session's directory. Session only
// names the path; it does not create or read the file.
func (s *Session) StorageStatePath() string {
	return filepath.Join(s.root, "storage_state.json")
}

// ErrorsLogPath is the session-scoped errors.jsonl event log (§6).
func (s *Session) ErrorsLogPath() string {
	return filepath.Join(s.root, "errors.jsonl")
}

// SuccessLogPath is the session-scoped success.jsonl event log (§6).
func (s *Session) SuccessLogPath() string {
	return filepath.Join(s.root, "success.jsonl")
}
