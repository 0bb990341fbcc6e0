package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"igfollow/pkg/instagram"
	"igfollow/pkg/logger"
	"igfollow/pkg/storage"
)

// DefaultPath is where a run writes its snapshot unless configured otherwise
const DefaultPath = "./following.json"

// Snapshot is the persisted state of one collection run
type Snapshot struct {
	ScrapedUserID  string                 `json:"scrapedUserId"`
	Cursor         *string                `json:"cursor"`
	TotalCollected int                    `json:"totalCollected"`
	Users          []instagram.FollowEdge `json:"users"`
	Error          *ErrorInfo             `json:"error"`

	// HasMore is the has_more flag of the last page written, nil when unknown
	HasMore   *bool     `json:"hasMore,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrorInfo describes the failure that ended a run
type ErrorInfo struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	// Raw holds an error value that was not an object when loaded
	Raw json.RawMessage `json:"-"`
}

// NewErrorInfo captures err and the current goroutine stack
func NewErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{
		Message: err.Error(),
		Stack:   string(debug.Stack()),
	}
}

// MarshalJSON writes the raw value back when the error was loaded as one
func (e ErrorInfo) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	type plain ErrorInfo
	return json.Marshal(plain(e))
}

// UnmarshalJSON accepts either {message, stack} or any other JSON value
func (e *ErrorInfo) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		type plain ErrorInfo
		var p plain
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return err
		}
		*e = ErrorInfo(p)
		return nil
	}

	e.Raw = append(json.RawMessage(nil), trimmed...)
	var s string
	if json.Unmarshal(trimmed, &s) == nil {
		e.Message = s
	} else {
		e.Message = string(trimmed)
	}
	return nil
}

// CursorValue returns the cursor, or "" when null
func (s *Snapshot) CursorValue() string {
	if s.Cursor == nil {
		return ""
	}
	return *s.Cursor
}

// Failed reports whether the run that wrote s ended with an error
func (s *Snapshot) Failed() bool {
	return s.Error != nil
}

// Resumable reports whether s can seed a new run for userID. A snapshot
// written after a page that reported no more results is finished even when
// that page carried a cursor.
func (s *Snapshot) Resumable(userID string) bool {
	if s.ScrapedUserID != userID || s.CursorValue() == "" {
		return false
	}
	return s.Failed() || s.HasMore == nil || *s.HasMore
}

// CursorPtr converts an empty cursor to null
func CursorPtr(cursor string) *string {
	if cursor == "" {
		return nil
	}
	return &cursor
}

// Writer replaces the snapshot file atomically on every write
type Writer struct {
	path   string
	now    func() time.Time
	logger logger.Logger
}

// NewWriter creates a writer for path
func NewWriter(path string, log logger.Logger) *Writer {
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Writer{path: path, now: time.Now, logger: log}
}

// Path returns the snapshot file path
func (w *Writer) Path() string {
	return w.path
}

// Write stamps s and replaces the snapshot file with it
func (w *Writer) Write(s *Snapshot) error {
	s.UpdatedAt = w.now().UTC()
	if s.Users == nil {
		s.Users = []instagram.FollowEdge{}
	}

	if err := storage.WriteJSONAtomic(w.path, s, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	w.logger.DebugWithFields("snapshot saved", map[string]interface{}{
		"path":            w.path,
		"total_collected": s.TotalCollected,
		"cursor":          s.CursorValue(),
		"failed":          s.Failed(),
	})
	return nil
}

// Load reads back the snapshot at the writer's path
func (w *Writer) Load() (*Snapshot, error) {
	return Load(w.path)
}

// Load reads a snapshot file. A missing file yields an error satisfying
// errors.Is(err, os.ErrNotExist).
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return &s, nil
}
