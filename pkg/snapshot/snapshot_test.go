package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfollow/pkg/instagram"
	"igfollow/pkg/logger"
)

func TestWriteFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "following.json")
	w := NewWriter(path, logger.NewNopLogger())
	w.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, w.Write(&Snapshot{
		ScrapedUserID:  "123",
		Cursor:         CursorPtr("c1"),
		TotalCollected: 1,
		Users:          []instagram.FollowEdge{instagram.FollowEdge(`{"pk":1,"username":"bob"}`)},
		Kind:           "following",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := `{
  "scrapedUserId": "123",
  "cursor": "c1",
  "totalCollected": 1,
  "users": [
    {
      "pk": 1,
      "username": "bob"
    }
  ],
  "error": null,
  "kind": "following",
  "updatedAt": "2026-01-02T03:04:05Z"
}
`
	assert.Equal(t, want, string(data))
}

func TestWriteRecordsVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "following.json")
	record := `{"pk":1,"full_name":"Tom & Jerry <3","biography":"a > b"}`

	require.NoError(t, NewWriter(path, logger.NewNopLogger()).Write(&Snapshot{
		ScrapedUserID:  "123",
		TotalCollected: 1,
		Users:          []instagram.FollowEdge{instagram.FollowEdge(record)},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"full_name": "Tom & Jerry <3"`)
	assert.Contains(t, string(data), `"biography": "a > b"`)
	assert.NotContains(t, string(data), `\u0026`)
	assert.NotContains(t, string(data), `\u003c`)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Users, 1)
	assert.JSONEq(t, record, string(loaded.Users[0]))
}

func TestWriteEmptyUsersAndNullCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "following.json")
	require.NoError(t, NewWriter(path, logger.NewNopLogger()).Write(&Snapshot{ScrapedUserID: "9"}))

	var raw map[string]interface{}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []interface{}{}, raw["users"])
	assert.Nil(t, raw["cursor"])
	assert.Nil(t, raw["error"])
}

func TestWriteAndLoadWithError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "following.json")
	w := NewWriter(path, logger.NewNopLogger())

	require.NoError(t, w.Write(&Snapshot{
		ScrapedUserID:  "123",
		Cursor:         CursorPtr("c1"),
		TotalCollected: 2,
		Users: []instagram.FollowEdge{
			instagram.FollowEdge(`{"pk":1}`),
			instagram.FollowEdge(`{"pk":2}`),
		},
		Error: NewErrorInfo(errors.New("failed to fetch following: 500 Internal Server Error")),
	}))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123", s.ScrapedUserID)
	assert.Equal(t, "c1", s.CursorValue())
	assert.Equal(t, 2, s.TotalCollected)
	assert.Len(t, s.Users, 2)
	require.True(t, s.Failed())
	assert.Equal(t, "failed to fetch following: 500 Internal Server Error", s.Error.Message)
	assert.Contains(t, s.Error.Stack, "goroutine")
}

func TestLoadRawError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "following.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scrapedUserId":"1","cursor":null,"totalCollected":0,"users":[],"error":"boom"}`), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, s.Error)
	assert.Equal(t, "boom", s.Error.Message)

	out, err := json.Marshal(s.Error)
	require.NoError(t, err)
	assert.Equal(t, `"boom"`, string(out))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "following.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": [`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestResumable(t *testing.T) {
	s := &Snapshot{ScrapedUserID: "123", Cursor: CursorPtr("c1")}
	assert.True(t, s.Resumable("123"))
	assert.False(t, s.Resumable("456"))

	s.Cursor = nil
	assert.False(t, s.Resumable("123"))
	assert.Nil(t, CursorPtr(""))
}

func TestResumableFinishedRunWithCursor(t *testing.T) {
	more, done := true, false

	tests := []struct {
		name    string
		hasMore *bool
		err     *ErrorInfo
		want    bool
	}{
		{"interrupted between pages", &more, nil, true},
		{"last page reported no more", &done, nil, false},
		{"failed after last good page", &done, &ErrorInfo{Message: "boom"}, true},
		{"written without the flag", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Snapshot{ScrapedUserID: "123", Cursor: CursorPtr("c9"), HasMore: tt.hasMore, Error: tt.err}
			assert.Equal(t, tt.want, s.Resumable("123"))
		})
	}
}

func TestHasMoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "following.json")
	done := false
	require.NoError(t, NewWriter(path, logger.NewNopLogger()).Write(&Snapshot{
		ScrapedUserID: "123",
		Cursor:        CursorPtr("c9"),
		HasMore:       &done,
	}))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded.HasMore)
	assert.False(t, *loaded.HasMore)
	assert.False(t, loaded.Resumable("123"))
}

func TestNewErrorInfoNil(t *testing.T) {
	assert.Nil(t, NewErrorInfo(nil))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, NewWriter("", logger.NewNopLogger()).Path())
}

func TestWriterLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "following.json")
	w := NewWriter(path, logger.NewNopLogger())

	_, err := w.Load()
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, w.Write(&Snapshot{ScrapedUserID: "5", Cursor: CursorPtr("x")}))
	s, err := w.Load()
	require.NoError(t, err)
	assert.True(t, s.Resumable("5"))
}
