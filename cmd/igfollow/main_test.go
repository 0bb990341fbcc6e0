package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfollow/internal/igtest"
	"igfollow/pkg/auth"
	errs "igfollow/pkg/errors"
	"igfollow/pkg/instagram"
	"igfollow/pkg/logger"
	"igfollow/pkg/snapshot"
)

// isolate points every per-user path at a temp dir and swaps in an
// in-memory credential store.
func isolate(t *testing.T) *auth.MockStore {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range []string{
		"IGFOLLOW_SESSION_ID", "IGFOLLOW_CSRF_TOKEN", "IGFOLLOW_COOKIES", "IGFOLLOW_BASE_URL",
		"IGFOLLOW_MIN_DELAY", "IGFOLLOW_MAX_DELAY", "IGFOLLOW_OUTPUT_FILE", "IGFOLLOW_LOG_FILE",
	} {
		t.Setenv(key, "")
	}

	store := auth.NewMockStore()
	prev := newCredentialManager
	newCredentialManager = func() (*auth.Manager, error) {
		return auth.NewManagerWithStores(store, auth.NewEnvironmentStore()), nil
	}
	t.Cleanup(func() {
		newCredentialManager = prev
		logger.SetLogger(logger.NewNopLogger())
	})
	return store
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMissingUsername(t *testing.T) {
	isolate(t)

	tests := [][]string{
		{},
		{"collect"},
		{"collect", "   "},
		{"@"},
	}
	for _, args := range tests {
		_, err := execute(t, "", args...)
		require.Error(t, err, "args %q", args)
		assert.ErrorIs(t, err, errs.ErrMissingArgument)
		assert.EqualError(t, err, "missing username")
	}
}

func TestCollectAgainstFakeUpstream(t *testing.T) {
	isolate(t)

	srv := igtest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddProfile("alice", "123")
	srv.SetPages("following", "123",
		igtest.Page{
			Users:     []map[string]interface{}{igtest.User(11, "bob"), igtest.User(12, "carol")},
			NextMaxID: igtest.Cursor("c1"),
			HasMore:   true,
		},
		igtest.Page{Users: []map[string]interface{}{igtest.User(13, "dave")}},
	)

	t.Setenv("IGFOLLOW_BASE_URL", srv.URL)
	t.Setenv("IGFOLLOW_SESSION_ID", "sess")
	t.Setenv("IGFOLLOW_CSRF_TOKEN", "csrf")

	path := filepath.Join(t.TempDir(), "following.json")
	_, err := execute(t, "", "@alice", "--min-delay", "0", "--max-delay", "0", "-o", path, "-q")
	require.NoError(t, err)

	s, err := snapshot.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123", s.ScrapedUserID)
	assert.Nil(t, s.Cursor)
	assert.Equal(t, 3, s.TotalCollected)
	assert.Nil(t, s.Error)

	for _, r := range srv.Requests() {
		assert.Equal(t, "csrf", r.Header.Get("X-Csrftoken"))
		assert.Contains(t, r.Header.Get("Cookie"), "sessionid=sess")
	}
}

func TestCollectWithCookieString(t *testing.T) {
	isolate(t)

	srv := igtest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddProfile("alice", "123")
	srv.SetPages("following", "123", igtest.Page{Users: []map[string]interface{}{igtest.User(11, "bob")}})

	t.Setenv("IGFOLLOW_BASE_URL", srv.URL)
	t.Setenv("IGFOLLOW_COOKIES", "ds_user_id=9; sessionid=blob_session; mid=x")
	t.Setenv("IGFOLLOW_CSRF_TOKEN", "csrf")

	path := filepath.Join(t.TempDir(), "following.json")
	_, err := execute(t, "", "alice", "--min-delay", "0", "--max-delay", "0", "-o", path, "-q")
	require.NoError(t, err)

	s, err := snapshot.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalCollected)

	requests := srv.Requests()
	require.NotEmpty(t, requests)
	for _, r := range requests {
		assert.Equal(t, "csrf", r.Header.Get("X-Csrftoken"))
		assert.Contains(t, r.Header.Get("Cookie"), "sessionid=blob_session")
	}
}

func TestCollectFailureWritesSnapshot(t *testing.T) {
	isolate(t)

	srv := igtest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddProfile("alice", "123")
	srv.SetPages("following", "123",
		igtest.Page{
			Users:     []map[string]interface{}{igtest.User(11, "bob")},
			NextMaxID: igtest.Cursor("c1"),
			HasMore:   true,
		},
		igtest.Page{Users: []map[string]interface{}{igtest.User(13, "dave")}},
	)
	srv.FailPage("following", "123", "c1", 429)

	t.Setenv("IGFOLLOW_BASE_URL", srv.URL)
	t.Setenv("IGFOLLOW_SESSION_ID", "sess")
	t.Setenv("IGFOLLOW_CSRF_TOKEN", "csrf")

	path := filepath.Join(t.TempDir(), "following.json")
	_, err := execute(t, "", "collect", "alice", "--min-delay", "0", "--max-delay", "0", "-o", path, "-q")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrFetchFailed)

	s, err := snapshot.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalCollected)
	assert.Equal(t, "c1", s.CursorValue())
	require.NotNil(t, s.Error)
	assert.Contains(t, s.Error.Message, "429")
}

func TestCollectWithoutSession(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "alice", "-q")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrCredentialsNotFound)
}

func TestExportCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "following.json")
	out := filepath.Join(dir, "dist", "scrape_data.json")

	require.NoError(t, snapshot.NewWriter(in, logger.NewNopLogger()).Write(&snapshot.Snapshot{
		ScrapedUserID:  "1",
		TotalCollected: 3,
		Users: []instagram.FollowEdge{
			instagram.FollowEdge(`{"pk":5}`),
			instagram.FollowEdge(`{"pk":6}`),
			instagram.FollowEdge(`{"pk":7}`),
		},
	}))

	_, err := execute(t, "", "export", "--snapshot", in, "--output", out, "--limit", "2")
	require.NoError(t, err)

	var pks []string
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &pks))
	assert.Equal(t, []string{"5", "6"}, pks)
}

func TestCrossrefRequiresDatabase(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("IGFOLLOW_DATABASE_URL", "")

	_, err := execute(t, "", "crossref", "-q")
	assert.EqualError(t, err, "no database configured, set DATABASE_URL or pass --database-url")
}

func TestAuthLoginListLogout(t *testing.T) {
	store := isolate(t)

	out, err := execute(t, "alice\n12345678%3Aabcdefgh\ncsrftoken_value_32\n\n\n", "auth", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Account saved: alice")
	assert.Equal(t, 1, store.Count())

	saved, err := store.Retrieve("alice")
	require.NoError(t, err)
	assert.Equal(t, "12345678%3Aabcdefgh", saved.SessionID)
	assert.Equal(t, "csrftoken_value_32", saved.CSRFToken)

	out, err = execute(t, "", "auth", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Username: alice")
	assert.NotContains(t, out, "12345678%3Aabcdefgh")

	_, err = execute(t, "", "auth", "logout", "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Count())

	_, err = execute(t, "", "auth", "logout")
	assert.EqualError(t, err, "specify a username or --all")
}

func TestConfigInitShowValidate(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "igfollow.yaml")

	out, err := execute(t, "", "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created")

	_, err = execute(t, "", "config", "init", "--config", path)
	assert.Error(t, err)

	t.Setenv("IGFOLLOW_SESSION_ID", "abcdefghijklmnop")
	out, err = execute(t, "", "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "session_id: abcd...mnop")
	assert.Contains(t, out, "min_delay: 2")

	out, err = execute(t, "", "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}
