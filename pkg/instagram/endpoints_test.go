package instagram

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileURL(t *testing.T) {
	got := ProfileURL(APIBaseURL, "alice.smith")
	assert.Equal(t, "https://i.instagram.com/api/v1/users/web_profile_info/?username=alice.smith", got)

	got = ProfileURL("http://127.0.0.1:8080/", "a b")
	assert.Equal(t, "http://127.0.0.1:8080/api/v1/users/web_profile_info/?username=a+b", got)
}

func TestEdgeListURL(t *testing.T) {
	tests := []struct {
		name   string
		kind   EdgeKind
		cursor string
		count  int
		want   string
	}{
		{"first following page", KindFollowing, "", 200, "https://www.instagram.com/api/v1/friendships/123/following/?count=200"},
		{"continued page", KindFollowing, "QVFD==", 200, "https://www.instagram.com/api/v1/friendships/123/following/?count=200&max_id=QVFD%3D%3D"},
		{"default count", KindFollowing, "", 0, "https://www.instagram.com/api/v1/friendships/123/following/?count=200"},
		{"count clamped", KindFollowing, "", 1000, "https://www.instagram.com/api/v1/friendships/123/following/?count=200"},
		{"small page", KindFollowing, "", 12, "https://www.instagram.com/api/v1/friendships/123/following/?count=12"},
		{"followers", KindFollowers, "c1", 50, "https://www.instagram.com/api/v1/friendships/123/followers/?count=50&max_id=c1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EdgeListURL(BaseURL, tt.kind, "123", tt.cursor, tt.count))
		})
	}
}

func TestFollowingURLHelpers(t *testing.T) {
	u, err := url.Parse(FollowingURL(BaseURL, "42", "abc", 200))
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/friendships/42/following/", u.Path)
	assert.Equal(t, "abc", u.Query().Get("max_id"))

	u, err = url.Parse(FollowersURL(BaseURL, "42", "", 200))
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/friendships/42/followers/", u.Path)
	assert.False(t, u.Query().Has("max_id"))
}

func TestParseEdgeKind(t *testing.T) {
	kind, err := ParseEdgeKind("")
	require.NoError(t, err)
	assert.Equal(t, KindFollowing, kind)

	kind, err = ParseEdgeKind(" Followers ")
	require.NoError(t, err)
	assert.Equal(t, KindFollowers, kind)

	_, err = ParseEdgeKind("likes")
	assert.Error(t, err)
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"alice", true},
		{"alice.smith_99", true},
		{"", false},
		{"has space", false},
		{"dash-name", false},
		{"waytoolongusernamethatexceedsthirty", false},
		{"émile", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValidUsername(tt.username), tt.username)
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"alice", "alice"},
		{"@alice", "alice"},
		{"  alice  ", "alice"},
		{"alice/", "alice"},
		{"https://www.instagram.com/alice/", "alice"},
		{"instagram.com/alice", "alice"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeUsername(tt.input), tt.input)
	}
}

func TestProfilePageURL(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/alice/", ProfilePageURL("alice"))
	assert.Empty(t, ProfilePageURL(""))
}
