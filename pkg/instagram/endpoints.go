package instagram

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL serves the friendships endpoints
	BaseURL = "https://www.instagram.com"

	// APIBaseURL serves the profile lookup endpoint
	APIBaseURL = "https://i.instagram.com"

	// ProfileEndpoint resolves a username to its profile
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// FollowingEndpoint lists accounts the user follows
	FollowingEndpoint = "/api/v1/friendships/%s/following/"

	// FollowersEndpoint lists accounts following the user
	FollowersEndpoint = "/api/v1/friendships/%s/followers/"

	// DefaultPageSize is the number of records requested per page
	DefaultPageSize = 200

	// MaxPageSize is the largest page the endpoint honours
	MaxPageSize = 200
)

// EdgeKind selects which follow list is collected
type EdgeKind string

const (
	KindFollowing EdgeKind = "following"
	KindFollowers EdgeKind = "followers"
)

// ParseEdgeKind converts a configured kind name, defaulting to following
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "following":
		return KindFollowing, nil
	case "followers":
		return KindFollowers, nil
	default:
		return "", fmt.Errorf("unknown collection kind: %q", s)
	}
}

// ProfileURL constructs the lookup URL for username
func ProfileURL(base, username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), ProfileEndpoint, params.Encode())
}

// EdgeListURL constructs the URL of one page of a follow list. The max_id
// parameter is only sent when cursor is non-empty.
func EdgeListURL(base string, kind EdgeKind, userID, cursor string, count int) string {
	if count <= 0 {
		count = DefaultPageSize
	} else if count > MaxPageSize {
		count = MaxPageSize
	}

	endpoint := FollowingEndpoint
	if kind == KindFollowers {
		endpoint = FollowersEndpoint
	}

	params := url.Values{}
	params.Set("count", strconv.Itoa(count))
	if cursor != "" {
		params.Set("max_id", cursor)
	}

	path := fmt.Sprintf(endpoint, url.PathEscape(userID))
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), path, params.Encode())
}

// FollowingURL constructs the URL of one page of the following list
func FollowingURL(base, userID, cursor string, count int) string {
	return EdgeListURL(base, KindFollowing, userID, cursor, count)
}

// FollowersURL constructs the URL of one page of the followers list
func FollowersURL(base, userID, cursor string, count int) string {
	return EdgeListURL(base, KindFollowers, userID, cursor, count)
}

// ProfilePageURL constructs the public profile URL for a user
func ProfilePageURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Instagram usernames can only contain letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername accepts a handle as typed by an operator: surrounding
// whitespace, a leading @ and a profile URL are all stripped.
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	for _, prefix := range []string{"https://", "http://", "www.", "instagram.com/"} {
		username = strings.TrimPrefix(username, prefix)
	}
	username = strings.TrimPrefix(username, "@")
	return strings.Trim(username, "/ ")
}
