package instagram

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ProfileResponse is the envelope returned by the web profile info endpoint
type ProfileResponse struct {
	Data struct {
		User *ProfileUser `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// ProfileUser holds the profile fields the collector reads
type ProfileUser struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	IsPrivate      bool   `json:"is_private"`
	IsVerified     bool   `json:"is_verified"`
	EdgeFollow     Count  `json:"edge_follow"`
	EdgeFollowedBy Count  `json:"edge_followed_by"`
}

// Count wraps the edge counters on a profile
type Count struct {
	Count int `json:"count"`
}

// FollowingPage is one page of the following or followers list. Users are
// kept verbatim; only the pagination fields are interpreted.
type FollowingPage struct {
	Users     []FollowEdge `json:"users"`
	NextMaxID *string      `json:"next_max_id"`
	HasMore   bool         `json:"has_more"`

	BigList                    bool   `json:"big_list,omitempty"`
	PageSize                   int    `json:"page_size,omitempty"`
	Status                     string `json:"status,omitempty"`
	ShouldLimitListOfFollowers *bool  `json:"should_limit_list_of_followers,omitempty"`
	UseClickableSeeMore        *bool  `json:"use_clickable_see_more,omitempty"`
	FollowRankingToken         string `json:"follow_ranking_token,omitempty"`
}

// NextCursor returns the cursor for the following page, or "" when absent
func (p *FollowingPage) NextCursor() string {
	if p.NextMaxID == nil {
		return ""
	}
	return *p.NextMaxID
}

// IsLast reports whether paging must stop after this page. Both signals are
// required to continue: has_more true and a non-empty next_max_id.
func (p *FollowingPage) IsLast() bool {
	return !p.HasMore || p.NextCursor() == ""
}

// FollowEdge is a single account record from a follow list, held as the raw
// JSON the upstream returned.
type FollowEdge json.RawMessage

// MarshalJSON emits the record unchanged
func (e FollowEdge) MarshalJSON() ([]byte, error) {
	if len(e) == 0 {
		return []byte("null"), nil
	}
	return e, nil
}

// UnmarshalJSON keeps a copy of the record bytes
func (e *FollowEdge) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("instagram: UnmarshalJSON on nil FollowEdge")
	}
	*e = append((*e)[:0], data...)
	return nil
}

// EdgeView is the typed subset of a follow record used for display, export
// and cross-referencing.
type EdgeView struct {
	PK         FlexibleID `json:"pk"`
	Username   string     `json:"username"`
	FullName   string     `json:"full_name"`
	IsVerified bool       `json:"is_verified"`
	IsPrivate  bool       `json:"is_private"`
}

// View decodes the typed subset of the record
func (e FollowEdge) View() (EdgeView, error) {
	var v EdgeView
	err := json.Unmarshal(e, &v)
	return v, err
}

// FlexibleID accepts an identifier encoded either as a JSON string or number
type FlexibleID string

// UnmarshalJSON strips quotes when present and keeps numbers as written
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}
