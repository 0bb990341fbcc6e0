// Package igtest provides an in-process fake of the Instagram web API
// endpoints used by the collector.
package igtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

// Page is one scripted page of a follow list
type Page struct {
	Users     []map[string]interface{}
	NextMaxID *string
	HasMore   bool
}

// Request is a recorded inbound request
type Request struct {
	Path   string
	Query  url.Values
	Header http.Header
}

// Server simulates the profile lookup and friendships endpoints
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	profiles     map[string]string
	lists        map[string][]Page
	failures     map[string]int
	transient    int
	transientErr int
	requests     []Request
}

// NewServer starts a fake API server; callers must Close it
func NewServer() *Server {
	s := &Server{
		profiles: make(map[string]string),
		lists:    make(map[string][]Page),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/web_profile_info/", s.handleProfile)
	mux.HandleFunc("/api/v1/friendships/", s.handleFriendships)
	s.Server = httptest.NewServer(mux)
	return s
}

// Cursor returns a pointer to c, for building pages
func Cursor(c string) *string {
	return &c
}

// User builds a follow-edge record
func User(pk int64, username string) map[string]interface{} {
	return map[string]interface{}{
		"pk":              pk,
		"pk_id":           fmt.Sprint(pk),
		"username":        username,
		"full_name":       strings.ToUpper(username[:1]) + username[1:],
		"is_private":      false,
		"is_verified":     pk%2 == 0,
		"profile_pic_url": fmt.Sprintf("https://cdn.example.test/%d.jpg", pk),
	}
}

// AddProfile makes username resolve to id. An empty id yields a response
// whose user is null.
func (s *Server) AddProfile(username, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[username] = id
}

// SetPages scripts the pages of a follow list. Page 0 answers a request
// without max_id; page i answers max_id equal to page i-1's next_max_id.
func (s *Server) SetPages(kind, userID string, pages ...Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[kind+"/"+userID] = pages
}

// FailProfile makes the lookup of username return status
func (s *Server) FailProfile(username string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures["profile/"+username] = status
}

// FailPage makes the request for cursor on a follow list return status
func (s *Server) FailPage(kind, userID, cursor string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[kind+"/"+userID+"/"+cursor] = status
}

// FailNext makes the next n requests of any kind return status
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transient = n
	s.transientErr = status
}

// Requests returns every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// ListRequests returns the requests made to follow list endpoints
func (s *Server) ListRequests() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if strings.HasPrefix(r.Path, "/api/v1/friendships/") {
			out = append(out, r)
		}
	}
	return out
}

// record stores the request and reports a scripted failure status, if any
func (s *Server) record(r *http.Request, failureKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	})

	if s.transient > 0 {
		s.transient--
		return s.transientErr
	}
	return s.failures[failureKey]
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if status := s.record(r, "profile/"+username); status != 0 {
		sendError(w, status)
		return
	}

	s.mu.Lock()
	id, ok := s.profiles[username]
	s.mu.Unlock()
	if !ok {
		sendError(w, http.StatusNotFound)
		return
	}

	var user interface{}
	if id != "" {
		user = map[string]interface{}{
			"id":               id,
			"username":         username,
			"full_name":        username,
			"edge_follow":      map[string]int{"count": 3},
			"edge_followed_by": map[string]int{"count": 10},
		}
	}
	writeJSON(w, map[string]interface{}{
		"data":   map[string]interface{}{"user": user},
		"status": "ok",
	})
}

func (s *Server) handleFriendships(w http.ResponseWriter, r *http.Request) {
	// /api/v1/friendships/{id}/{kind}/
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/friendships/"), "/"), "/")
	if len(parts) != 2 {
		s.record(r, "")
		http.NotFound(w, r)
		return
	}
	userID, kind := parts[0], parts[1]
	cursor := r.URL.Query().Get("max_id")

	if status := s.record(r, kind+"/"+userID+"/"+cursor); status != 0 {
		sendError(w, status)
		return
	}

	s.mu.Lock()
	pages := s.lists[kind+"/"+userID]
	s.mu.Unlock()

	next := ""
	for _, page := range pages {
		if next == cursor {
			users := page.Users
			if users == nil {
				users = []map[string]interface{}{}
			}
			writeJSON(w, map[string]interface{}{
				"users":                          users,
				"next_max_id":                    page.NextMaxID,
				"has_more":                       page.HasMore,
				"big_list":                       page.HasMore,
				"page_size":                      len(users),
				"should_limit_list_of_followers": false,
				"use_clickable_see_more":         false,
				"status":                         "ok",
			})
			return
		}
		if page.NextMaxID == nil {
			break
		}
		next = *page.NextMaxID
	}

	sendError(w, http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": http.StatusText(status),
		"status":  "fail",
	})
}
