package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvSessionID = "IGFOLLOW_SESSION_ID"
	EnvCSRFToken = "IGFOLLOW_CSRF_TOKEN"
	EnvCookies   = "IGFOLLOW_COOKIES"
	EnvUserAgent = "IGFOLLOW_USER_AGENT"
)

// EnvironmentStore implements CredentialStore over environment variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables. The environment
// carries no username, so the requested one (or "default") is reported.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	sessionID := os.Getenv(EnvSessionID)
	csrfToken := os.Getenv(EnvCSRFToken)
	if sessionID == "" || csrfToken == "" {
		return nil, ErrCredentialsNotFound
	}

	if username == "" {
		username = "default"
	}

	return &Account{
		Username:     username,
		SessionID:    sessionID,
		CSRFToken:    csrfToken,
		Cookies:      os.Getenv(EnvCookies),
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	return os.Getenv(EnvSessionID) != "" && os.Getenv(EnvCSRFToken) != ""
}
