// package auth owns the OAuth token lifecycle: the persisted token record,
// proactive refresh, and the interactive first-run authorization.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// TokenRecord is the persisted OAuth credential bundle. It is the only state
// with cross-run lifetime; only the [Manager] mutates it.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// Valid reports whether the access token is still usable at the given
// instant, with margin subtracted from the recorded expiry.
func (t *TokenRecord) Valid(now time.Time, margin time.Duration) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt.Add(-margin))
}

// Store persists and retrieves the token record.
type Store interface {
	// Load returns the stored record, or (nil, nil) when none exists yet.
	Load() (*TokenRecord, error)

	// Save replaces the stored record atomically.
	Save(record *TokenRecord) error
}

// FileStore keeps the token record as a JSON file restricted to the owner.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored token record. A missing file is not an error.
func (s *FileStore) Load() (*TokenRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var record TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	return &record, nil
}

// Save writes the record with write-temp-then-rename semantics so a crash
// mid-write never corrupts the stored credential.
func (s *FileStore) Save(record *TokenRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}
