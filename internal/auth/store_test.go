package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTokenRecord_Valid(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	margin := 60 * time.Second

	tests := []struct {
		name   string
		record TokenRecord
		want   bool
	}{
		{
			name:   "well before expiry",
			record: TokenRecord{AccessToken: "tok", ExpiresAt: now.Add(time.Hour)},
			want:   true,
		},
		{
			name:   "inside the safety margin",
			record: TokenRecord{AccessToken: "tok", ExpiresAt: now.Add(50 * time.Second)},
			want:   false,
		},
		{
			name:   "exactly at the margin boundary",
			record: TokenRecord{AccessToken: "tok", ExpiresAt: now.Add(margin)},
			want:   false,
		},
		{
			name:   "one second outside the margin",
			record: TokenRecord{AccessToken: "tok", ExpiresAt: now.Add(margin + time.Second)},
			want:   true,
		},
		{
			name:   "already expired",
			record: TokenRecord{AccessToken: "tok", ExpiresAt: now.Add(-time.Hour)},
			want:   false,
		},
		{
			name:   "no access token",
			record: TokenRecord{ExpiresAt: now.Add(time.Hour)},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Valid(now, margin); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileStore(t *testing.T) {
	t.Run("missing file loads as nil", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))

		record, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if record != nil {
			t.Errorf("record = %+v, want nil", record)
		}
	})

	t.Run("save and load roundtrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		store := NewFileStore(path)

		record := &TokenRecord{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			Scopes:       []string{"playlist-modify-private"},
		}
		if err := store.Save(record); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if loaded.AccessToken != "access" || loaded.RefreshToken != "refresh" {
			t.Errorf("loaded = %+v", loaded)
		}
		if !loaded.ExpiresAt.Equal(record.ExpiresAt) {
			t.Errorf("expiry = %v, want %v", loaded.ExpiresAt, record.ExpiresAt)
		}
	})

	t.Run("token file is owner-only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		store := NewFileStore(path)

		if err := store.Save(&TokenRecord{AccessToken: "secret"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("token file mode = %o, want 0600", perm)
		}
	})

	t.Run("save replaces the previous record", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		store := NewFileStore(path)

		store.Save(&TokenRecord{AccessToken: "old"})
		store.Save(&TokenRecord{AccessToken: "new"})

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if loaded.AccessToken != "new" {
			t.Errorf("access token = %s, want new", loaded.AccessToken)
		}

		// No stray temp files from the atomic replace
		entries, err := os.ReadDir(filepath.Dir(path))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("directory has %d entries, want 1", len(entries))
		}
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "token.json")
		store := NewFileStore(path)

		if err := store.Save(&TokenRecord{AccessToken: "tok"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("token file should exist: %v", err)
		}
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := NewFileStore(path).Load(); err == nil {
			t.Error("expected an error for a corrupt token file")
		}
	})
}
