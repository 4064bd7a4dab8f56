package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCurlCommand(t *testing.T) {
	tt := []struct {
		name          string
		curlCmd       string
		wantCookie    string
		wantUserAgent string
		wantErr       bool
	}{
		{
			name:       "cookie header with single quotes",
			curlCmd:    `curl 'https://music.163.com/' -H 'Cookie: MUSIC_U=abc123; os=pc'`,
			wantCookie: "MUSIC_U=abc123; os=pc",
		},
		{
			name:       "cookie header with double quotes",
			curlCmd:    `curl "https://music.163.com/" -H "Cookie: MUSIC_U=abc123"`,
			wantCookie: "MUSIC_U=abc123",
		},
		{
			name:       "cookie in -b flag",
			curlCmd:    `curl -b 'MUSIC_U=xyz789' https://music.163.com/`,
			wantCookie: "MUSIC_U=xyz789",
		},
		{
			name:          "user agent extracted",
			curlCmd:       `curl -H 'Cookie: MUSIC_U=abc' -H 'User-Agent: Mozilla/5.0 (Test)'`,
			wantCookie:    "MUSIC_U=abc",
			wantUserAgent: "Mozilla/5.0 (Test)",
		},
		{
			name: "multiline command with continuations",
			curlCmd: `curl 'https://music.163.com/' \
  -H 'Cookie: MUSIC_U=abc' \
  -H 'Accept: */*'`,
			wantCookie: "MUSIC_U=abc",
		},
		{
			name:    "no cookie at all",
			curlCmd: `curl -H 'Accept: application/json' https://music.163.com/`,
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			session, err := ParseCurlCommand([]byte(tc.curlCmd))
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseCurlCommand() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}

			if session.Cookie != tc.wantCookie {
				t.Errorf("cookie = %q, want %q", session.Cookie, tc.wantCookie)
			}
			if session.UserAgent != tc.wantUserAgent {
				t.Errorf("user agent = %q, want %q", session.UserAgent, tc.wantUserAgent)
			}
		})
	}
}

func TestParseCurlFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "netease.sh")

	content := `curl 'https://music.163.com/' -H 'Cookie: MUSIC_U=fromfile'`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	session, err := ParseCurlFile(path)
	if err != nil {
		t.Fatalf("ParseCurlFile() error = %v", err)
	}
	if session.Cookie != "MUSIC_U=fromfile" {
		t.Errorf("cookie = %q", session.Cookie)
	}

	if _, err := ParseCurlFile(filepath.Join(tmpDir, "missing.sh")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestCurlSession_HasSession(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		want   bool
	}{
		{name: "logged in", cookie: "os=pc; MUSIC_U=abc123", want: true},
		{name: "anonymous", cookie: "os=pc; NMTID=xyz", want: false},
		{name: "empty", cookie: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &CurlSession{Cookie: tt.cookie}
			if got := session.HasSession(); got != tt.want {
				t.Errorf("HasSession() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCurlSession_SaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "session.json")

	session := &CurlSession{Cookie: "MUSIC_U=abc", UserAgent: "Mozilla/5.0"}
	if err := session.SaveSession(path); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("session file should exist: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session file mode = %o, want 0600", perm)
	}

	loaded, err := LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if loaded.Cookie != session.Cookie || loaded.UserAgent != session.UserAgent {
		t.Errorf("loaded = %+v, want %+v", loaded, session)
	}

	if _, err := LoadSession(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
