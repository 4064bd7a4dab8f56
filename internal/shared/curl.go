// Utilities for parsing cURL commands copied from browser DevTools.
//
// NetEase gates some playlist endpoints behind the MUSIC_U session cookie, so
// `ncx setup netease` accepts a "Copy as cURL" command and extracts the
// cookie and user agent from it.
package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// CurlSession represents the NetEase session extracted from a cURL command.
type CurlSession struct {
	Cookie    string `json:"cookie"`
	UserAgent string `json:"user_agent,omitempty"`
}

var (
	headerRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	cookieRegex = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
)

// ParseCurlFile reads a .sh file containing a cURL command and extracts the session.
func ParseCurlFile(filepath string) (*CurlSession, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts cookie and user agent.
func ParseCurlCommand(data []byte) (*CurlSession, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	session := &CurlSession{}

	for _, match := range headerRegex.FindAllStringSubmatch(curlCmd, -1) {
		headerLine := match[1]
		if headerLine == "" {
			headerLine = match[2]
		}

		parts := strings.SplitN(headerLine, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch key {
		case "cookie":
			session.Cookie = value
		case "user-agent":
			session.UserAgent = value
		}
	}

	if session.Cookie == "" {
		if m := cookieRegex.FindStringSubmatch(curlCmd); len(m) > 1 {
			if m[1] != "" {
				session.Cookie = m[1]
			} else {
				session.Cookie = m[2]
			}
		}
	}

	if session.Cookie == "" {
		return nil, fmt.Errorf("no cookie found in curl command")
	}

	return session, nil
}

// HasSession reports whether the cookie carries a logged-in NetEase session.
func (c *CurlSession) HasSession() bool {
	return strings.Contains(c.Cookie, "MUSIC_U=")
}

// SaveSession persists the session to the given path, readable only by the owner.
func (c *CurlSession) SaveSession(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// LoadSession reads a previously saved session from the given path.
func LoadSession(path string) (*CurlSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session CurlSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &session, nil
}
