// Spotify API implementation of [TargetCatalog]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify rejects cover uploads whose base64 encoding exceeds 256KB.
	maxCoverBase64Bytes = 256 * 1024
)

// TokenSource supplies a live access token for each request.
//
// The auth.Manager implements this; requests never read the token file directly.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyService implements [TargetCatalog] for the Spotify Web API.
//
// It also performs the raw token exchanges consumed by the auth manager; all
// other request paths fetch their bearer token through the [TokenSource].
type SpotifyService struct {
	config      *oauth2.Config
	tokens      TokenSource
	httpClient  *http.Client
	baseURL     string
	accountsURL string

	userID string // cached /me id for playlist creation
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8888/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-modify-public",
			"playlist-modify-private",
			"user-library-read",
			"ugc-image-upload",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		httpClient:  http.DefaultClient,
		baseURL:     spotifyBaseURL,
		accountsURL: spotifyTokenURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetTokenSource wires the access-token provider. Must be called before any
// API method other than Exchange and Refresh.
func (s *SpotifyService) SetTokenSource(ts TokenSource) {
	s.tokens = ts
}

// SetBaseURL overrides API endpoints, used by tests.
func (s *SpotifyService) SetBaseURL(api, accounts string) {
	if api != "" {
		s.baseURL = api
	}
	if accounts != "" {
		s.accountsURL = accounts
	}
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the underlying config for the callback server.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// Exchange trades an authorization code for a token bundle.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// Refresh performs a refresh_token grant against the accounts endpoint.
//
// Spotify only rotates the refresh token sometimes; callers must keep the old
// one when the response omits it. Rejections surface as *APIError with a 4xx
// status so the auth manager can distinguish revocation from outages.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.accountsURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiErrorFromResponse(resp)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// doRequest performs an authenticated HTTP request against the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body io.Reader, contentType string, result any) error {
	if s.tokens == nil {
		return fmt.Errorf("no token source: call SetTokenSource first")
	}

	accessToken, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiErrorFromResponse(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// apiErrorFromResponse builds an *APIError, capturing a Retry-After hint when present.
func apiErrorFromResponse(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 2048)); err == nil {
		// Web API errors look like {"error":{"status":N,"message":"..."}},
		// the accounts endpoint returns {"error":"invalid_grant","error_description":"..."}.
		var webErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		var accountsErr struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		switch {
		case json.Unmarshal(raw, &webErr) == nil && webErr.Error.Message != "":
			apiErr.Body = webErr.Error.Message
		case json.Unmarshal(raw, &accountsErr) == nil && accountsErr.Error != "":
			apiErr.Body = accountsErr.Error
			if accountsErr.Description != "" {
				apiErr.Body += ": " + accountsErr.Description
			}
		default:
			apiErr.Body = strings.TrimSpace(string(raw))
		}
	}

	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	return apiErr
}

// Search issues a track search and maps results to candidates.
func (s *SpotifyService) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, "", &response); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		c := Candidate{
			TargetID:   item.ID,
			URI:        item.URI,
			Title:      item.Name,
			Album:      item.Album.Name,
			DurationMS: item.DurationMS,
			Popularity: item.Popularity,
		}
		for _, a := range item.Artists {
			c.Artists = append(c.Artists, a.Name)
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, "", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// currentUserID fetches and caches the authenticated user's id.
func (s *SpotifyService) currentUserID(ctx context.Context) (string, error) {
	if s.userID != "" {
		return s.userID, nil
	}

	user, err := s.UserProfile(ctx)
	if err != nil {
		return "", err
	}
	s.userID = user.ID
	return s.userID, nil
}

// CreatePlaylist creates a private playlist for the current user and returns its id.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name string) (string, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]any{
		"name":        name,
		"public":      false,
		"description": "Migrated from NetEase Cloud Music",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal create request: %w", err)
	}

	var created struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload), "", &created); err != nil {
		return "", err
	}

	return created.ID, nil
}

// UploadCover sets the playlist cover image from raw JPEG bytes.
func (s *SpotifyService) UploadCover(ctx context.Context, playlistID string, image []byte) error {
	encoded := base64.StdEncoding.EncodeToString(image)
	if len(encoded) > maxCoverBase64Bytes {
		return fmt.Errorf("cover image too large to upload: %d bytes base64", len(encoded))
	}

	endpoint := fmt.Sprintf("/playlists/%s/images", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPut, endpoint, strings.NewReader(encoded), "image/jpeg", nil)
}

// AppendTracks appends the given track URIs to a playlist in order.
//
// Spotify caps a single request at 100 items; callers batch accordingly.
func (s *SpotifyService) AppendTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]any{"uris": uris})
	if err != nil {
		return fmt.Errorf("failed to marshal append request: %w", err)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload), "", nil)
}
