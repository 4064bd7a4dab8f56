// NetEase Cloud Music implementation of [SourceCatalog]
//
// Talks to the music.163.com JSON endpoints directly. Public playlists need
// no session; private ones require the MUSIC_U cookie captured via
// `ncx setup netease`.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ncx/internal/shared"
)

const (
	defaultNeteaseBaseURL = "https://music.163.com"

	// Track detail lookups are batched to stay under the API's id-list cap.
	trackDetailBatchSize = 1000

	// NetEase sometimes reports publish timestamps far in the future (or
	// before the epoch). Years derived from values outside this window are
	// discarded rather than fed into search filters.
	minPublishTimeMS = 1000
)

type neteasePlaylistResponse struct {
	Code     int `json:"code"`
	Playlist struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		CoverImgURL string `json:"coverImgUrl"`
		TrackIDs    []struct {
			ID int64 `json:"id"`
		} `json:"trackIds"`
	} `json:"playlist"`
}

type neteaseSongResponse struct {
	Code  int `json:"code"`
	Songs []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Ar   []struct {
			Name string `json:"name"`
		} `json:"ar"`
		Al struct {
			Name string `json:"name"`
		} `json:"al"`
		Dt          int   `json:"dt"` // duration in ms
		PublishTime int64 `json:"publishTime"`
	} `json:"songs"`
}

// NeteaseService implements [SourceCatalog] against the NetEase web API.
type NeteaseService struct {
	baseURL    string
	cookie     string
	userAgent  string
	httpClient *http.Client
}

// NewNeteaseService creates a new NetEase service instance.
func NewNeteaseService(baseURL string) *NeteaseService {
	if baseURL == "" {
		baseURL = defaultNeteaseBaseURL
	}

	return &NeteaseService{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (n *NeteaseService) Name() string {
	return "NetEase Cloud Music"
}

// SetSession attaches a browser session for private-playlist access.
func (n *NeteaseService) SetSession(session *shared.CurlSession) {
	if session == nil {
		return
	}
	n.cookie = session.Cookie
	n.userAgent = session.UserAgent
}

func (n *NeteaseService) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Referer", n.baseURL)
	if n.cookie != "" {
		req.Header.Set("Cookie", n.cookie)
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("netease API error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// FetchPlaylist retrieves a playlist's metadata and its full ordered track list.
func (n *NeteaseService) FetchPlaylist(ctx context.Context, playlistID string) (*SourcePlaylist, error) {
	endpoint := fmt.Sprintf("/api/v6/playlist/detail?id=%s&n=0", url.QueryEscape(playlistID))

	var detail neteasePlaylistResponse
	if err := n.doRequest(ctx, endpoint, &detail); err != nil {
		return nil, err
	}

	// 20001/404 are NetEase's "no such playlist" codes
	if detail.Code != 200 {
		return nil, fmt.Errorf("%w: %s (code %d)", shared.ErrSourceNotFound, playlistID, detail.Code)
	}

	trackIDs := make([]int64, len(detail.Playlist.TrackIDs))
	for i, t := range detail.Playlist.TrackIDs {
		trackIDs[i] = t.ID
	}

	tracks, err := n.fetchTrackDetails(ctx, trackIDs)
	if err != nil {
		return nil, err
	}

	return &SourcePlaylist{
		ID:       playlistID,
		Name:     detail.Playlist.Name,
		CoverURL: detail.Playlist.CoverImgURL,
		Tracks:   tracks,
	}, nil
}

// fetchTrackDetails resolves full track metadata for the given ids, batched
// and reassembled in the original order.
func (n *NeteaseService) fetchTrackDetails(ctx context.Context, ids []int64) ([]SourceTrack, error) {
	byID := make(map[int64]SourceTrack, len(ids))

	for start := 0; start < len(ids); start += trackDetailBatchSize {
		end := start + trackDetailBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		idSpecs := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			idSpecs = append(idSpecs, fmt.Sprintf(`{"id":%d}`, id))
		}
		param := url.QueryEscape("[" + strings.Join(idSpecs, ",") + "]")

		var batch neteaseSongResponse
		endpoint := fmt.Sprintf("/api/v3/song/detail?c=%s", param)
		if err := n.doRequest(ctx, endpoint, &batch); err != nil {
			return nil, err
		}
		if batch.Code != 200 {
			return nil, fmt.Errorf("netease song detail failed: code %d", batch.Code)
		}

		for _, song := range batch.Songs {
			track := SourceTrack{
				SourceID:      strconv.FormatInt(song.ID, 10),
				Title:         song.Name,
				Album:         song.Al.Name,
				DurationMS:    song.Dt,
				PublishedYear: publishYear(song.PublishTime),
			}
			for _, a := range song.Ar {
				track.Artists = append(track.Artists, a.Name)
			}
			byID[song.ID] = track
		}
	}

	tracks := make([]SourceTrack, 0, len(ids))
	for _, id := range ids {
		if track, ok := byID[id]; ok {
			tracks = append(tracks, track)
		}
	}

	return tracks, nil
}

// publishYear converts a publish timestamp (ms) to a year, or -1 when the
// value falls outside the sane window.
func publishYear(publishTimeMS int64) int {
	nextYear := time.Date(time.Now().Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	if publishTimeMS < minPublishTimeMS || publishTimeMS > nextYear.UnixMilli() {
		return -1
	}
	return time.UnixMilli(publishTimeMS).Year()
}
