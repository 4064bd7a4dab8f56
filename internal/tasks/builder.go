package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
)

// appendBatchSize is the maximum number of track URIs accepted by a
// single playlist append call.
const appendBatchSize = 100

// Builder assembles a target playlist from resolved tracks. Playlist
// creation and track appends are retried on transient failures; cover
// upload is best-effort and never fails the build.
type Builder struct {
	target services.TargetCatalog
	retry  shared.RetryPolicy
	logger *log.Logger

	httpClient *http.Client
}

func NewBuilder(target services.TargetCatalog, logger *log.Logger) *Builder {
	return &Builder{
		target:     target,
		retry:      shared.DefaultRetryPolicy(),
		logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreatePlaylist creates an empty playlist on the target service,
// retrying transient failures.
func (b *Builder) CreatePlaylist(ctx context.Context, name string) (string, error) {
	var id string
	err := shared.Retry(ctx, b.retry, func() error {
		var err error
		id, err = b.target.CreatePlaylist(ctx, name)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: creating playlist %q: %w", shared.ErrPlaylistRejected, name, err)
	}
	return id, nil
}

// SetCover uploads cover art for the playlist. The image comes from
// coverURL when set, otherwise from localPath. Failures are logged and
// swallowed so a missing or oversized image never fails a migration.
func (b *Builder) SetCover(ctx context.Context, playlistID, coverURL, localPath string) {
	image, err := b.loadCover(ctx, coverURL, localPath)
	if err != nil {
		b.logger.Warn("skipping cover upload", "error", err)
		return
	}
	if len(image) == 0 {
		return
	}

	if err := b.target.UploadCover(ctx, playlistID, image); err != nil {
		b.logger.Warn("cover upload failed", "playlist_id", playlistID, "error", err)
	}
}

func (b *Builder) loadCover(ctx context.Context, coverURL, localPath string) ([]byte, error) {
	if coverURL != "" {
		image, err := b.downloadCover(ctx, coverURL)
		if err == nil {
			return image, nil
		}
		b.logger.Warn("cover download failed, trying local fallback", "url", coverURL, "error", err)
	}

	if localPath == "" {
		return nil, nil
	}

	image, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("reading cover image %s: %w", localPath, err)
	}
	return image, nil
}

func (b *Builder) downloadCover(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching cover", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// AppendTracks adds the given URIs to the playlist in batches,
// preserving order. Each batch is retried on transient failures; the
// first batch that exhausts its retries aborts the append and reports
// how many tracks made it in.
func (b *Builder) AppendTracks(ctx context.Context, playlistID string, uris []string, updates chan<- ProgressUpdate) (int, error) {
	total := (len(uris) + appendBatchSize - 1) / appendBatchSize
	appended := 0

	for i := 0; i < len(uris); i += appendBatchSize {
		end := min(i+appendBatchSize, len(uris))
		batch := uris[i:end]

		sendUpdate(updates, appendBatchUpdate(i/appendBatchSize+1, total, len(batch)))

		err := shared.Retry(ctx, b.retry, func() error {
			return b.target.AppendTracks(ctx, playlistID, batch)
		})
		if err != nil {
			return appended, fmt.Errorf("appending batch %d of %d: %w", i/appendBatchSize+1, total, err)
		}
		appended += len(batch)
	}

	return appended, nil
}

// sendUpdate delivers an update without blocking when the channel is
// nil or full.
func sendUpdate(updates chan<- ProgressUpdate, update ProgressUpdate) {
	if updates == nil {
		return
	}
	select {
	case updates <- update:
	default:
	}
}
