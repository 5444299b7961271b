package mediafetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/void-rizqiagung/bot-mariioV2/internal/constants"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// Resolver turns a platform URL into a directly downloadable stream.
type Resolver interface {
	Resolve(ctx context.Context, job models.MediaFetchJob) (*ResolvedMedia, error)
}

// ResolvedMedia is the direct stream location plus the metadata the resolver
// learned along the way.
type ResolvedMedia struct {
	DownloadURL     string
	Title           string
	DurationSeconds int
	MimeType        string
}

// Fetcher downloads platform media through per-platform resolvers, enforcing
// the size ceiling and wall-clock budget during the transfer itself.
type Fetcher struct {
	resolvers map[models.Platform]Resolver
	client    *http.Client
	logger    *logrus.Logger
	sizeLimit int64
	timeout   time.Duration
}

func NewFetcher(cfg models.MediaConfig, logger *logrus.Logger) *Fetcher {
	sizeLimit := int64(cfg.SizeLimitMB) * 1024 * 1024
	if sizeLimit <= 0 {
		sizeLimit = constants.DefaultMediaSizeLimitBytes
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(constants.DefaultMediaTimeoutSec) * time.Second
	}

	return &Fetcher{
		resolvers: make(map[models.Platform]Resolver),
		client:    &http.Client{},
		logger:    logger,
		sizeLimit: sizeLimit,
		timeout:   timeout,
	}
}

// Register installs the resolver for one platform.
func (f *Fetcher) Register(platform models.Platform, resolver Resolver) {
	f.resolvers[platform] = resolver
}

// Supports reports whether a URL belongs to a platform with a registered
// resolver.
func (f *Fetcher) Supports(url string) bool {
	platform, ok := DetectPlatform(url)
	if !ok {
		return false
	}
	_, ok = f.resolvers[platform]
	return ok
}

// Fetch resolves and downloads one media file. The returned buffer is always
// complete: a transfer that would exceed the size ceiling is aborted and
// reported as oversized, never truncated.
func (f *Fetcher) Fetch(ctx context.Context, url string, track models.TrackKind) (*models.MediaFile, error) {
	platform, ok := DetectPlatform(url)
	if !ok {
		return nil, &models.MediaError{
			Reason: models.MediaGenericFailure,
			Err:    fmt.Errorf("unsupported media URL: %s", url),
		}
	}
	resolver, ok := f.resolvers[platform]
	if !ok {
		return nil, &models.MediaError{
			Reason: models.MediaGenericFailure,
			Err:    fmt.Errorf("no resolver registered for platform %s", platform),
		}
	}

	// One budget covers resolution and transfer together.
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	job := models.MediaFetchJob{
		SourceURL:      url,
		Platform:       platform,
		Track:          track,
		SizeLimitBytes: f.sizeLimit,
	}

	f.logger.WithFields(logrus.Fields{
		"platform": string(platform),
		"track":    string(track),
	}).Info("Resolving media source")

	resolved, err := resolver.Resolve(ctx, job)
	if err != nil {
		return nil, err
	}

	data, err := f.download(ctx, resolved.DownloadURL)
	if err != nil {
		return nil, err
	}

	file := &models.MediaFile{
		Data:            data,
		Title:           resolved.Title,
		DurationSeconds: resolved.DurationSeconds,
		Size:            int64(len(data)),
		MimeType:        resolved.MimeType,
	}
	f.logger.WithFields(logrus.Fields{
		"platform": string(platform),
		"title":    file.Title,
		"size":     file.Size,
	}).Info("Media downloaded")
	return file, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &models.MediaError{Reason: models.MediaGenericFailure, Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &models.MediaError{Reason: models.MediaGenericFailure, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, &models.MediaError{
			Reason: models.MediaUnavailable,
			Err:    fmt.Errorf("media stream returned status %d", resp.StatusCode),
		}
	default:
		return nil, &models.MediaError{
			Reason: models.MediaGenericFailure,
			Err:    fmt.Errorf("media stream returned status %d", resp.StatusCode),
		}
	}

	// A Content-Length over the ceiling saves us the transfer entirely.
	if resp.ContentLength > f.sizeLimit {
		return nil, &models.MediaError{
			Reason: models.MediaOversized,
			Err:    fmt.Errorf("declared size %d exceeds limit %d", resp.ContentLength, f.sizeLimit),
		}
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, f.sizeLimit+1))
	if err != nil {
		return nil, &models.MediaError{Reason: models.MediaGenericFailure, Err: err}
	}
	if n > f.sizeLimit {
		return nil, &models.MediaError{
			Reason: models.MediaOversized,
			Err:    fmt.Errorf("transfer exceeded limit of %d bytes", f.sizeLimit),
		}
	}
	if n == 0 {
		return nil, &models.MediaError{
			Reason: models.MediaUnavailable,
			Err:    fmt.Errorf("empty media stream"),
		}
	}
	return buf.Bytes(), nil
}
