package mediafetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

const tikwmEndpoint = "https://www.tikwm.com/api/"

// TikwmResolver resolves TikTok URLs through the tikwm extraction API.
type TikwmResolver struct {
	client   *http.Client
	endpoint string
}

func NewTikwmResolver() *TikwmResolver {
	return &TikwmResolver{client: &http.Client{}, endpoint: tikwmEndpoint}
}

type tikwmResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Title    string `json:"title"`
		Play     string `json:"play"`
		HDPlay   string `json:"hdplay"`
		Music    string `json:"music"`
		Duration int    `json:"duration"`
	} `json:"data"`
}

func (r *TikwmResolver) Resolve(ctx context.Context, job models.MediaFetchJob) (*ResolvedMedia, error) {
	form := url.Values{"url": {job.SourceURL}, "hd": {"1"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &models.MediaError{Reason: models.MediaGenericFailure, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &models.MediaError{Reason: models.MediaGenericFailure, Err: err}
	}
	defer resp.Body.Close()

	var payload tikwmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &models.MediaError{
			Reason: models.MediaGenericFailure,
			Err:    fmt.Errorf("failed to decode extractor response: %w", err),
		}
	}
	if payload.Code != 0 {
		return nil, &models.MediaError{
			Reason: classifyExtractorMessage(payload.Msg),
			Err:    fmt.Errorf("extractor rejected URL: %s", payload.Msg),
		}
	}

	title := payload.Data.Title
	if title == "" {
		title = "TikTok Video"
	}

	if job.Track == models.TrackAudio {
		if payload.Data.Music == "" {
			return nil, &models.MediaError{
				Reason: models.MediaUnavailable,
				Err:    fmt.Errorf("no audio track available"),
			}
		}
		return &ResolvedMedia{
			DownloadURL:     payload.Data.Music,
			Title:           title,
			DurationSeconds: payload.Data.Duration,
			MimeType:        "audio/mpeg",
		}, nil
	}

	streamURL := payload.Data.HDPlay
	if streamURL == "" {
		streamURL = payload.Data.Play
	}
	if streamURL == "" {
		return nil, &models.MediaError{
			Reason: models.MediaUnavailable,
			Err:    fmt.Errorf("no video stream in extractor response"),
		}
	}
	return &ResolvedMedia{
		DownloadURL:     streamURL,
		Title:           title,
		DurationSeconds: payload.Data.Duration,
		MimeType:        "video/mp4",
	}, nil
}

const cobaltEndpoint = "https://api.cobalt.tools/"

// CobaltResolver resolves YouTube URLs through a cobalt extraction instance.
type CobaltResolver struct {
	client   *http.Client
	endpoint string
}

func NewCobaltResolver(endpoint string) *CobaltResolver {
	if endpoint == "" {
		endpoint = cobaltEndpoint
	}
	return &CobaltResolver{client: &http.Client{}, endpoint: endpoint}
}

type cobaltRequest struct {
	URL          string `json:"url"`
	DownloadMode string `json:"downloadMode"`
	VideoQuality string `json:"videoQuality,omitempty"`
	AudioFormat  string `json:"audioFormat,omitempty"`
}

type cobaltResponse struct {
	Status   string `json:"status"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Error    struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (r *CobaltResolver) Resolve(ctx context.Context, job models.MediaFetchJob) (*ResolvedMedia, error) {
	sourceURL := job.SourceURL
	// Shorts and short-link shapes confuse some extractor instances; the
	// watch URL is accepted everywhere.
	if id := ExtractYouTubeID(sourceURL); id != "" {
		sourceURL = "https://www.youtube.com/watch?v=" + id
	}

	body := cobaltRequest{URL: sourceURL, DownloadMode: "auto"}
	mimeType := "video/mp4"
	if job.Track == models.TrackAudio {
		body.DownloadMode = "audio"
		body.AudioFormat = "mp3"
		mimeType = "audio/mpeg"
	} else {
		// WhatsApp caps outgoing media; the lowest quality fits most often.
		body.VideoQuality = "360"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &models.MediaError{Reason: models.MediaGenericFailure, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return nil, &models.MediaError{Reason: models.MediaGenericFailure, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &models.MediaError{Reason: models.MediaGenericFailure, Err: err}
	}
	defer resp.Body.Close()

	var decoded cobaltResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &models.MediaError{
			Reason: models.MediaGenericFailure,
			Err:    fmt.Errorf("failed to decode extractor response: %w", err),
		}
	}

	switch decoded.Status {
	case "redirect", "tunnel", "stream":
		if decoded.URL == "" {
			return nil, &models.MediaError{
				Reason: models.MediaUnavailable,
				Err:    fmt.Errorf("extractor returned no stream URL"),
			}
		}
		return &ResolvedMedia{
			DownloadURL: decoded.URL,
			Title:       strings.TrimSuffix(decoded.Filename, ".mp4"),
			MimeType:    mimeType,
		}, nil
	default:
		return nil, &models.MediaError{
			Reason: classifyExtractorMessage(decoded.Error.Code),
			Err:    fmt.Errorf("extractor failed with status %q (%s)", decoded.Status, decoded.Error.Code),
		}
	}
}

// classifyExtractorMessage maps extractor error strings to the closed media
// failure set. Extractor APIs expose no structured codes for these cases, so
// this is the one place their text is interpreted.
func classifyExtractorMessage(msg string) models.MediaFailureReason {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "private"):
		return models.MediaPrivate
	case strings.Contains(lower, "age"):
		return models.MediaAgeRestricted
	case strings.Contains(lower, "region") || strings.Contains(lower, "country"):
		return models.MediaRegionRestricted
	case strings.Contains(lower, "unavailable") || strings.Contains(lower, "not found") || strings.Contains(lower, "removed"):
		return models.MediaUnavailable
	default:
		return models.MediaGenericFailure
	}
}
