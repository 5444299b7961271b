package models

import "fmt"

// Platform identifies a supported external video-sharing site.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformTikTok  Platform = "tiktok"
)

// TrackKind selects which track of a media source to retrieve.
type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// MediaFetchJob is transient; it terminates in a MediaFile or a MediaError.
type MediaFetchJob struct {
	SourceURL      string
	Platform       Platform
	Track          TrackKind
	SizeLimitBytes int64
}

// MediaFile is the successful outcome of a fetch, with descriptive metadata
// for user-facing captions.
type MediaFile struct {
	Data            []byte
	Title           string
	DurationSeconds int
	Size            int64
	MimeType        string
}

// MediaFailureReason is the closed set of user-facing media failure classes.
type MediaFailureReason string

const (
	MediaUnavailable      MediaFailureReason = "unavailable"
	MediaPrivate          MediaFailureReason = "private"
	MediaAgeRestricted    MediaFailureReason = "age-restricted"
	MediaRegionRestricted MediaFailureReason = "region-restricted"
	MediaOversized        MediaFailureReason = "oversized"
	MediaGenericFailure   MediaFailureReason = "generic"
)

// MediaError carries the failure class so the dispatcher can name the
// specific reason instead of a generic failure.
type MediaError struct {
	Reason MediaFailureReason
	Err    error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media fetch failed (%s): %v", e.Reason, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}
