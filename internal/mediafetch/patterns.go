package mediafetch

import (
	"regexp"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^https?://(www\.)?youtube\.com/watch\?v=[\w-]+`),
	regexp.MustCompile(`(?i)^https?://youtu\.be/[\w-]+`),
	regexp.MustCompile(`(?i)^https?://m\.youtube\.com/watch\?v=[\w-]+`),
	regexp.MustCompile(`(?i)^https?://(www\.)?youtube\.com/embed/[\w-]+`),
	regexp.MustCompile(`(?i)^https?://(www\.)?youtube\.com/v/[\w-]+`),
	regexp.MustCompile(`(?i)^https?://(www\.)?youtube\.com/shorts/[\w-]+`),
}

var tiktokPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^https?://(www\.|m\.)?tiktok\.com/@[\w.-]+/video/\d+`),
	regexp.MustCompile(`(?i)^https?://vm\.tiktok\.com/[\w.-]+`),
	regexp.MustCompile(`(?i)^https?://vt\.tiktok\.com/[\w.-]+`),
	regexp.MustCompile(`(?i)^https?://(www\.)?tiktok\.com/t/[\w.-]+`),
	regexp.MustCompile(`(?i)^https?://m\.tiktok\.com/v/\d+`),
}

var youtubeIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/)([^&\n?#]+)`)

// DetectPlatform reports which supported platform a URL belongs to.
func DetectPlatform(url string) (models.Platform, bool) {
	for _, p := range youtubePatterns {
		if p.MatchString(url) {
			return models.PlatformYouTube, true
		}
	}
	for _, p := range tiktokPatterns {
		if p.MatchString(url) {
			return models.PlatformTikTok, true
		}
	}
	return "", false
}

// ExtractYouTubeID pulls the video ID out of any recognized YouTube URL
// shape. Returns "" when the URL carries no ID.
func ExtractYouTubeID(url string) string {
	m := youtubeIDPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}
