package ai

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// Presentation layer for accepted generation results. Pure formatting:
// headers, reference citations and the timing footer never alter factual
// content.

var (
	doubleStar    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	mdHeading     = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	mdBullet      = regexp.MustCompile(`(?m)^[\-\*\+]\s+`)
	tripleNewline = regexp.MustCompile(`\n{3,}`)
)

func headerFor(mode models.GroundingMode, fallback bool) string {
	switch {
	case fallback:
		return "AI ▸ *AI ASSISTANT (MODE TERBATAS)*"
	case mode == models.GroundingSearch:
		return "WEB ▸ *WEB RESEARCH*"
	case mode == models.GroundingReference:
		return "DOC ▸ *CONTENT ANALYSIS*"
	default:
		return "AI ▸ *AI ASSISTANT*"
	}
}

// normalizeTypography converts common Markdown leftovers into the chat
// platform's formatting vocabulary.
func normalizeTypography(text string) string {
	s := doubleStar.ReplaceAllString(text, "*$1*")
	s = mdHeading.ReplaceAllStringFunc(s, func(m string) string {
		title := mdHeading.FindStringSubmatch(m)[1]
		return "\n*" + strings.ToUpper(title) + "*\n"
	})
	s = mdBullet.ReplaceAllString(s, "• ")
	s = tripleNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func referencesSection(sources []models.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\n*REFERENSI*\n")
	for i, src := range sources {
		title := src.Title
		if title == "" {
			title = "Sumber Data"
		}
		if runes := []rune(title); len(runes) > 60 {
			title = string(runes[:60]) + "..."
		}
		fmt.Fprintf(&sb, "%d. %s\n%s\n", i+1, title, src.URI)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func timingFooter(elapsed time.Duration, attempt int) string {
	secs := elapsed.Round(time.Second).Seconds()
	return fmt.Sprintf("\n\n_Respons: %.0fs • Percobaan: %d_", secs, attempt)
}

// FormatResult renders an accepted result for the chat. The input Text is
// the raw provider output; the returned string is what gets sent.
func FormatResult(result *models.GenerationResult) string {
	var sb strings.Builder
	sb.WriteString(headerFor(result.Mode, result.Fallback))
	sb.WriteString("\n\n")
	sb.WriteString(normalizeTypography(result.Text))
	sb.WriteString(referencesSection(result.Sources))
	sb.WriteString(timingFooter(result.Elapsed, result.Attempt))
	return sb.String()
}
