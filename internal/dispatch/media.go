package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/void-rizqiagung/bot-mariioV2/internal/database"
	"github.com/void-rizqiagung/bot-mariioV2/internal/mediafetch"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
	"github.com/void-rizqiagung/bot-mariioV2/internal/ratelimit"
	"github.com/void-rizqiagung/bot-mariioV2/pkg/whatsapp"
)

// mediaJob describes one platform download command end to end: validation
// reply, progress label and how the result is delivered.
type mediaJob struct {
	platform    models.Platform
	track       models.TrackKind
	invalidText string
	label       string
	successText func(file *models.MediaFile) string
	mediaKind   string
	filename    string
	caption     func(file *models.MediaFile) string
}

func (d *Dispatcher) handleYouTube(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	return d.runMediaJob(ctx, msg, args, user, mediaJob{
		platform:    models.PlatformYouTube,
		track:       models.TrackVideo,
		invalidText: "❓ *URL tidak valid.*\n*Contoh:* `/yt https://youtube.com/watch?v=...`",
		label:       "Mengunduh video",
		successText: func(file *models.MediaFile) string {
			return fmt.Sprintf("✅ *Berhasil!* Mengirim video:\n\n*%s*", file.Title)
		},
		mediaKind: whatsapp.MediaVideo,
		filename:  "video.mp4",
		caption: func(file *models.MediaFile) string {
			return fmt.Sprintf("Ukuran: %s", formatSize(file.Size))
		},
	})
}

func (d *Dispatcher) handleYouTubeAudio(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	return d.runMediaJob(ctx, msg, args, user, mediaJob{
		platform:    models.PlatformYouTube,
		track:       models.TrackAudio,
		invalidText: "❓ *URL tidak valid.*\n*Contoh:* `/ytmp3 https://youtube.com/watch?v=...`",
		label:       "Mengunduh audio",
		successText: func(file *models.MediaFile) string {
			return fmt.Sprintf("✅ *Berhasil!* Mengirim audio:\n\n*%s*", file.Title)
		},
		mediaKind: whatsapp.MediaAudio,
		filename:  "audio.mp3",
		caption:   func(file *models.MediaFile) string { return "" },
	})
}

func (d *Dispatcher) handleTikTok(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	return d.runMediaJob(ctx, msg, args, user, mediaJob{
		platform:    models.PlatformTikTok,
		track:       models.TrackVideo,
		invalidText: "❓ *URL tidak valid.*\n*Contoh:* `/tiktok https://www.tiktok.com/@user/video/...`",
		label:       "Mengunduh TikTok",
		successText: func(file *models.MediaFile) string {
			return "✅ *Berhasil!* Mengirim video TikTok..."
		},
		mediaKind: whatsapp.MediaVideo,
		filename:  "tiktok.mp4",
		caption:   func(file *models.MediaFile) string { return "_Video tanpa watermark._" },
	})
}

func (d *Dispatcher) runMediaJob(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User, job mediaJob) error {
	if len(args) == 0 {
		d.reply(ctx, msg.ChatID, job.invalidText)
		return nil
	}
	url := args[0]
	platform, ok := mediafetch.DetectPlatform(url)
	if !ok || platform != job.platform {
		d.reply(ctx, msg.ChatID, job.invalidText)
		return nil
	}

	if !d.limiter.Check(user.ExternalID, ratelimit.ClassMedia) {
		d.status.RateLimitRejected()
		d.reply(ctx, msg.ChatID, "⏱️ *Batas Unduhan Tercapai*\n\nTunggu beberapa menit sebelum mengunduh media berikutnya.")
		return nil
	}

	session, err := d.progress.Start(ctx, msg.ChatID, job.label)
	if err != nil {
		return fmt.Errorf("failed to start progress session: %w", err)
	}
	defer session.Stop()

	file, err := d.media.Fetch(ctx, url, job.track)
	session.Stop()

	if err != nil {
		d.editOrSend(ctx, session.Anchor(), fmt.Sprintf("❌ *Gagal Mengunduh*\n\n*Alasan:* %s", mediaFailureText(err)))
		d.logMediaDownload(ctx, user.ID, job, url, 0, err)
		return nil
	}

	d.editOrSend(ctx, session.Anchor(), job.successText(file))
	if _, err := d.transport.SendMedia(ctx, msg.ChatID, job.mediaKind, file.Data, file.MimeType, job.filename, job.caption(file)); err != nil {
		d.logMediaDownload(ctx, user.ID, job, url, file.Size, err)
		return fmt.Errorf("failed to send media: %w", err)
	}

	d.status.MediaDownloaded()
	d.logMediaDownload(ctx, user.ID, job, url, file.Size, nil)
	return nil
}

func (d *Dispatcher) logMediaDownload(ctx context.Context, userID int64, job mediaJob, url string, size int64, err error) {
	rec := database.MediaDownload{
		UserID:    userID,
		Platform:  string(job.platform),
		SourceURL: url,
		Track:     string(job.track),
		FileSize:  size,
		Success:   err == nil,
	}
	if err != nil {
		rec.ErrorReason = failureReason(err)
	}
	if dbErr := d.repo.LogMediaDownload(ctx, rec); dbErr != nil {
		d.logger.WithError(dbErr).Warn("Failed to log media download")
	}
}

func failureReason(err error) string {
	var mediaErr *models.MediaError
	if errors.As(err, &mediaErr) {
		return string(mediaErr.Reason)
	}
	return string(models.MediaGenericFailure)
}

// mediaFailureText maps the typed failure class onto the user-facing reason
// line of the download failure bubble.
func mediaFailureText(err error) string {
	var mediaErr *models.MediaError
	if !errors.As(err, &mediaErr) {
		return "Terjadi kesalahan saat mengunduh media."
	}
	switch mediaErr.Reason {
	case models.MediaUnavailable:
		return "Video tidak tersedia atau sudah dihapus."
	case models.MediaPrivate:
		return "Video bersifat pribadi dan tidak dapat diakses."
	case models.MediaAgeRestricted:
		return "Video dibatasi usia."
	case models.MediaRegionRestricted:
		return "Video tidak tersedia di wilayah ini."
	case models.MediaOversized:
		return "Ukuran media melebihi batas yang diizinkan."
	default:
		return "Terjadi kesalahan saat mengunduh media."
	}
}

func formatSize(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/1024/1024)
}
