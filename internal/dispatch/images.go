package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
	"github.com/void-rizqiagung/bot-mariioV2/pkg/whatsapp"
)

// The bare /sticker, /analyze and /hd commands arrive without an image; they
// explain how to attach one. The image-backed flows below are entered by the
// router when a caption or quoted image carries the command.

func (d *Dispatcher) handleStickerHint(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	d.reply(ctx, msg.ChatID, "🎨 Untuk membuat stiker, kirim atau balas gambar dengan caption `/sticker`.")
	return nil
}

func (d *Dispatcher) handleAnalyzeHint(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	d.reply(ctx, msg.ChatID, "🖼️ Untuk menganalisis gambar, kirim atau balas gambar dengan caption `/analyze`.")
	return nil
}

func (d *Dispatcher) handleHDHint(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	d.reply(ctx, msg.ChatID, "✨ Untuk meningkatkan kualitas gambar, kirim atau balas gambar dengan caption `/hd`.")
	return nil
}

// HandleSticker converts the referenced image into a sticker. The progress
// anchor is deleted so only the sticker remains in the chat.
func (d *Dispatcher) HandleSticker(ctx context.Context, msg *models.InboundMessage, media *models.MediaRef, user *models.User) {
	session, err := d.progress.Start(ctx, msg.ChatID, "Membuat stiker")
	if err != nil {
		d.logger.WithError(err).Error("Failed to start sticker progress")
		return
	}
	defer session.Stop()

	data, err := d.transport.DownloadMedia(ctx, media.DownloadURL)
	if err != nil {
		session.Stop()
		d.logger.WithError(err).Error("Failed to download sticker source image")
		d.editOrSend(ctx, session.Anchor(), "❌ Gagal membuat stiker.")
		return
	}

	session.Stop()
	if err := d.transport.DeleteMessage(ctx, session.Anchor()); err != nil {
		d.logger.WithError(err).Warn("Failed to delete sticker progress message")
	}
	if _, err := d.transport.SendMedia(ctx, msg.ChatID, whatsapp.MediaSticker, data, media.MimeType, "sticker.webp", ""); err != nil {
		d.logger.WithError(err).Error("Failed to send sticker")
		d.reply(ctx, msg.ChatID, "❌ Gagal membuat stiker.")
		return
	}
	d.status.CommandHandled()
}

var analyzeToken = regexp.MustCompile(`(?i)[/.]analyze`)

// HandleAnalyze runs the multimodal model over the referenced image. Any
// caption text beyond the command itself becomes the analysis prompt.
func (d *Dispatcher) HandleAnalyze(ctx context.Context, msg *models.InboundMessage, media *models.MediaRef, user *models.User, caption string) {
	if !d.admitAI(ctx, msg.ChatID, user) {
		return
	}

	session, err := d.progress.Start(ctx, msg.ChatID, "Menganalisis gambar")
	if err != nil {
		d.logger.WithError(err).Error("Failed to start analysis progress")
		return
	}
	defer session.Stop()

	data, err := d.transport.DownloadMedia(ctx, media.DownloadURL)
	if err != nil {
		session.Stop()
		d.status.AIRequest(false)
		d.logger.WithError(err).Error("Failed to download image for analysis")
		d.editOrSend(ctx, session.Anchor(), "❌ Gagal menganalisis gambar.")
		return
	}

	prompt := strings.TrimSpace(analyzeToken.ReplaceAllString(caption, ""))
	if prompt == "" {
		prompt = "Jelaskan gambar ini."
	}

	text, err := d.vision.AnalyzeImage(ctx, data, media.MimeType, prompt)
	session.Stop()

	if err != nil {
		d.status.AIRequest(false)
		d.logger.WithError(err).Error("Image analysis failed")
		d.editOrSend(ctx, session.Anchor(), "❌ Gagal menganalisis gambar.")
		return
	}

	d.editOrSend(ctx, session.Anchor(), text)
	d.status.AIRequest(true)
	d.status.CommandHandled()
}

// HandleUpscale enhances the referenced image through the upscaler
// collaborator, when one is wired.
func (d *Dispatcher) HandleUpscale(ctx context.Context, msg *models.InboundMessage, media *models.MediaRef, user *models.User) {
	if d.upscaler == nil {
		d.reply(ctx, msg.ChatID, "✨ Fitur peningkatan kualitas gambar sedang tidak tersedia.")
		return
	}

	session, err := d.progress.Start(ctx, msg.ChatID, "Meningkatkan kualitas gambar")
	if err != nil {
		d.logger.WithError(err).Error("Failed to start upscale progress")
		return
	}
	defer session.Stop()

	fail := func(reason string) {
		session.Stop()
		d.editOrSend(ctx, session.Anchor(), fmt.Sprintf("❌ Gagal.\n*Alasan:* %s", reason))
	}

	data, err := d.transport.DownloadMedia(ctx, media.DownloadURL)
	if err != nil {
		d.logger.WithError(err).Error("Failed to download image for upscale")
		fail("gambar tidak dapat diunduh dari server.")
		return
	}

	upscaled, mimeType, err := d.upscaler.Upscale(ctx, data, media.MimeType)
	if err != nil {
		d.logger.WithError(err).Error("Image upscale failed")
		fail("gambar tidak dapat diproses saat ini.")
		return
	}

	session.Stop()
	d.editOrSend(ctx, session.Anchor(), "✅ *Berhasil!* Berikut adalah gambar versi HD:")
	if _, err := d.transport.SendMedia(ctx, msg.ChatID, whatsapp.MediaImage, upscaled, mimeType, "upscaled"+extensionFor(mimeType), "_Gambar ditingkatkan oleh AI._"); err != nil {
		d.logger.WithError(err).Error("Failed to send upscaled image")
		return
	}
	d.status.CommandHandled()
}
