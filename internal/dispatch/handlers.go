package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/void-rizqiagung/bot-mariioV2/internal/database"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
	"github.com/void-rizqiagung/bot-mariioV2/internal/ratelimit"
	"github.com/void-rizqiagung/bot-mariioV2/pkg/whatsapp"
)

var (
	questionPattern = regexp.MustCompile(`(?i)^(apa|bagaimana|mengapa|kapan|dimana|siapa|berapa)`)
	urlDetect       = regexp.MustCompile(`https?://[^\s]+`)
	searchRequest   = regexp.MustCompile(`(?i)\b(search|cari|sertakan.*link|sumber.*terpercaya)\b`)
)

const helpText = `🤖 *AI CONCIERGE - PANDUAN LENGKAP* 🤖

🧠 *KECERDASAN BUATAN*
• ` + "`/ai [pertanyaan]`" + ` — tanya AI tentang topik apapun
  Contoh: /ai jelaskan teknologi blockchain
• ` + "`/search [topik]`" + ` — riset web mendalam dengan sumber terpercaya
  Contoh: /search makanan khas Indonesia
• ` + "`/analyze`" + ` — analisis gambar dengan AI (kirim/reply gambar)

🎨 *MEDIA & KREATIVITAS*
• ` + "`/image [deskripsi]`" + ` — buat gambar AI dengan deskripsi
  Contoh: /image kucing astronot di luar angkasa
• ` + "`/sticker`" + ` — ubah gambar jadi stiker (kirim/reply gambar)
• ` + "`/hd`" + ` — tingkatkan kualitas gambar (kirim/reply gambar)

📥 *UNDUH MEDIA*
• ` + "`/yt [url]`" + ` — download video YouTube
• ` + "`/ytmp3 [url]`" + ` — download audio YouTube (MP3)
• ` + "`/tiktok [url]`" + ` — download video TikTok tanpa watermark

⚙️ *SISTEM & UTILITAS*
• ` + "`/status`" + ` — cek status sistem bot
• ` + "`/ping`" + ` — test kecepatan respons
• ` + "`/info`" + ` — informasi versi dan model AI
• ` + "`/schedule`" + ` — lihat jadwal harian

💡 *TIPS PENGGUNAAN*
• Gunakan pertanyaan yang spesifik untuk hasil terbaik
• Bot hanya aktif di chat pribadi, tidak di grup
• AI menggunakan teknologi Google Gemini terbaru`

func (d *Dispatcher) handleHelp(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	d.reply(ctx, msg.ChatID, helpText)
	return nil
}

func (d *Dispatcher) handleStart(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	name := user.DisplayName
	if name == "" {
		name = "User"
	}
	d.reply(ctx, msg.ChatID, fmt.Sprintf("👋 Halo *%s*, selamat datang di *AI Concierge*. Ketik `/help` untuk memulai.", name))
	return nil
}

func (d *Dispatcher) handleMenu(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	d.reply(ctx, msg.ChatID, "Silakan ketik `/help` untuk melihat semua perintah yang tersedia.")
	return nil
}

// handlePing measures the gateway round-trip by timing its own send, then
// rewrites the message with the result.
func (d *Dispatcher) handlePing(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	start := d.now()
	handle, err := d.transport.SendText(ctx, msg.ChatID, "Menghitung...")
	if err != nil {
		return fmt.Errorf("failed to send ping message: %w", err)
	}
	latency := d.now().Sub(start).Milliseconds()
	d.editOrSend(ctx, *handle, fmt.Sprintf("*Pong!* ⚡\nKecepatan: *%d ms*", latency))
	return nil
}

func (d *Dispatcher) handleStatus(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	snap := d.status.Current()
	limits := d.limiter.Stats()
	text := fmt.Sprintf(`📊 *STATUS SISTEM AI CONCIERGE* 📊

*Status*: 🟢 Online & Aktif
*Uptime*: %s
*Mode*: Private Chat Only
*AI Engine*: %s

*Aktivitas sejak dinyalakan:*
• Pesan ditangani: %d
• Perintah dijalankan: %d
• Permintaan AI: %d (gagal %d)
• Unduhan media: %d
• Spam terdeteksi: %d

*Pembatasan saat ini:*
• Pengguna aktif di jendela: %d
• Pengguna diblokir: %d

*Penggunaan sistem:*
• Memori: %d MB
• Goroutine: %d

🎯 Sistem beroperasi normal • Semua layanan aktif`,
		snap.Uptime, d.model,
		snap.MessagesHandled, snap.CommandsHandled,
		snap.AIRequests, snap.AIFailures,
		snap.MediaDownloads, snap.SpamDetections,
		limits.ActiveUsers, limits.BlockedUsers,
		snap.MemoryAllocMB, snap.Goroutines)
	d.reply(ctx, msg.ChatID, text)
	return nil
}

func (d *Dispatcher) handleInfo(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	text := fmt.Sprintf(`🤖 *AI CONCIERGE - INFORMASI SISTEM* 🤖

*Bot Name*: mariio4chunk AI
*Version*: Professional v2.1.0
*AI Model*: %s
*Language*: Bahasa Indonesia

*Teknologi:*
• Runtime: %s
• Platform: %s-%s
• WhatsApp: WAHA Gateway
• Database: SQLite

🇮🇩 Made in Indonesia • %s
💡 Powered by Google Gemini`,
		d.model, runtime.Version(), runtime.GOOS, runtime.GOARCH,
		d.now().Format("02/01/2006 15:04"))
	d.reply(ctx, msg.ChatID, text)
	return nil
}

func (d *Dispatcher) handleAI(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		d.reply(ctx, msg.ChatID,
			"❓ *Perintah Tidak Lengkap*\n\n"+
				"📝 *Contoh penggunaan:*\n"+
				"• `/ai jelaskan tentang kecerdasan buatan`\n"+
				"• `/ai bagaimana cara kerja blockchain?`\n"+
				"• `/ai analisis tren teknologi 2024`\n\n"+
				"💡 *Tip:* Semakin spesifik pertanyaan, semakin akurat jawaban yang diberikan.")
		return nil
	}
	if !d.admitAI(ctx, msg.ChatID, user) {
		return nil
	}

	hasURL := urlDetect.MatchString(prompt)
	isQuestion := questionPattern.MatchString(prompt)

	label := "AI Concierge sedang memproses permintaan"
	switch {
	case hasURL:
		label = "AI sedang menganalisis konten dari URL"
	case isQuestion:
		label = "AI sedang mencari jawaban terbaik"
	}

	return d.generate(ctx, msg, user, models.GenerationRequest{
		Prompt:       prompt,
		UseGrounding: hasURL || isQuestion || searchRequest.MatchString(prompt),
		FallbackMode: true,
	}, label)
}

func (d *Dispatcher) handleSearch(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		d.reply(ctx, msg.ChatID, "❓ *Perintah Tidak Lengkap*\n*Contoh:* `/search penemu bola lampu`")
		return nil
	}
	if !d.admitAI(ctx, msg.ChatID, user) {
		return nil
	}

	return d.generate(ctx, msg, user, models.GenerationRequest{
		Prompt:       query,
		UseGrounding: true,
		FallbackMode: true,
	}, "Melakukan riset web")
}

// generate runs the orchestrator behind a progress session, placing the
// final text where the animation was.
func (d *Dispatcher) generate(ctx context.Context, msg *models.InboundMessage, user *models.User, req models.GenerationRequest, label string) error {
	session, err := d.progress.Start(ctx, msg.ChatID, label)
	if err != nil {
		return fmt.Errorf("failed to start progress session: %w", err)
	}
	// The deferred Stop covers panicking workers; Stop is idempotent so the
	// explicit call before the final edit stays.
	defer session.Stop()

	result, err := d.generator.Respond(ctx, req)
	session.Stop()

	if err != nil {
		d.status.AIRequest(false)
		d.editOrSend(ctx, session.Anchor(), "❌ *Sistem AI Mengalami Gangguan*\n\nCoba lagi dalam beberapa saat.")
		return fmt.Errorf("generation failed: %w", err)
	}

	d.editOrSend(ctx, session.Anchor(), result.Text)
	d.status.AIRequest(!result.Fallback)

	if dbErr := d.repo.LogAIInteraction(ctx, database.AIInteraction{
		UserID:         user.ID,
		Prompt:         req.Prompt,
		ResponseLength: len(result.Text),
		Model:          d.model,
		GroundingMode:  string(result.Mode),
		Attempt:        result.Attempt,
		ResponseTimeMs: result.Elapsed.Milliseconds(),
		Success:        !result.Fallback,
	}); dbErr != nil {
		d.logger.WithError(dbErr).Warn("Failed to log AI interaction")
	}
	return nil
}

func (d *Dispatcher) handleImage(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		d.reply(ctx, msg.ChatID, "❓ *Perintah tidak lengkap.*\n*Contoh:* `/image kucing astronot`")
		return nil
	}
	if !d.admitAI(ctx, msg.ChatID, user) {
		return nil
	}

	session, err := d.progress.Start(ctx, msg.ChatID, "AI sedang menggambar")
	if err != nil {
		return fmt.Errorf("failed to start progress session: %w", err)
	}
	defer session.Stop()

	data, mimeType, err := d.vision.GenerateImage(ctx, prompt)
	session.Stop()

	if err != nil {
		d.status.AIRequest(false)
		d.editOrSend(ctx, session.Anchor(), "❌ *Gagal Membuat Gambar*\n\n*Alasan:* Sistem tidak dapat membuat gambar saat ini.")
		return fmt.Errorf("image generation failed: %w", err)
	}

	d.editOrSend(ctx, session.Anchor(), fmt.Sprintf("✅ *Gambar Dibuat!*\n\n_%q_", prompt))
	if _, err := d.transport.SendMedia(ctx, msg.ChatID, whatsapp.MediaImage, data, mimeType, "imagen"+extensionFor(mimeType), "_Dibuat oleh Imagen_"); err != nil {
		return fmt.Errorf("failed to send generated image: %w", err)
	}
	d.status.AIRequest(true)
	return nil
}

// admitAI applies the AI rate limit class, replying on rejection.
func (d *Dispatcher) admitAI(ctx context.Context, chatID string, user *models.User) bool {
	if d.limiter.Check(user.ExternalID, ratelimit.ClassAI) {
		return true
	}
	d.status.RateLimitRejected()
	d.reply(ctx, chatID, "⏱️ *Batas Penggunaan AI Tercapai*\n\nTunggu beberapa menit sebelum mengirim permintaan AI berikutnya.")
	return false
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
