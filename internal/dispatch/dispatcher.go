package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/void-rizqiagung/bot-mariioV2/internal/database"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
	"github.com/void-rizqiagung/bot-mariioV2/internal/progress"
	"github.com/void-rizqiagung/bot-mariioV2/internal/ratelimit"
	"github.com/void-rizqiagung/bot-mariioV2/internal/service"
)

// Command is a recognized chat command, stored without its prefix.
type Command string

const (
	CommandHelp     Command = "help"
	CommandStart    Command = "start"
	CommandMenu     Command = "menu"
	CommandPing     Command = "ping"
	CommandStatus   Command = "status"
	CommandInfo     Command = "info"
	CommandAI       Command = "ai"
	CommandSearch   Command = "search"
	CommandImage    Command = "image"
	CommandAnalyze  Command = "analyze"
	CommandSticker  Command = "sticker"
	CommandHD       Command = "hd"
	CommandYouTube  Command = "yt"
	CommandYTMP3    Command = "ytmp3"
	CommandTikTok   Command = "tiktok"
	CommandSchedule Command = "schedule"
)

// Transport is the slice of the messaging gateway the dispatcher drives.
type Transport interface {
	SendText(ctx context.Context, chatID, text string) (*models.MessageHandle, error)
	SendMedia(ctx context.Context, chatID, kind string, data []byte, mimeType, filename, caption string) (*models.MessageHandle, error)
	EditText(ctx context.Context, handle models.MessageHandle, text string) error
	DeleteMessage(ctx context.Context, handle models.MessageHandle) error
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}

// Generator runs one orchestrated AI generation.
type Generator interface {
	Respond(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error)
}

// Vision covers the multimodal and image-producing model calls.
type Vision interface {
	AnalyzeImage(ctx context.Context, imageData []byte, mimeType, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}

// Upscaler enhances image resolution. Optional; a nil upscaler makes /hd
// report the feature as unavailable.
type Upscaler interface {
	Upscale(ctx context.Context, imageData []byte, mimeType string) ([]byte, string, error)
}

// Downloader is the platform media pipeline.
type Downloader interface {
	Fetch(ctx context.Context, url string, track models.TrackKind) (*models.MediaFile, error)
}

// ProgressStarter opens animated progress sessions on the chat.
type ProgressStarter interface {
	Start(ctx context.Context, chatID, label string) (*progress.Session, error)
}

// RateLimiter admits or rejects requests per user and class. Stats feeds
// the status surface.
type RateLimiter interface {
	Check(userID string, class ratelimit.Class) bool
	Stats() ratelimit.Stats
}

// Repository receives activity records. Every call is best-effort: a failed
// write is logged and never surfaces into the chat flow.
type Repository interface {
	LogCommandUsage(ctx context.Context, userID int64, command, parameters string, success bool, responseTimeMs int64, errorMessage string) error
	LogAIInteraction(ctx context.Context, rec database.AIInteraction) error
	LogMediaDownload(ctx context.Context, rec database.MediaDownload) error
}

type handlerFunc func(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error

// Dispatcher routes recognized commands to their handlers. The table is
// fixed at construction; ProcessCommand is the single entry point.
type Dispatcher struct {
	transport Transport
	generator Generator
	vision    Vision
	upscaler  Upscaler
	media     Downloader
	progress  ProgressStarter
	limiter   RateLimiter
	repo      Repository
	status    *service.StatusService
	model     string
	logger    *logrus.Logger
	tracer    trace.Tracer

	handlers map[Command]handlerFunc
	now      func() time.Time
}

func NewDispatcher(transport Transport, generator Generator, vision Vision, upscaler Upscaler, media Downloader, notifier ProgressStarter, limiter RateLimiter, repo Repository, status *service.StatusService, model string, logger *logrus.Logger) *Dispatcher {
	d := &Dispatcher{
		transport: transport,
		generator: generator,
		vision:    vision,
		upscaler:  upscaler,
		media:     media,
		progress:  notifier,
		limiter:   limiter,
		repo:      repo,
		status:    status,
		model:     model,
		logger:    logger,
		tracer:    otel.Tracer("dispatch"),
		now:       time.Now,
	}

	d.handlers = map[Command]handlerFunc{
		CommandHelp:     d.handleHelp,
		CommandStart:    d.handleStart,
		CommandMenu:     d.handleMenu,
		CommandPing:     d.handlePing,
		CommandStatus:   d.handleStatus,
		CommandInfo:     d.handleInfo,
		CommandAI:       d.handleAI,
		CommandSearch:   d.handleSearch,
		CommandImage:    d.handleImage,
		CommandAnalyze:  d.handleAnalyzeHint,
		CommandSticker:  d.handleStickerHint,
		CommandHD:       d.handleHDHint,
		CommandYouTube:  d.handleYouTube,
		CommandYTMP3:    d.handleYouTubeAudio,
		CommandTikTok:   d.handleTikTok,
		CommandSchedule: d.handleSchedule,
	}
	return d
}

// normalizeToken lowercases a raw command token and strips its prefix.
func normalizeToken(token string) Command {
	s := strings.ToLower(token)
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimPrefix(s, ".")
	return Command(s)
}

// ProcessCommand resolves the raw token against the handler table, guards
// the handler against panics and replies once on any failure. Unknown
// tokens get a naming reply instead of silence.
func (d *Dispatcher) ProcessCommand(ctx context.Context, msg *models.InboundMessage, user *models.User, token string, args []string) {
	command := normalizeToken(token)

	ctx, span := d.tracer.Start(ctx, "dispatch.command",
		trace.WithAttributes(attribute.String("command", string(command))))
	defer span.End()

	handler, ok := d.handlers[command]
	if !ok {
		d.reply(ctx, msg.ChatID, fmt.Sprintf("❓ Perintah `%s` tidak ditemukan.", token))
		return
	}

	if !d.limiter.Check(user.ExternalID, ratelimit.ClassCommands) {
		d.status.RateLimitRejected()
		d.reply(ctx, msg.ChatID, "⏱️ *Batas Penggunaan Tercapai*\n\nAnda mengirim perintah terlalu cepat. Tunggu sebentar lalu coba lagi.")
		return
	}

	start := d.now()
	err := d.invoke(ctx, handler, msg, args, user)
	elapsed := d.now().Sub(start)

	entry := d.logger.WithFields(logrus.Fields{
		"command":     string(command),
		"user_id":     user.ID,
		"duration_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("Command execution failed")
		d.reply(ctx, msg.ChatID, "❌ Terjadi kesalahan internal pada sistem.")
	} else {
		entry.Info("Command executed")
	}

	d.status.CommandHandled()
	d.logCommandUsage(ctx, user.ID, command, strings.Join(args, " "), err, elapsed)
}

// invoke runs one handler with panic isolation. A panicking handler is an
// internal bug, never a crashed process.
func (d *Dispatcher) invoke(ctx context.Context, handler handlerFunc, msg *models.InboundMessage, args []string, user *models.User) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithFields(logrus.Fields{
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("Command handler panicked")
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, msg, args, user)
}

// reply sends a plain text answer, logging delivery failures only.
func (d *Dispatcher) reply(ctx context.Context, chatID, text string) {
	if _, err := d.transport.SendText(ctx, chatID, text); err != nil {
		d.logger.WithField("chat_id", chatID).WithError(err).Error("Failed to send reply")
	}
}

// editOrSend rewrites the anchor in place, falling back to a fresh message
// when the edit is rejected.
func (d *Dispatcher) editOrSend(ctx context.Context, handle models.MessageHandle, text string) {
	if err := d.transport.EditText(ctx, handle, text); err != nil {
		d.logger.WithError(err).Warn("Message edit failed, sending new message")
		d.reply(ctx, handle.ChatID, text)
	}
}

func (d *Dispatcher) logCommandUsage(ctx context.Context, userID int64, command Command, parameters string, err error, elapsed time.Duration) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	if dbErr := d.repo.LogCommandUsage(ctx, userID, string(command), parameters, err == nil, elapsed.Milliseconds(), errMsg); dbErr != nil {
		d.logger.WithError(dbErr).Warn("Failed to log command usage")
	}
}
