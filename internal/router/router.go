package router

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

	"github.com/void-rizqiagung/bot-mariioV2/internal/mediafetch"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
	"github.com/void-rizqiagung/bot-mariioV2/internal/ratelimit"
	"github.com/void-rizqiagung/bot-mariioV2/internal/service"
	"github.com/void-rizqiagung/bot-mariioV2/pkg/whatsapp"
)

var commandPrefixes = []string{"/", "."}

// Transport is the slice of the messaging gateway the router needs.
type Transport interface {
	SendText(ctx context.Context, chatID, text string) (*models.MessageHandle, error)
	SendMedia(ctx context.Context, chatID, kind string, data []byte, mimeType, filename, caption string) (*models.MessageHandle, error)
	SetPresence(ctx context.Context, chatID string, state models.PresenceState) error
	MarkSeen(ctx context.Context, chatID string) error
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}

// Dispatcher executes recognized commands and the image-backed flows.
type Dispatcher interface {
	ProcessCommand(ctx context.Context, msg *models.InboundMessage, user *models.User, token string, args []string)
	HandleSticker(ctx context.Context, msg *models.InboundMessage, media *models.MediaRef, user *models.User)
	HandleAnalyze(ctx context.Context, msg *models.InboundMessage, media *models.MediaRef, user *models.User, caption string)
	HandleUpscale(ctx context.Context, msg *models.InboundMessage, media *models.MediaRef, user *models.User)
}

// Repository resolves users and records inbound traffic. Both calls are
// best-effort from the router's perspective.
type Repository interface {
	GetOrCreateUser(ctx context.Context, externalID, displayName string) (*models.User, error)
	LogMessage(ctx context.Context, userID int64, chatID, messageType, content string, fromBot bool) error
}

// RateLimiter admits messages and detects verbatim-repeat spam.
type RateLimiter interface {
	Check(userID string, class ratelimit.Class) bool
	IsSpamming(userID, body string) bool
	IsBlocked(userID string) bool
	Block(userID string, ttl time.Duration)
}

// Router classifies every inbound message exactly once and forwards it to
// the matching flow. Unrecognized traffic is dropped silently; the bot never
// volunteers a reply to plain conversation.
type Router struct {
	transport   Transport
	dispatcher  Dispatcher
	repo        Repository
	limiter     RateLimiter
	status      service.StatusSink
	adminChatID string
	logger      *logrus.Logger
	tracer      trace.Tracer
}

func NewRouter(transport Transport, dispatcher Dispatcher, repo Repository, limiter RateLimiter, status service.StatusSink, adminChatID string, logger *logrus.Logger) *Router {
	return &Router{
		transport:   transport,
		dispatcher:  dispatcher,
		repo:        repo,
		limiter:     limiter,
		status:      status,
		adminChatID: adminChatID,
		logger:      logger,
		tracer:      otel.Tracer("router"),
	}
}

// HandleMessage is the single entry point for inbound chat events. It never
// panics outward; classification bugs are logged and swallowed.
func (r *Router) HandleMessage(ctx context.Context, msg *models.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithFields(logrus.Fields{
				"panic": fmt.Sprintf("%v", rec),
				"stack": string(debug.Stack()),
			}).Error("Message handling panicked")
		}
	}()

	ctx, span := r.tracer.Start(ctx, "router.handle",
		trace.WithAttributes(attribute.String("kind", string(msg.Kind))))
	defer span.End()

	if msg.Kind == models.ContentStatusBroadcast {
		r.viewStatus(ctx, msg)
		return
	}

	if msg.Kind == models.ContentViewOnce && models.IsDirectChat(msg.ChatID) {
		r.archiveViewOnce(ctx, msg)
		return
	}

	// The bot lives in private chats only; group traffic is never answered.
	if !models.IsDirectChat(msg.ChatID) {
		return
	}

	if r.limiter.IsBlocked(msg.SenderID) {
		return
	}
	if !r.limiter.Check(msg.SenderID, ratelimit.ClassMessages) {
		r.status.RateLimitRejected()
		return
	}

	user := r.resolveUser(ctx, msg)
	r.logInbound(ctx, user, msg)
	r.status.MessageHandled()

	if msg.Text != "" && r.limiter.IsSpamming(msg.SenderID, msg.Text) {
		r.limiter.Block(msg.SenderID, 0)
		r.status.SpamDetected()
		r.reply(ctx, msg.ChatID, "🚫 Anda terdeteksi mengirim pesan yang sama berulang kali. Akses dibatasi sementara.")
		return
	}

	// A reply quoting an image can carry the image commands in its text.
	if msg.Kind == models.ContentQuoted && msg.QuotedMedia != nil && msg.QuotedMedia.Kind == models.ContentImage {
		if r.runImageCommand(ctx, msg, msg.QuotedMedia, user, msg.Text) {
			return
		}
	}

	switch msg.Kind {
	case models.ContentText, models.ContentQuoted:
		r.handleText(ctx, msg, user)
	case models.ContentImage:
		r.runImageCommand(ctx, msg, msg.Media, user, msg.Text)
	}
}

func (r *Router) handleText(ctx context.Context, msg *models.InboundMessage, user *models.User) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	for _, prefix := range commandPrefixes {
		if strings.HasPrefix(text, prefix) {
			r.runCommand(ctx, msg, user, text)
			return
		}
	}

	if platform, ok := mediafetch.DetectPlatform(text); ok {
		r.sendDownloadHint(ctx, msg.ChatID, platform, text)
	}
	// No response for plain conversation; the bot stays quiet.
}

// runCommand tokenizes the text and drives the dispatcher behind a typing
// indicator that is always released.
func (r *Router) runCommand(ctx context.Context, msg *models.InboundMessage, user *models.User, text string) {
	if err := r.transport.MarkSeen(ctx, msg.ChatID); err != nil {
		r.logger.WithError(err).Debug("Failed to mark chat as seen")
	}
	if err := r.transport.SetPresence(ctx, msg.ChatID, models.PresenceComposing); err != nil {
		r.logger.WithError(err).Warn("Failed to publish typing indicator")
	}
	defer func() {
		if err := r.transport.SetPresence(ctx, msg.ChatID, models.PresenceAvailable); err != nil {
			r.logger.WithError(err).Warn("Failed to clear typing indicator")
		}
	}()

	fields := strings.Fields(text)
	r.dispatcher.ProcessCommand(ctx, msg, user, fields[0], fields[1:])
}

// runImageCommand reacts to the image commands embedded in a caption or
// quoted-reply text. Reports whether a command was found.
func (r *Router) runImageCommand(ctx context.Context, msg *models.InboundMessage, media *models.MediaRef, user *models.User, caption string) bool {
	lower := strings.ToLower(caption)
	switch {
	case containsCommand(lower, "sticker"):
		r.dispatcher.HandleSticker(ctx, msg, media, user)
	case containsCommand(lower, "analyze"):
		r.dispatcher.HandleAnalyze(ctx, msg, media, user, caption)
	case containsCommand(lower, "hd"):
		r.dispatcher.HandleUpscale(ctx, msg, media, user)
	default:
		return false
	}
	return true
}

func containsCommand(lower, name string) bool {
	return strings.Contains(lower, "/"+name) || strings.Contains(lower, "."+name)
}

func (r *Router) sendDownloadHint(ctx context.Context, chatID string, platform models.Platform, url string) {
	var sb strings.Builder
	sb.WriteString("🔗 *Link Terdeteksi*\n\n")
	switch platform {
	case models.PlatformYouTube:
		fmt.Fprintf(&sb, "Untuk mengunduh, gunakan:\n• `/yt %s`\n• `/ytmp3 %s`", url, url)
	case models.PlatformTikTok:
		fmt.Fprintf(&sb, "Untuk mengunduh, gunakan:\n• `/tiktok %s`", url)
	}
	r.reply(ctx, chatID, sb.String())
}

// viewStatus acknowledges a contact's story without replying.
func (r *Router) viewStatus(ctx context.Context, msg *models.InboundMessage) {
	if err := r.transport.MarkSeen(ctx, msg.ChatID); err != nil {
		r.logger.WithError(err).Debug("Failed to view status broadcast")
		return
	}
	r.logger.WithField("sender", msg.SenderID).Debug("Status broadcast viewed")
}

// archiveViewOnce forwards the disappearing media to the admin chat before
// the platform retires it.
func (r *Router) archiveViewOnce(ctx context.Context, msg *models.InboundMessage) {
	if r.adminChatID == "" || msg.ViewOnce == nil {
		return
	}

	data, err := r.transport.DownloadMedia(ctx, msg.ViewOnce.DownloadURL)
	if err != nil {
		r.logger.WithError(err).Error("Failed to download view-once media")
		return
	}

	kind := whatsapp.MediaImage
	if strings.HasPrefix(msg.ViewOnce.MimeType, "video/") {
		kind = whatsapp.MediaVideo
	}
	caption := fmt.Sprintf("📸 Pesan sekali lihat dari *%s*", msg.SenderID)
	if msg.ViewOnce.Caption != "" {
		caption += "\n\n" + msg.ViewOnce.Caption
	}

	if _, err := r.transport.SendMedia(ctx, r.adminChatID, kind, data, msg.ViewOnce.MimeType, "viewonce", caption); err != nil {
		r.logger.WithError(err).Error("Failed to archive view-once media")
		return
	}
	r.logger.WithField("sender", msg.SenderID).Info("View-once media archived")
}

// resolveUser never fails the flow: repository trouble degrades to an
// anonymous user so commands still work.
func (r *Router) resolveUser(ctx context.Context, msg *models.InboundMessage) *models.User {
	name := msg.PushName
	if name == "" {
		name = "User"
	}

	user, err := r.repo.GetOrCreateUser(ctx, msg.SenderID, name)
	if err != nil {
		r.logger.WithField("sender", msg.SenderID).WithError(err).Warn("User lookup failed, using anonymous user")
		return &models.User{ID: -1, ExternalID: msg.SenderID, DisplayName: name}
	}
	return user
}

func (r *Router) logInbound(ctx context.Context, user *models.User, msg *models.InboundMessage) {
	content := msg.Text
	if content == "" {
		content = fmt.Sprintf("[%s]", msg.Kind)
	}
	if err := r.repo.LogMessage(ctx, user.ID, msg.ChatID, string(msg.Kind), content, false); err != nil {
		r.logger.WithError(err).Warn("Failed to log inbound message")
	}
}

func (r *Router) reply(ctx context.Context, chatID, text string) {
	if _, err := r.transport.SendText(ctx, chatID, text); err != nil {
		r.logger.WithField("chat_id", chatID).WithError(err).Error("Failed to send reply")
	}
}
