package whatsapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// WebhookEvent is the gateway's envelope for every pushed event.
type WebhookEvent struct {
	Event   string          `json:"event"`
	Session string          `json:"session"`
	Payload json.RawMessage `json:"payload"`
}

type messagePayload struct {
	ID         string         `json:"id"`
	Timestamp  int64          `json:"timestamp"`
	From       string         `json:"from"`
	FromMe     bool           `json:"fromMe"`
	Body       string         `json:"body"`
	PushName   string         `json:"pushName"`
	HasMedia   bool           `json:"hasMedia"`
	MimeType   string         `json:"mimeType"`
	MediaURL   string         `json:"mediaUrl"`
	Caption    string         `json:"caption"`
	IsViewOnce bool           `json:"isViewOnce"`
	Quoted     *quotedPayload `json:"quotedMsg"`
}

type quotedPayload struct {
	ID       string `json:"id"`
	HasMedia bool   `json:"hasMedia"`
	MimeType string `json:"mimeType"`
	MediaURL string `json:"mediaUrl"`
	Caption  string `json:"caption"`
	Body     string `json:"body"`
}

// ErrIgnoredEvent marks webhook events the engine has no interest in, such
// as the bot's own outbound messages.
var ErrIgnoredEvent = fmt.Errorf("ignored webhook event")

// DecodeMessage converts a webhook event into the engine's inbound message
// model. Classification happens exactly once, here.
func DecodeMessage(event *WebhookEvent) (*models.InboundMessage, error) {
	if event.Event != "message" {
		return nil, ErrIgnoredEvent
	}

	var payload messagePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message payload: %w", err)
	}
	if payload.FromMe {
		return nil, ErrIgnoredEvent
	}

	msg := &models.InboundMessage{
		MessageID: payload.ID,
		ChatID:    payload.From,
		SenderID:  models.SenderExternalID(payload.From),
		PushName:  payload.PushName,
		Timestamp: time.Unix(payload.Timestamp, 0),
		Text:      payload.Body,
	}

	switch {
	case models.IsStatusBroadcast(payload.From):
		msg.Kind = models.ContentStatusBroadcast
		if payload.HasMedia {
			msg.Media = mediaRef(kindForMime(payload.MimeType), payload.MediaURL, payload.MimeType, payload.Caption)
		}

	case payload.IsViewOnce && payload.HasMedia:
		msg.Kind = models.ContentViewOnce
		msg.ViewOnce = mediaRef(kindForMime(payload.MimeType), payload.MediaURL, payload.MimeType, payload.Caption)

	case payload.HasMedia:
		kind := kindForMime(payload.MimeType)
		msg.Kind = kind
		msg.Media = mediaRef(kind, payload.MediaURL, payload.MimeType, payload.Caption)
		if payload.Caption != "" {
			msg.Text = payload.Caption
		}

	case payload.Quoted != nil && payload.Quoted.HasMedia:
		msg.Kind = models.ContentQuoted
		msg.QuotedMedia = mediaRef(kindForMime(payload.Quoted.MimeType), payload.Quoted.MediaURL, payload.Quoted.MimeType, payload.Quoted.Caption)

	case payload.Body != "":
		msg.Kind = models.ContentText

	default:
		msg.Kind = models.ContentOther
	}

	return msg, nil
}

func kindForMime(mimeType string) models.ContentKind {
	switch {
	case len(mimeType) >= 6 && mimeType[:6] == "image/":
		return models.ContentImage
	case len(mimeType) >= 6 && mimeType[:6] == "video/":
		return models.ContentVideo
	default:
		return models.ContentOther
	}
}

func mediaRef(kind models.ContentKind, url, mimeType, caption string) *models.MediaRef {
	return &models.MediaRef{
		Kind:        kind,
		DownloadURL: url,
		MimeType:    mimeType,
		Caption:     caption,
	}
}
