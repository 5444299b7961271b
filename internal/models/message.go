package models

import (
	"strings"
	"time"

	"github.com/void-rizqiagung/bot-mariioV2/internal/constants"
)

// ContentKind classifies the payload of an inbound chat event.
type ContentKind string

const (
	ContentText            ContentKind = "text"
	ContentImage           ContentKind = "image"
	ContentVideo           ContentKind = "video"
	ContentQuoted          ContentKind = "quoted"
	ContentStatusBroadcast ContentKind = "statusBroadcast"
	ContentViewOnce        ContentKind = "viewOnce"
	ContentOther           ContentKind = "other"
)

// MediaRef points at a media payload held by the transport. The bytes are
// fetched lazily through the transport's download endpoint.
type MediaRef struct {
	Kind        ContentKind `json:"kind"`
	DownloadURL string      `json:"downloadUrl"`
	MimeType    string      `json:"mimeType"`
	Caption     string      `json:"caption,omitempty"`
}

// InboundMessage is one chat event as delivered by the messaging transport.
// It is immutable once received and classified exactly once.
type InboundMessage struct {
	MessageID string      `json:"messageId"`
	ChatID    string      `json:"chatId"`
	SenderID  string      `json:"senderId"`
	PushName  string      `json:"pushName,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Kind      ContentKind `json:"kind"`
	Text      string      `json:"text,omitempty"`
	Media     *MediaRef   `json:"media,omitempty"`
	// QuotedMedia carries media from the replied-to message, if any.
	QuotedMedia *MediaRef `json:"quotedMedia,omitempty"`
	// ViewOnce carries the inner payload of a view-once envelope, if any.
	ViewOnce *MediaRef `json:"viewOnce,omitempty"`
}

// MessageHandle identifies an outbound message so it can later be edited or
// deleted in place.
type MessageHandle struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

// PresenceState mirrors the transport's presence vocabulary.
type PresenceState string

const (
	PresenceComposing PresenceState = "composing"
	PresenceAvailable PresenceState = "available"
)

func IsGroupChat(chatID string) bool {
	return strings.HasSuffix(chatID, constants.GroupChatSuffix)
}

func IsDirectChat(chatID string) bool {
	return strings.HasSuffix(chatID, constants.DirectChatSuffix)
}

func IsStatusBroadcast(chatID string) bool {
	return chatID == constants.StatusBroadcastJID
}

// SenderExternalID strips the transport suffix off a chat ID, yielding the
// bare user identifier stored in the repository.
func SenderExternalID(chatID string) string {
	return strings.TrimSuffix(chatID, constants.DirectChatSuffix)
}
