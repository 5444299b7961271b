package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/void-rizqiagung/bot-mariioV2/internal/errors"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// Client talks to a WAHA-compatible WhatsApp HTTP gateway. All requests are
// authenticated with the X-Api-Key header.
type Client struct {
	baseURL string
	apiKey  string
	session string
	client  *http.Client
}

func NewClient(baseURL, apiKey, session string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		session: session,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type sendResponse struct {
	ID struct {
		Serialized string `json:"_serialized"`
		ID         string `json:"id"`
	} `json:"id"`
	Error string `json:"error,omitempty"`
}

func (r *sendResponse) messageID() string {
	if r.ID.Serialized != "" {
		return r.ID.Serialized
	}
	return r.ID.ID
}

// SendText sends a plain text message and returns a handle for later edits.
func (c *Client) SendText(ctx context.Context, chatID, text string) (*models.MessageHandle, error) {
	payload := map[string]interface{}{
		"session": c.session,
		"chatId":  chatID,
		"text":    text,
	}

	var result sendResponse
	if err := c.post(ctx, "/api/sendText", payload, &result); err != nil {
		return nil, err
	}
	return &models.MessageHandle{ChatID: chatID, MessageID: result.messageID()}, nil
}

// Media kinds accepted by SendMedia.
const (
	MediaImage   = "image"
	MediaVideo   = "video"
	MediaAudio   = "audio"
	MediaSticker = "sticker"
	MediaFile    = "file"
)

// SendMedia sends raw media bytes inline as base64. The gateway handles
// re-encoding for the recipient platform.
func (c *Client) SendMedia(ctx context.Context, chatID, kind string, data []byte, mimeType, filename, caption string) (*models.MessageHandle, error) {
	endpoint := map[string]string{
		MediaImage:   "/api/sendImage",
		MediaVideo:   "/api/sendVideo",
		MediaAudio:   "/api/sendVoice",
		MediaSticker: "/api/sendImage",
		MediaFile:    "/api/sendFile",
	}[kind]
	if endpoint == "" {
		return nil, fmt.Errorf("unsupported media kind: %s", kind)
	}

	payload := map[string]interface{}{
		"session": c.session,
		"chatId":  chatID,
		"file": map[string]string{
			"mimetype": mimeType,
			"filename": filename,
			"data":     base64.StdEncoding.EncodeToString(data),
		},
	}
	if caption != "" {
		payload["caption"] = caption
	}

	var result sendResponse
	if err := c.post(ctx, endpoint, payload, &result); err != nil {
		return nil, err
	}
	return &models.MessageHandle{ChatID: chatID, MessageID: result.messageID()}, nil
}

// EditText rewrites a previously sent message in place.
func (c *Client) EditText(ctx context.Context, handle models.MessageHandle, text string) error {
	endpoint := fmt.Sprintf("/api/%s/chats/%s/messages/%s", c.session, handle.ChatID, handle.MessageID)
	return c.do(ctx, http.MethodPut, endpoint, map[string]interface{}{"text": text}, nil)
}

// DeleteMessage removes a previously sent message for everyone.
func (c *Client) DeleteMessage(ctx context.Context, handle models.MessageHandle) error {
	endpoint := fmt.Sprintf("/api/%s/chats/%s/messages/%s", c.session, handle.ChatID, handle.MessageID)
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// SetPresence publishes a typing indicator for the chat.
func (c *Client) SetPresence(ctx context.Context, chatID string, state models.PresenceState) error {
	endpoint := "/api/stopTyping"
	if state == models.PresenceComposing {
		endpoint = "/api/startTyping"
	}
	return c.post(ctx, endpoint, map[string]interface{}{
		"session": c.session,
		"chatId":  chatID,
	}, nil)
}

// MarkSeen acknowledges a chat's pending messages with read receipts.
func (c *Client) MarkSeen(ctx context.Context, chatID string) error {
	return c.post(ctx, "/api/sendSeen", map[string]interface{}{
		"session": c.session,
		"chatId":  chatID,
	}, nil)
}

// DownloadMedia fetches media bytes from a transport download URL.
func (c *Client) DownloadMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMediaDownload, "failed to download media")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.ErrCodeMediaDownload,
			fmt.Sprintf("media download failed with status %d", resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	return c.do(ctx, http.MethodPost, endpoint, payload, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeTransportAPI, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		appErr := apperrors.New(apperrors.ErrCodeTransportAPI,
			fmt.Sprintf("request to %s failed with status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(data))))
		// Gateway-side trouble is worth a retry; client mistakes are not.
		appErr.Retryable = resp.StatusCode >= 500
		return appErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
