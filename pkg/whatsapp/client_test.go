package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/void-rizqiagung/bot-mariioV2/internal/errors"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-api-key", "default")
}

func TestSendText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sendText", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "default", payload["session"])
		assert.Equal(t, "628123@s.whatsapp.net", payload["chatId"])
		assert.Equal(t, "halo", payload["text"])

		w.Write([]byte(`{"id":{"_serialized":"true_628123@s.whatsapp.net_ABCD"}}`))
	})

	handle, err := client.SendText(context.Background(), "628123@s.whatsapp.net", "halo")
	require.NoError(t, err)
	assert.Equal(t, "true_628123@s.whatsapp.net_ABCD", handle.MessageID)
	assert.Equal(t, "628123@s.whatsapp.net", handle.ChatID)
}

func TestSendTextServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	})

	_, err := client.SendText(context.Background(), "628123@s.whatsapp.net", "halo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, apperrors.ErrCodeTransportAPI, apperrors.GetCode(err))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestSendTextGatewayUnavailableRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.SendText(context.Background(), "628123@s.whatsapp.net", "halo")
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestSendMedia(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sendVideo", r.URL.Path)

		var payload struct {
			ChatID  string `json:"chatId"`
			Caption string `json:"caption"`
			File    struct {
				MimeType string `json:"mimetype"`
				Filename string `json:"filename"`
				Data     string `json:"data"`
			} `json:"file"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "video/mp4", payload.File.MimeType)
		assert.Equal(t, "klip.mp4", payload.File.Filename)
		assert.NotEmpty(t, payload.File.Data)
		assert.Equal(t, "judul klip", payload.Caption)

		w.Write([]byte(`{"id":{"_serialized":"true_x_1"}}`))
	})

	handle, err := client.SendMedia(context.Background(), "628123@s.whatsapp.net", MediaVideo, []byte("bytes"), "video/mp4", "klip.mp4", "judul klip")
	require.NoError(t, err)
	assert.Equal(t, "true_x_1", handle.MessageID)
}

func TestSendMediaUnsupportedKind(t *testing.T) {
	client := NewClient("http://localhost:0", "k", "default")
	_, err := client.SendMedia(context.Background(), "c", "hologram", nil, "", "", "")
	assert.Error(t, err)
}

func TestEditText(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	handle := models.MessageHandle{ChatID: "628123@s.whatsapp.net", MessageID: "MSG1"}
	require.NoError(t, client.EditText(context.Background(), handle, "teks baru"))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/default/chats/628123@s.whatsapp.net/messages/MSG1", gotPath)
}

func TestDeleteMessage(t *testing.T) {
	var gotMethod string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	})

	handle := models.MessageHandle{ChatID: "c", MessageID: "m"}
	require.NoError(t, client.DeleteMessage(context.Background(), handle))
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestSetPresence(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.SetPresence(context.Background(), "c", models.PresenceComposing))
	require.NoError(t, client.SetPresence(context.Background(), "c", models.PresenceAvailable))
	assert.Equal(t, []string{"/api/startTyping", "/api/stopTyping"}, paths)
}

func TestMarkSeen(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sendSeen", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, client.MarkSeen(context.Background(), "c"))
}

func TestDownloadMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		w.Write([]byte("media-bytes"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-api-key", "default")
	data, err := client.DownloadMedia(context.Background(), server.URL+"/files/abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("media-bytes"), data)
}

func TestDownloadMediaNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-api-key", "default")
	_, err := client.DownloadMedia(context.Background(), server.URL+"/files/missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMediaDownload, apperrors.GetCode(err))
}
