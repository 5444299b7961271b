package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
	"github.com/void-rizqiagung/bot-mariioV2/internal/ratelimit"
	"github.com/void-rizqiagung/bot-mariioV2/internal/router"
	"github.com/void-rizqiagung/bot-mariioV2/internal/service"
)

type noopTransport struct{}

func (noopTransport) SendText(ctx context.Context, chatID, text string) (*models.MessageHandle, error) {
	return &models.MessageHandle{ChatID: chatID, MessageID: "M1"}, nil
}

func (noopTransport) SendMedia(ctx context.Context, chatID, kind string, data []byte, mimeType, filename, caption string) (*models.MessageHandle, error) {
	return &models.MessageHandle{ChatID: chatID, MessageID: "M2"}, nil
}

func (noopTransport) SetPresence(ctx context.Context, chatID string, state models.PresenceState) error {
	return nil
}
func (noopTransport) MarkSeen(ctx context.Context, chatID string) error      { return nil }
func (noopTransport) DownloadMedia(ctx context.Context, url string) ([]byte, error) { return nil, nil }

type recordingDispatcher struct {
	mu     sync.Mutex
	tokens []string
}

func (d *recordingDispatcher) ProcessCommand(ctx context.Context, msg *models.InboundMessage, user *models.User, token string, args []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens = append(d.tokens, token)
}

func (d *recordingDispatcher) HandleSticker(ctx context.Context, msg *models.InboundMessage, media *models.MediaRef, user *models.User) {
}
func (d *recordingDispatcher) HandleAnalyze(ctx context.Context, msg *models.InboundMessage, media *models.MediaRef, user *models.User, caption string) {
}
func (d *recordingDispatcher) HandleUpscale(ctx context.Context, msg *models.InboundMessage, media *models.MediaRef, user *models.User) {
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tokens)
}

type noopRepo struct{}

func (noopRepo) GetOrCreateUser(ctx context.Context, externalID, displayName string) (*models.User, error) {
	return &models.User{ID: 1, ExternalID: externalID, DisplayName: displayName}, nil
}

func (noopRepo) LogMessage(ctx context.Context, userID int64, chatID, messageType, content string, fromBot bool) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *recordingDispatcher, *service.StatusService) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	dispatcher := &recordingDispatcher{}
	status := service.NewStatusService()
	limiter := ratelimit.NewLimiter(models.RateLimitConfig{
		WindowSec: 60, Messages: 100, Commands: 100, Media: 100, AI: 100,
		SpamWindowSec: 300, SpamThreshold: 3,
	}, logger)
	msgRouter := router.NewRouter(noopTransport{}, dispatcher, noopRepo{}, limiter, status, "", logger)

	return NewServer(0, msgRouter, status, logger), dispatcher, status
}

func TestHealthEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStatusEndpoint(t *testing.T) {
	server, _, status := newTestServer(t)
	status.MessageHandled()

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap service.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.MessagesHandled)
	assert.NotZero(t, snap.Goroutines)
}

func TestWebhookMalformedPayload(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookIgnoredEvent(t *testing.T) {
	server, dispatcher, _ := newTestServer(t)

	body := `{"event":"session.status","session":"default","payload":{}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, dispatcher.count())
}

func TestWebhookRoutesCommand(t *testing.T) {
	server, dispatcher, _ := newTestServer(t)

	body := `{"event":"message","session":"default","payload":{
		"id":"MSG1","from":"628123@s.whatsapp.net","body":"/menu","pushName":"Budi"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Eventually(t, func() bool {
		return dispatcher.count() == 1
	}, time.Second, 10*time.Millisecond)
}
