package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

type fakeSender struct {
	chatIDs []string
	texts   []string
}

func (f *fakeSender) SendText(ctx context.Context, chatID, text string) (*models.MessageHandle, error) {
	f.chatIDs = append(f.chatIDs, chatID)
	f.texts = append(f.texts, text)
	return &models.MessageHandle{ChatID: chatID, MessageID: "D1"}, nil
}

type fakeStats struct {
	view DailyStatsView
}

func (f *fakeStats) GetDailyStats(ctx context.Context) (*DailyStatsView, error) {
	return &f.view, nil
}

func newTestDigest(t *testing.T, cron string) (*DigestService, *fakeSender) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	sender := &fakeSender{}
	svc, err := NewDigestService(
		models.DigestConfig{Enabled: true, Cron: cron, Timezone: "Asia/Jakarta"},
		"628000@s.whatsapp.net",
		sender,
		&fakeStats{view: DailyStatsView{Messages: 42, Commands: 7}},
		NewStatusService(),
		logger,
	)
	require.NoError(t, err)
	return svc, sender
}

func TestNewDigestServiceValidation(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	_, err := NewDigestService(models.DigestConfig{Cron: "not a cron", Timezone: "Asia/Jakarta"},
		"a", &fakeSender{}, &fakeStats{}, NewStatusService(), logger)
	assert.Error(t, err)

	_, err = NewDigestService(models.DigestConfig{Cron: "0 7 * * *", Timezone: "Mars/Olympus"},
		"a", &fakeSender{}, &fakeStats{}, NewStatusService(), logger)
	assert.Error(t, err)
}

func TestSendDigestContent(t *testing.T) {
	svc, sender := newTestDigest(t, "0 7 * * *")
	svc.now = func() time.Time {
		return time.Date(2025, 6, 15, 7, 0, 0, 0, time.UTC)
	}

	require.NoError(t, svc.sendDigest(context.Background()))
	require.Len(t, sender.texts, 1)
	assert.Equal(t, "628000@s.whatsapp.net", sender.chatIDs[0])
	assert.Contains(t, sender.texts[0], "LAPORAN HARIAN BOT")
	assert.Contains(t, sender.texts[0], "Pesan tercatat: 42")
	assert.Contains(t, sender.texts[0], "Perintah dijalankan: 7")
}

func TestDigestCronDueEvaluation(t *testing.T) {
	svc, _ := newTestDigest(t, "0 7 * * *")

	// 07:00 Jakarta time matches, 07:01 does not.
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	due, err := svc.cron.IsDue("0 7 * * *", time.Date(2025, 6, 15, 7, 0, 30, 0, jakarta))
	require.NoError(t, err)
	assert.True(t, due)

	due, err = svc.cron.IsDue("0 7 * * *", time.Date(2025, 6, 15, 7, 1, 0, 0, jakarta))
	require.NoError(t, err)
	assert.False(t, due)
}
