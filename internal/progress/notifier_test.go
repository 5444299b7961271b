package progress

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []string
	edits    []string
	sendErr  error
	editErr  error
	editCh   chan struct{}
	editSeen int
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{editCh: make(chan struct{}, 64)}
}

func (m *fakeMessenger) SendText(ctx context.Context, chatID, text string) (*models.MessageHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, text)
	return &models.MessageHandle{ChatID: chatID, MessageID: "anchor-1"}, nil
}

func (m *fakeMessenger) EditText(ctx context.Context, handle models.MessageHandle, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, text)
	m.editSeen++
	select {
	case m.editCh <- struct{}{}:
	default:
	}
	return nil
}

func (m *fakeMessenger) editCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editSeen
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newShortNotifier(m Messenger) *Notifier {
	n := NewNotifier(m, testLogger())
	n.interval = 5 * time.Millisecond
	return n
}

func TestStartSendsAnchorWithFirstFrame(t *testing.T) {
	m := newFakeMessenger()
	n := newShortNotifier(m)

	s, err := n.Start(context.Background(), "chat@s.whatsapp.net", "Working")
	require.NoError(t, err)
	defer s.Stop()

	require.Len(t, m.sent, 1)
	assert.True(t, strings.HasPrefix(m.sent[0], "*Working*"))
	assert.Contains(t, m.sent[0], "10%")
	assert.Equal(t, "anchor-1", s.Anchor().MessageID)
}

func TestStartPropagatesSendFailure(t *testing.T) {
	m := newFakeMessenger()
	m.sendErr = errors.New("transport down")
	n := newShortNotifier(m)

	_, err := n.Start(context.Background(), "chat@s.whatsapp.net", "Working")
	assert.Error(t, err)
}

func TestFramesAdvanceAndWrap(t *testing.T) {
	m := newFakeMessenger()
	n := newShortNotifier(m)

	s, err := n.Start(context.Background(), "chat@s.whatsapp.net", "Working")
	require.NoError(t, err)

	// Wait for more edits than there are frames so the sequence wraps.
	deadline := time.After(2 * time.Second)
	for m.editCount() < len(frames)+2 {
		select {
		case <-m.editCh:
		case <-deadline:
			t.Fatal("timed out waiting for progress edits")
		}
	}
	s.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Contains(t, m.edits[0], "20%")
	// Frame len(frames)-1 wraps back to the first stage.
	assert.Contains(t, m.edits[len(frames)-1], "10%")
}

func TestStopPreventsFurtherEdits(t *testing.T) {
	m := newFakeMessenger()
	n := newShortNotifier(m)

	s, err := n.Start(context.Background(), "chat@s.whatsapp.net", "Working")
	require.NoError(t, err)

	s.Stop()
	count := m.editCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, m.editCount(), "no edit may happen after Stop returns")
}

func TestStopIsIdempotent(t *testing.T) {
	m := newFakeMessenger()
	n := newShortNotifier(m)

	s, err := n.Start(context.Background(), "chat@s.whatsapp.net", "Working")
	require.NoError(t, err)

	s.Stop()
	assert.NotPanics(t, func() {
		s.Stop()
		s.Stop()
	})
}

func TestEditFailureSelfCancels(t *testing.T) {
	m := newFakeMessenger()
	m.editErr = errors.New("message deleted")
	n := newShortNotifier(m)

	s, err := n.Start(context.Background(), "chat@s.whatsapp.net", "Working")
	require.NoError(t, err)

	select {
	case <-s.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not self-cancel after edit failure")
	}
	s.Stop()
}
