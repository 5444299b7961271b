package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/void-rizqiagung/bot-mariioV2/internal/constants"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// Messenger is the slice of the transport the notifier needs: sending the
// anchor message and editing it in place.
type Messenger interface {
	SendText(ctx context.Context, chatID, text string) (*models.MessageHandle, error)
	EditText(ctx context.Context, handle models.MessageHandle, text string) error
}

// frames advance a ten-stage bar; the interval wraps back to the first
// stage when it outlives the sequence.
var frames = []string{
	"■□□□□□□□□□ ```10%```",
	"■■□□□□□□□□ ```20%```",
	"■■■□□□□□□□ ```30%```",
	"■■■■□□□□□□ ```40%```",
	"■■■■■□□□□□ ```50%```",
	"■■■■■■□□□□ ```60%```",
	"■■■■■■■□□□ ```70%```",
	"■■■■■■■■□□ ```80%```",
	"■■■■■■■■■□ ```99%```",
	"■■■■■■■■■■ ```100%```",
}

// Notifier drives periodically-edited status messages, decoupled from the
// work they decorate.
type Notifier struct {
	messenger Messenger
	logger    *logrus.Logger
	interval  time.Duration
}

func NewNotifier(messenger Messenger, logger *logrus.Logger) *Notifier {
	return &Notifier{
		messenger: messenger,
		logger:    logger,
		interval:  constants.ProgressFrameInterval,
	}
}

// Session owns exclusive write access to one anchor message until stopped.
// It must never outlive its invoking handler: callers stop it on every exit
// path before sending their final result.
type Session struct {
	handle    models.MessageHandle
	label     string
	messenger Messenger
	logger    *logrus.Logger
	interval  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Start sends the anchor message with the first stage glyph and begins
// advancing frames on the notifier's interval.
func (n *Notifier) Start(ctx context.Context, chatID, label string) (*Session, error) {
	handle, err := n.messenger.SendText(ctx, chatID, render(label, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to send progress anchor: %w", err)
	}

	s := &Session{
		handle:    *handle,
		label:     label,
		messenger: n.messenger,
		logger:    n.logger,
		interval:  n.interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go s.run(ctx)
	return s, nil
}

// Anchor identifies the message the session edits, so the caller can place
// its final result there after stopping.
func (s *Session) Anchor() models.MessageHandle {
	return s.handle
}

// Stop cancels the frame timer deterministically. It is idempotent and only
// returns once no further edit to the anchor message can happen.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
}

func (s *Session) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame = (frame + 1) % len(frames)
			if err := s.messenger.EditText(ctx, s.handle, render(s.label, frame)); err != nil {
				// The anchor may have been deleted; self-cancel rather
				// than retrying indefinitely.
				s.logger.WithFields(logrus.Fields{
					"chat_id":    s.handle.ChatID,
					"message_id": s.handle.MessageID,
				}).WithError(err).Warn("Progress edit failed, stopping animation")
				return
			}
		}
	}
}

func render(label string, frame int) string {
	return fmt.Sprintf("*%s*\n\n%s", label, frames[frame])
}
