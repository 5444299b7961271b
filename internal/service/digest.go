package service

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/sirupsen/logrus"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// Messenger is the outbound text capability the digest needs.
type Messenger interface {
	SendText(ctx context.Context, chatID, text string) (*models.MessageHandle, error)
}

// StatsSource supplies the last-day activity counters.
type StatsSource interface {
	GetDailyStats(ctx context.Context) (*DailyStatsView, error)
}

// DailyStatsView mirrors the repository's daily counters without importing
// the database package here.
type DailyStatsView struct {
	Messages int64
	Commands int64
}

// DigestService sends a scheduled activity summary to the admin chat. The
// cron expression is evaluated on a minute-granularity ticker in the
// configured timezone.
type DigestService struct {
	cfg      models.DigestConfig
	adminJID string
	sender   Messenger
	stats    StatsSource
	status   *StatusService
	logger   *logrus.Logger
	location *time.Location
	cron     *gronx.Gronx

	now func() time.Time
}

func NewDigestService(cfg models.DigestConfig, adminJID string, sender Messenger, stats StatsSource, status *StatusService, logger *logrus.Logger) (*DigestService, error) {
	cron := gronx.New()
	if !cron.IsValid(cfg.Cron) {
		return nil, fmt.Errorf("invalid digest cron expression: %q", cfg.Cron)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid digest timezone %q: %w", cfg.Timezone, err)
	}

	return &DigestService{
		cfg:      cfg,
		adminJID: adminJID,
		sender:   sender,
		stats:    stats,
		status:   status,
		logger:   logger,
		location: location,
		cron:     cron,
		now:      time.Now,
	}, nil
}

// Run blocks until the context is cancelled, firing the digest whenever the
// cron expression matches the current minute.
func (s *DigestService) Run(ctx context.Context) {
	s.logger.WithFields(logrus.Fields{
		"cron":     s.cfg.Cron,
		"timezone": s.cfg.Timezone,
	}).Info("Digest scheduler started")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Digest scheduler stopped")
			return
		case <-ticker.C:
			local := s.now().In(s.location)
			due, err := s.cron.IsDue(s.cfg.Cron, local)
			if err != nil {
				s.logger.WithError(err).Warn("Failed to evaluate digest schedule")
				continue
			}
			if !due {
				continue
			}
			if err := s.sendDigest(ctx); err != nil {
				s.logger.WithError(err).Error("Failed to send daily digest")
			}
		}
	}
}

func (s *DigestService) sendDigest(ctx context.Context) error {
	daily, err := s.stats.GetDailyStats(ctx)
	if err != nil {
		// Degrade to engine counters rather than skipping the digest.
		s.logger.WithError(err).Warn("Daily stats unavailable, using engine counters")
		daily = &DailyStatsView{}
	}

	_, err = s.sender.SendText(ctx, s.adminJID, s.renderDigest(daily))
	if err != nil {
		return fmt.Errorf("failed to send digest message: %w", err)
	}
	s.logger.Info("Daily digest sent")
	return nil
}

func (s *DigestService) renderDigest(daily *DailyStatsView) string {
	snap := s.status.Current()
	local := s.now().In(s.location)

	return fmt.Sprintf(
		"📊 *LAPORAN HARIAN BOT*\n%s\n\n"+
			"*Aktivitas 24 jam terakhir:*\n"+
			"• Pesan tercatat: %d\n"+
			"• Perintah dijalankan: %d\n\n"+
			"*Sejak dinyalakan (%s):*\n"+
			"• Permintaan AI: %d (gagal %d)\n"+
			"• Unduhan media: %d\n"+
			"• Spam terdeteksi: %d\n"+
			"• Ditolak rate limit: %d",
		local.Format("02/01/2006 15:04"),
		daily.Messages,
		daily.Commands,
		snap.Uptime,
		snap.AIRequests, snap.AIFailures,
		snap.MediaDownloads,
		snap.SpamDetections,
		snap.RateLimitRejects,
	)
}
