package ratelimit

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/void-rizqiagung/bot-mariioV2/internal/constants"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// Class is a distinct request category with its own ceiling.
type Class string

const (
	ClassMessages Class = "messages"
	ClassCommands Class = "commands"
	ClassMedia    Class = "media"
	ClassAI       Class = "ai"
)

type counterKey struct {
	class  Class
	userID string
}

type counter struct {
	count  int
	expiry time.Time
}

type spamBuffer struct {
	bodies []string
	expiry time.Time
}

// Limiter maintains fixed-window per-user counters, a short rolling buffer
// for verbatim-repeat spam detection and an explicit temporary block list.
// All state expires passively; nothing is deleted except on manual reset.
//
// Any internal inconsistency fails open: a request is admitted rather than
// letting the limiter become a denial-of-service vector.
type Limiter struct {
	mu       sync.Mutex
	cfg      models.RateLimitConfig
	window   time.Duration
	spamTTL  time.Duration
	counters map[counterKey]*counter
	spam     map[string]*spamBuffer
	blocked  map[string]time.Time
	logger   *logrus.Logger
	now      func() time.Time
}

func NewLimiter(cfg models.RateLimitConfig, logger *logrus.Logger) *Limiter {
	return &Limiter{
		cfg:      cfg,
		window:   time.Duration(cfg.WindowSec) * time.Second,
		spamTTL:  time.Duration(cfg.SpamWindowSec) * time.Second,
		counters: make(map[counterKey]*counter),
		spam:     make(map[string]*spamBuffer),
		blocked:  make(map[string]time.Time),
		logger:   logger,
		now:      time.Now,
	}
}

func (l *Limiter) ceiling(class Class) (int, bool) {
	switch class {
	case ClassMessages:
		return l.cfg.Messages, true
	case ClassCommands:
		return l.cfg.Commands, true
	case ClassMedia:
		return l.cfg.Media, true
	case ClassAI:
		return l.cfg.AI, true
	}
	return 0, false
}

// Check increments the (user, class) counter when still under the ceiling
// and reports whether the request is admitted. The window auto-expires;
// there is no explicit decrement.
func (l *Limiter) Check(userID string, class Class) bool {
	limit, ok := l.ceiling(class)
	if !ok {
		// Unknown class is an internal bug; fail open.
		l.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"class":   string(class),
		}).Error("Rate limit check for unknown class, admitting")
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := counterKey{class: class, userID: userID}
	c, exists := l.counters[key]
	if !exists || now.After(c.expiry) {
		c = &counter{expiry: now.Add(l.window)}
		l.counters[key] = c
	}

	if c.count >= limit {
		l.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"class":   string(class),
			"count":   c.count,
			"limit":   limit,
		}).Warn("Rate limit exceeded")
		return false
	}

	c.count++
	return true
}

// Remaining reports how many requests are left in the current window.
func (l *Limiter) Remaining(userID string, class Class) int {
	limit, ok := l.ceiling(class)
	if !ok {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c, exists := l.counters[counterKey{class: class, userID: userID}]
	if !exists || l.now().After(c.expiry) {
		return limit
	}
	if c.count >= limit {
		return 0
	}
	return limit - c.count
}

// Reset clears every counter for a user across all classes.
func (l *Limiter) Reset(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, class := range []Class{ClassMessages, ClassCommands, ClassMedia, ClassAI} {
		delete(l.counters, counterKey{class: class, userID: userID})
	}
	l.logger.WithField("user_id", userID).Info("User rate limits reset")
}

// IsSpamming records the message body in the user's rolling buffer and
// reports whether it has now been seen the threshold number of times
// verbatim within the spam window.
func (l *Limiter) IsSpamming(userID, body string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	buf, exists := l.spam[userID]
	if !exists || now.After(buf.expiry) {
		buf = &spamBuffer{}
		l.spam[userID] = buf
	}

	identical := 0
	for _, prev := range buf.bodies {
		if prev == body {
			identical++
		}
	}

	buf.bodies = append(buf.bodies, body)
	if len(buf.bodies) > constants.DefaultSpamBufferSize {
		buf.bodies = buf.bodies[1:]
	}
	buf.expiry = now.Add(l.spamTTL)

	// The current message counts toward the threshold.
	if identical+1 >= l.cfg.SpamThreshold {
		l.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"count":   identical + 1,
		}).Warn("Spam detected, identical messages")
		return true
	}
	return false
}

// Block temporarily blocks a user, independent of the counters.
func (l *Limiter) Block(userID string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = constants.DefaultBlockDurationSec * time.Second
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.blocked[userID] = l.now().Add(ttl)
	l.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"duration": ttl.String(),
	}).Warn("User temporarily blocked")
}

func (l *Limiter) IsBlocked(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, exists := l.blocked[userID]
	if !exists {
		return false
	}
	if l.now().After(expiry) {
		delete(l.blocked, userID)
		return false
	}
	return true
}

func (l *Limiter) Unblock(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.blocked, userID)
	l.logger.WithField("user_id", userID).Info("User unblocked")
}

// Stats summarizes live counters for the status surface, pruning expired
// entries along the way.
type Stats struct {
	ActiveUsers   int            `json:"activeUsers"`
	TotalCounters int            `json:"totalCounters"`
	ByClass       map[string]int `json:"byClass"`
	BlockedUsers  int            `json:"blockedUsers"`
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	users := make(map[string]struct{})
	byClass := make(map[string]int)
	for key, c := range l.counters {
		if now.After(c.expiry) {
			delete(l.counters, key)
			continue
		}
		users[key.userID] = struct{}{}
		byClass[string(key.class)]++
	}

	blocked := 0
	for userID, expiry := range l.blocked {
		if now.After(expiry) {
			delete(l.blocked, userID)
			continue
		}
		blocked++
	}

	total := 0
	for _, n := range byClass {
		total += n
	}
	return Stats{
		ActiveUsers:   len(users),
		TotalCounters: total,
		ByClass:       byClass,
		BlockedUsers:  blocked,
	}
}
