package service

import (
	"runtime"
	"sync"
	"time"
)

// Snapshot is one point-in-time view of engine health for /status, /info
// and the HTTP status endpoint.
type Snapshot struct {
	StartedAt        time.Time `json:"startedAt"`
	Uptime           string    `json:"uptime"`
	MessagesHandled  int64     `json:"messagesHandled"`
	CommandsHandled  int64     `json:"commandsHandled"`
	AIRequests       int64     `json:"aiRequests"`
	AIFailures       int64     `json:"aiFailures"`
	MediaDownloads   int64     `json:"mediaDownloads"`
	SpamDetections   int64     `json:"spamDetections"`
	RateLimitRejects int64     `json:"rateLimitRejects"`
	Goroutines       int       `json:"goroutines"`
	MemoryAllocMB    uint64    `json:"memoryAllocMb"`
}

// StatusSink receives engine events as they happen.
type StatusSink interface {
	MessageHandled()
	CommandHandled()
	AIRequest(success bool)
	MediaDownloaded()
	SpamDetected()
	RateLimitRejected()
}

// StatusService is the in-memory StatusSink implementation behind the
// /status command and HTTP status endpoint.
type StatusService struct {
	mu sync.Mutex

	startedAt        time.Time
	messagesHandled  int64
	commandsHandled  int64
	aiRequests       int64
	aiFailures       int64
	mediaDownloads   int64
	spamDetections   int64
	rateLimitRejects int64
}

func NewStatusService() *StatusService {
	return &StatusService{startedAt: time.Now()}
}

func (s *StatusService) MessageHandled() {
	s.mu.Lock()
	s.messagesHandled++
	s.mu.Unlock()
}

func (s *StatusService) CommandHandled() {
	s.mu.Lock()
	s.commandsHandled++
	s.mu.Unlock()
}

func (s *StatusService) AIRequest(success bool) {
	s.mu.Lock()
	s.aiRequests++
	if !success {
		s.aiFailures++
	}
	s.mu.Unlock()
}

func (s *StatusService) MediaDownloaded() {
	s.mu.Lock()
	s.mediaDownloads++
	s.mu.Unlock()
}

func (s *StatusService) SpamDetected() {
	s.mu.Lock()
	s.spamDetections++
	s.mu.Unlock()
}

func (s *StatusService) RateLimitRejected() {
	s.mu.Lock()
	s.rateLimitRejects++
	s.mu.Unlock()
}

// Current returns a consistent snapshot including process-level stats.
func (s *StatusService) Current() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		StartedAt:        s.startedAt,
		Uptime:           time.Since(s.startedAt).Round(time.Second).String(),
		MessagesHandled:  s.messagesHandled,
		CommandsHandled:  s.commandsHandled,
		AIRequests:       s.aiRequests,
		AIFailures:       s.aiFailures,
		MediaDownloads:   s.mediaDownloads,
		SpamDetections:   s.spamDetections,
		RateLimitRejects: s.rateLimitRejects,
	}
	s.mu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	snap.Goroutines = runtime.NumGoroutine()
	snap.MemoryAllocMB = mem.Alloc / 1024 / 1024
	return snap
}
