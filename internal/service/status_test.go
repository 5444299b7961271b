package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusServiceCounters(t *testing.T) {
	s := NewStatusService()

	s.MessageHandled()
	s.MessageHandled()
	s.CommandHandled()
	s.AIRequest(true)
	s.AIRequest(false)
	s.MediaDownloaded()
	s.SpamDetected()
	s.RateLimitRejected()

	snap := s.Current()
	assert.Equal(t, int64(2), snap.MessagesHandled)
	assert.Equal(t, int64(1), snap.CommandsHandled)
	assert.Equal(t, int64(2), snap.AIRequests)
	assert.Equal(t, int64(1), snap.AIFailures)
	assert.Equal(t, int64(1), snap.MediaDownloads)
	assert.Equal(t, int64(1), snap.SpamDetections)
	assert.Equal(t, int64(1), snap.RateLimitRejects)
	assert.NotZero(t, snap.Goroutines)
	assert.False(t, snap.StartedAt.IsZero())
}

func TestStatusServiceConcurrentUpdates(t *testing.T) {
	s := NewStatusService()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.MessageHandled()
			s.AIRequest(true)
		}()
	}
	wg.Wait()

	snap := s.Current()
	assert.Equal(t, int64(50), snap.MessagesHandled)
	assert.Equal(t, int64(50), snap.AIRequests)
	assert.Zero(t, snap.AIFailures)
}
