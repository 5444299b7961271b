package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/void-rizqiagung/bot-mariioV2/internal/errors"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

type fakeProvider struct {
	requests  []ProviderRequest
	responses []func(ProviderRequest) (*ProviderResponse, error)
}

func (p *fakeProvider) Generate(ctx context.Context, req ProviderRequest) (*ProviderResponse, error) {
	p.requests = append(p.requests, req)
	idx := len(p.requests) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return p.responses[idx](req)
}

func alwaysText(text string) func(ProviderRequest) (*ProviderResponse, error) {
	return func(ProviderRequest) (*ProviderResponse, error) {
		return &ProviderResponse{Text: text}, nil
	}
}

func alwaysErr(err error) func(ProviderRequest) (*ProviderResponse, error) {
	return func(ProviderRequest) (*ProviderResponse, error) {
		return nil, err
	}
}

type fakeProber struct {
	calls    int
	statuses map[string]int
	err      error
}

func (p *fakeProber) Probe(ctx context.Context, rawURL, method string, timeout time.Duration, userAgent string) (int, error) {
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	if status, ok := p.statuses[rawURL]; ok {
		return status, nil
	}
	return 200, nil
}

func newTestOrchestrator(provider Provider, prober Prober) (*Orchestrator, *[]time.Duration) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	o := NewOrchestrator(provider, prober, models.AIConfig{MaxRetries: 3, TimeoutMs: 1000}, logger)
	var delays []time.Duration
	o.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	o.newTrackingID = func() string { return "TRACK123" }
	return o, &delays
}

func TestRespondSuccessFirstAttempt(t *testing.T) {
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){alwaysText("jawaban")}}
	prober := &fakeProber{}
	o, _ := newTestOrchestrator(provider, prober)

	result, err := o.Respond(context.Background(), models.GenerationRequest{Prompt: "halo"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempt)
	assert.Contains(t, result.Text, "jawaban")
	assert.False(t, result.Fallback)
	assert.Equal(t, models.GroundingNone, result.Mode)
}

func TestRespondNoGroundingNeverProbes(t *testing.T) {
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){alwaysText("ok")}}
	prober := &fakeProber{}
	o, _ := newTestOrchestrator(provider, prober)

	_, err := o.Respond(context.Background(), models.GenerationRequest{Prompt: "tanpa tautan", UseGrounding: false})
	require.NoError(t, err)
	assert.Zero(t, prober.calls, "prober must not be invoked without URLs")
}

func TestRespondGroundingWithoutURLsUsesSearch(t *testing.T) {
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){alwaysText("ok")}}
	o, _ := newTestOrchestrator(provider, &fakeProber{})

	result, err := o.Respond(context.Background(), models.GenerationRequest{Prompt: "riset topik", UseGrounding: true})
	require.NoError(t, err)
	assert.Equal(t, models.GroundingSearch, result.Mode)
	assert.Zero(t, len(provider.requests[0].ReferenceURLs))
}

func TestRespondReachableURLGroundsByReference(t *testing.T) {
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){alwaysText("ok")}}
	prober := &fakeProber{statuses: map[string]int{"https://example.id/artikel": 200}}
	o, _ := newTestOrchestrator(provider, prober)

	result, err := o.Respond(context.Background(), models.GenerationRequest{Prompt: "ringkas https://example.id/artikel"})
	require.NoError(t, err)
	assert.Equal(t, models.GroundingReference, result.Mode)
	require.Len(t, provider.requests, 1)
	assert.Equal(t, []string{"https://example.id/artikel"}, provider.requests[0].ReferenceURLs)
	assert.Contains(t, provider.requests[0].Prompt, "diverifikasi")
}

func TestRespondUnreachableURLsSwitchToSearch(t *testing.T) {
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){alwaysText("ok")}}
	prober := &fakeProber{statuses: map[string]int{"https://example.id/hilang": 404}}
	o, _ := newTestOrchestrator(provider, prober)

	result, err := o.Respond(context.Background(), models.GenerationRequest{Prompt: "ringkas https://example.id/hilang"})
	require.NoError(t, err)
	assert.Equal(t, models.GroundingSearch, result.Mode)
	assert.Empty(t, provider.requests[0].ReferenceURLs)
	assert.Contains(t, provider.requests[0].Prompt, "INSTRUKSI PENCARIAN")
}

func TestRespondRetriesWithBackoffAndFallback(t *testing.T) {
	boom := errors.New("boom")
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){alwaysErr(boom)}}
	o, delays := newTestOrchestrator(provider, &fakeProber{})

	result, err := o.Respond(context.Background(), models.GenerationRequest{
		Prompt:       "halo",
		MaxRetries:   3,
		FallbackMode: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.Text, "TRACK123")

	assert.Len(t, provider.requests, 3, "exactly MaxRetries attempts")
	// Backoff only between attempts: N-1 delays, strictly increasing.
	require.Len(t, *delays, 2)
	assert.Equal(t, 1*time.Second, (*delays)[0])
	assert.Equal(t, 2*time.Second, (*delays)[1])
}

func TestRespondBackoffIsCapped(t *testing.T) {
	boom := errors.New("boom")
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){alwaysErr(boom)}}
	o, delays := newTestOrchestrator(provider, &fakeProber{})

	_, err := o.Respond(context.Background(), models.GenerationRequest{
		Prompt:       "halo",
		MaxRetries:   5,
		FallbackMode: true,
	})
	require.NoError(t, err)
	require.Len(t, *delays, 4)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}, *delays)
}

func TestRespondWithoutFallbackReturnsTypedFailure(t *testing.T) {
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){
		alwaysErr(&ProviderError{StatusCode: 429, Err: errors.New("quota")}),
	}}
	o, _ := newTestOrchestrator(provider, &fakeProber{})

	_, err := o.Respond(context.Background(), models.GenerationRequest{Prompt: "halo", MaxRetries: 2})
	var failure *models.GenerationFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, models.FailureRateLimited, failure.Category)
	assert.Equal(t, 2, failure.Attempts)
	assert.Equal(t, "TRACK123", failure.TrackingID)
}

func TestRespondEmptyResponseIsRetried(t *testing.T) {
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){
		alwaysText("   \n\t "),
		alwaysText("isi sebenarnya"),
	}}
	o, _ := newTestOrchestrator(provider, &fakeProber{})

	result, err := o.Respond(context.Background(), models.GenerationRequest{Prompt: "halo"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempt)
	assert.Len(t, provider.requests, 2)
}

func TestRespondTokenBudgetDegrades(t *testing.T) {
	boom := errors.New("boom")
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){alwaysErr(boom)}}
	o, _ := newTestOrchestrator(provider, &fakeProber{})

	_, _ = o.Respond(context.Background(), models.GenerationRequest{
		Prompt:       "halo",
		MaxRetries:   3,
		FallbackMode: true,
	})

	require.Len(t, provider.requests, 3)
	assert.Equal(t, int32(8192), provider.requests[0].MaxOutputTokens)
	assert.Equal(t, int32(7168), provider.requests[1].MaxOutputTokens)
	assert.Equal(t, int32(6144), provider.requests[2].MaxOutputTokens)
}

func TestTokenBudgetFloor(t *testing.T) {
	assert.Equal(t, int32(2048), tokenBudget(100))
}

func TestRespondMalformedRequestTriesDegradedCall(t *testing.T) {
	badReq := &ProviderError{StatusCode: 400, Err: errors.New("bad request")}
	provider := &fakeProvider{responses: []func(ProviderRequest) (*ProviderResponse, error){
		alwaysErr(badReq),
		alwaysErr(badReq),
		alwaysErr(badReq),
		alwaysText("jawaban darurat"),
	}}
	o, _ := newTestOrchestrator(provider, &fakeProber{})

	result, err := o.Respond(context.Background(), models.GenerationRequest{
		Prompt:       "halo",
		MaxRetries:   3,
		FallbackMode: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.Text, "jawaban darurat")
	assert.Equal(t, 4, result.Attempt)

	// The degraded call drops tools and shrinks the budget to the floor.
	degraded := provider.requests[3]
	assert.Equal(t, models.GroundingNone, degraded.Mode)
	assert.Equal(t, int32(2048), degraded.MaxOutputTokens)
	assert.Equal(t, "halo", degraded.Prompt)
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want models.FailureCategory
	}{
		{"bad request", &ProviderError{StatusCode: 400, Err: errors.New("x")}, models.FailureMalformedRequest},
		{"not found", &ProviderError{StatusCode: 404, Err: errors.New("x")}, models.FailureNotFound},
		{"quota", &ProviderError{StatusCode: 429, Err: errors.New("x")}, models.FailureRateLimited},
		{"server error", &ProviderError{StatusCode: 503, Err: errors.New("x")}, models.FailureNetwork},
		{"timeout", context.DeadlineExceeded, models.FailureNetwork},
		{"wrapped timeout", apperrors.Wrap(context.DeadlineExceeded, apperrors.ErrCodeAIProvider, "provider call failed"), models.FailureNetwork},
		{"unknown", errors.New("weird"), models.FailureGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyFailure(tc.err))
		})
	}
}

func TestExtractSearchKeywords(t *testing.T) {
	got := extractSearchKeywords("cari berita gempa bumi terbaru di https://contoh.id/x")
	assert.Equal(t, "berita gempa bumi", got)

	assert.Equal(t, "informasi umum", extractSearchKeywords("a b c"))
}
