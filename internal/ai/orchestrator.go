package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/void-rizqiagung/bot-mariioV2/internal/constants"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// Provider is the generative AI collaborator.
type Provider interface {
	Generate(ctx context.Context, req ProviderRequest) (*ProviderResponse, error)
}

// ProviderRequest is one raw generation call.
type ProviderRequest struct {
	Prompt          string
	Mode            models.GroundingMode
	ReferenceURLs   []string
	MaxOutputTokens int32
}

type ProviderResponse struct {
	Text    string
	Sources []models.Source
}

// ProviderError carries the backend's status code so failures are classified
// once, from structure, never re-derived from error text.
type ProviderError struct {
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %v", e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

var errEmptyResponse = errors.New("empty response received from provider")

var urlPattern = regexp.MustCompile(`https?://(?:[-\w.])+(?:\.[a-zA-Z]{2,})+(?::\d+)?(?:/[^\s]*)?`)

// Orchestrator drives generation requests through URL preflight, bounded
// retries with token-budget degradation, and categorized fallback handling.
type Orchestrator struct {
	provider Provider
	prober   Prober
	cfg      models.AIConfig
	logger   *logrus.Logger
	tracer   trace.Tracer

	// Indirections for deterministic tests.
	sleep         func(ctx context.Context, d time.Duration) error
	newTrackingID func() string
	now           func() time.Time
}

func NewOrchestrator(provider Provider, prober Prober, cfg models.AIConfig, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		prober:   prober,
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("ai-orchestrator"),
		sleep:    sleepCtx,
		newTrackingID: func() string {
			return strings.ToUpper(uuid.NewString()[:8])
		},
		now: time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// preflight resolves the grounding mode and rewrites the prompt accordingly.
func (o *Orchestrator) preflight(ctx context.Context, req models.GenerationRequest) (string, models.GroundingMode, []string) {
	urls := urlPattern.FindAllString(req.Prompt, -1)
	if len(urls) == 0 {
		if req.UseGrounding {
			return req.Prompt, models.GroundingSearch, nil
		}
		return req.Prompt, models.GroundingNone, nil
	}

	var reachable, unreachable []string
	for _, u := range urls {
		if o.checkReachable(ctx, u) {
			reachable = append(reachable, u)
		} else {
			unreachable = append(unreachable, u)
		}
	}

	if len(reachable) > 0 {
		var sb strings.Builder
		sb.WriteString(req.Prompt)
		sb.WriteString("\n\nSumber URL yang berhasil diverifikasi:\n")
		for i, u := range reachable {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, u)
		}
		if len(unreachable) > 0 {
			fmt.Fprintf(&sb, "\nCatatan: %d URL lainnya tidak dapat diakses saat ini.\n", len(unreachable))
		}
		sb.WriteString("\nBerikan jawaban berdasarkan informasi dari sumber URL yang valid di atas.")

		o.logger.WithFields(logrus.Fields{
			"reachable":   len(reachable),
			"unreachable": len(unreachable),
		}).Info("Preflight: grounding by reference")
		return sb.String(), models.GroundingReference, reachable
	}

	// Every URL failed; fall back to open web research on the topic.
	keywords := extractSearchKeywords(req.Prompt)
	var sb strings.Builder
	sb.WriteString(req.Prompt)
	fmt.Fprintf(&sb, "\n\nCATATAN PENTING: %d URL yang diberikan tidak dapat diakses.\n", len(unreachable))
	sb.WriteString("\nINSTRUKSI PENCARIAN:\n")
	fmt.Fprintf(&sb, "- Lakukan pencarian web mendalam tentang: %q\n", keywords)
	sb.WriteString("- Cari sumber-sumber terpercaya dan aktual\n")
	sb.WriteString("- Sertakan hanya link sumber yang masih aktif dan dapat dibuka\n")

	o.logger.WithField("keywords", keywords).Info("Preflight: all URLs unreachable, grounding by search")
	return sb.String(), models.GroundingSearch, nil
}

var keywordNoise = regexp.MustCompile(`\b(terpercaya|resmi|valid|aktual|update|terbaru|search|cari)\b`)
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// extractSearchKeywords reduces a prompt to a short topic summary for the
// search-grounded rewrite.
func extractSearchKeywords(prompt string) string {
	s := strings.ToLower(prompt)
	s = urlPattern.ReplaceAllString(s, " ")
	s = keywordNoise.ReplaceAllString(s, " ")
	s = nonWord.ReplaceAllString(s, " ")

	var picked []string
	for _, w := range strings.Fields(s) {
		if len([]rune(w)) > 2 {
			picked = append(picked, w)
		}
		if len(picked) == 4 {
			break
		}
	}
	if len(picked) == 0 {
		return "informasi umum"
	}
	return strings.Join(picked, " ")
}

// tokenBudget shrinks the requested output monotonically per retry so later
// attempts are more likely to finish within time and quota limits.
func tokenBudget(attempt int) int32 {
	budget := constants.DefaultMaxOutputTokens - (attempt-1)*constants.TokenBudgetStepPerAttempt
	if budget < constants.TokenBudgetFloor {
		budget = constants.TokenBudgetFloor
	}
	return int32(budget)
}

// backoffDelay is exponential with a hard cap, applied only between attempts.
func backoffDelay(attempt int) time.Duration {
	base := time.Duration(constants.DefaultBackoffBaseMs) * time.Millisecond
	delay := base << (attempt - 1)
	limit := time.Duration(constants.DefaultBackoffCapMs) * time.Millisecond
	if delay > limit {
		delay = limit
	}
	return delay
}

// classifyFailure maps the terminal error into the closed failure category
// set. Classification happens exactly once, here.
func classifyFailure(err error) models.FailureCategory {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch {
		case provErr.StatusCode == 400:
			return models.FailureMalformedRequest
		case provErr.StatusCode == 404:
			return models.FailureNotFound
		case provErr.StatusCode == 429:
			return models.FailureRateLimited
		case provErr.StatusCode >= 500:
			return models.FailureNetwork
		}
		return models.FailureGeneric
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.FailureNetwork
	}
	return models.FailureGeneric
}

// Respond runs the full state machine for one GenerationRequest and returns
// exactly one formatted GenerationResult, or a typed GenerationFailure when
// fallback responses are disabled.
func (o *Orchestrator) Respond(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	if req.MaxRetries <= 0 {
		req.MaxRetries = o.cfg.MaxRetries
	}
	if req.Timeout <= 0 {
		req.Timeout = time.Duration(o.cfg.TimeoutMs) * time.Millisecond
	}

	ctx, span := o.tracer.Start(ctx, "ai.respond")
	defer span.End()

	prompt, mode, refs := o.preflight(ctx, req)
	span.SetAttributes(attribute.String("grounding_mode", string(mode)))

	start := o.now()
	var lastErr error

	for attempt := 1; attempt <= req.MaxRetries; attempt++ {
		resp, err := o.attempt(ctx, prompt, mode, refs, attempt, req.Timeout)
		if err == nil {
			result := &models.GenerationResult{
				Text:    resp.Text,
				Elapsed: o.now().Sub(start),
				Sources: resp.Sources,
				Attempt: attempt,
				Mode:    mode,
			}
			result.Text = FormatResult(result)
			o.logger.WithFields(logrus.Fields{
				"attempt":     attempt,
				"duration_ms": result.Elapsed.Milliseconds(),
				"mode":        string(mode),
				"sources":     len(result.Sources),
			}).Info("AI response generated")
			return result, nil
		}

		lastErr = err
		o.logger.WithFields(logrus.Fields{
			"attempt":     attempt,
			"max_retries": req.MaxRetries,
		}).WithError(err).Warn("AI generation attempt failed")

		if attempt < req.MaxRetries {
			if serr := o.sleep(ctx, backoffDelay(attempt)); serr != nil {
				lastErr = serr
				break
			}
		}
	}

	category := classifyFailure(lastErr)
	trackingID := o.newTrackingID()
	o.logger.WithFields(logrus.Fields{
		"error_code":  string(category),
		"tracking_id": trackingID,
		"attempts":    req.MaxRetries,
	}).WithError(lastErr).Error("AI generation failed after all retries")

	// A malformed request often means the grounding tools choked on the
	// rewritten prompt; one degraded call without tools may still succeed.
	if category == models.FailureMalformedRequest {
		if result := o.degradedAttempt(ctx, req, start); result != nil {
			return result, nil
		}
	}

	if req.FallbackMode {
		return &models.GenerationResult{
			Text:     fallbackText(category, trackingID, o.now()),
			Elapsed:  o.now().Sub(start),
			Attempt:  req.MaxRetries,
			Mode:     mode,
			Fallback: true,
		}, nil
	}

	return nil, &models.GenerationFailure{
		Category:   category,
		TrackingID: trackingID,
		Attempts:   req.MaxRetries,
		Err:        lastErr,
	}
}

func (o *Orchestrator) attempt(ctx context.Context, prompt string, mode models.GroundingMode, refs []string, attempt int, timeout time.Duration) (*ProviderResponse, error) {
	ctx, span := o.tracer.Start(ctx, "ai.attempt", trace.WithAttributes(attribute.Int("attempt", attempt)))
	defer span.End()

	// The timeout races the call; on expiry the attempt is abandoned, not
	// killed mid-flight by us.
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := o.provider.Generate(ctx, ProviderRequest{
		Prompt:          prompt,
		Mode:            mode,
		ReferenceURLs:   refs,
		MaxOutputTokens: tokenBudget(attempt),
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, errEmptyResponse
	}
	return resp, nil
}

// degradedAttempt strips the prompt back to its original text and retries
// once without any grounding tools.
func (o *Orchestrator) degradedAttempt(ctx context.Context, req models.GenerationRequest, start time.Time) *models.GenerationResult {
	o.logger.Info("Attempting degraded generation without grounding tools")

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	resp, err := o.provider.Generate(ctx, ProviderRequest{
		Prompt:          req.Prompt,
		Mode:            models.GroundingNone,
		MaxOutputTokens: constants.TokenBudgetFloor,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		o.logger.WithError(err).Warn("Degraded generation also failed")
		return nil
	}

	result := &models.GenerationResult{
		Text:     resp.Text,
		Elapsed:  o.now().Sub(start),
		Attempt:  req.MaxRetries + 1,
		Mode:     models.GroundingNone,
		Fallback: true,
	}
	result.Text = FormatResult(result)
	return result
}
