package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/void-rizqiagung/bot-mariioV2/internal/constants"
	apperrors "github.com/void-rizqiagung/bot-mariioV2/internal/errors"
)

// Prober is the URL reachability collaborator. One call is one probe; the
// escalation strategy lives in the orchestrator's preflight.
type Prober interface {
	Probe(ctx context.Context, rawURL, method string, timeout time.Duration, userAgent string) (int, error)
}

// probeStrategy is one step of the bounded escalation sequence.
type probeStrategy struct {
	method  string
	timeout time.Duration
}

var probeStrategies = []probeStrategy{
	{method: http.MethodHead, timeout: constants.ProbeHeadTimeout},
	{method: http.MethodGet, timeout: constants.ProbeGetTimeout},
	{method: http.MethodGet, timeout: constants.ProbeExtendedGetTimeout},
}

// Rotating browser identifiers; some hosts reject obvious bot agents.
var probeUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
}

// HTTPProber probes URLs over plain HTTP.
type HTTPProber struct {
	client *http.Client
}

func NewHTTPProber() *HTTPProber {
	return &HTTPProber{client: &http.Client{}}
}

func (p *HTTPProber) Probe(ctx context.Context, rawURL, method string, timeout time.Duration, userAgent string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build probe request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeURLProbe, "probe request failed")
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// isPermanentNetworkError reports network-level failures that no further
// probing strategy can recover from.
func isPermanentNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

var blockedProbeHosts = map[string]struct{}{
	"localhost":   {},
	"127.0.0.1":   {},
	"0.0.0.0":     {},
	"::1":         {},
	"example.com": {},
	"example.org": {},
	"example.net": {},
	"test.com":    {},
	"invalid.com": {},
}

// normalizeURL cleans a candidate URL, fixing the common scheme omissions,
// and rejects placeholder or loopback hosts. Returns "" when the candidate
// is not probeable.
func normalizeURL(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, cleaned)

	if !strings.HasPrefix(cleaned, "http://") && !strings.HasPrefix(cleaned, "https://") {
		if strings.Contains(cleaned, ".") {
			cleaned = "https://" + cleaned
		} else {
			return ""
		}
	}

	u, err := url.Parse(cleaned)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	if _, blocked := blockedProbeHosts[host]; blocked {
		return ""
	}
	if strings.Contains(host, "..") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return ""
	}
	return u.String()
}

// checkReachable walks the probing strategies until a conclusive answer.
// 2xx/3xx and 401/403 count as reachable, 404/410 as unreachable, and
// network-level DNS or connection failures end probing immediately.
func (o *Orchestrator) checkReachable(ctx context.Context, rawURL string) bool {
	target := normalizeURL(rawURL)
	if target == "" {
		return false
	}

	for i, strategy := range probeStrategies {
		userAgent := probeUserAgents[i%len(probeUserAgents)]
		status, err := o.prober.Probe(ctx, target, strategy.method, strategy.timeout, userAgent)
		if err != nil {
			if isPermanentNetworkError(err) {
				o.logger.WithFields(logrus.Fields{
					"url":     target,
					"attempt": i + 1,
				}).WithError(err).Warn("URL probe hit permanent network failure")
				return false
			}
			o.logger.WithFields(logrus.Fields{
				"url":     target,
				"attempt": i + 1,
			}).WithError(err).Debug("URL probe attempt failed")
			continue
		}

		switch {
		case status >= 200 && status < 400:
			return true
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			// Gated but the resource exists; still usable as grounding.
			return true
		case status == http.StatusNotFound || status == http.StatusGone:
			return false
		default:
			// Other client/server errors: escalate to the next strategy.
		}
	}
	return false
}
