package models

import (
	"fmt"
	"time"
)

// GroundingMode records how a generation request was grounded.
type GroundingMode string

const (
	GroundingNone GroundingMode = "none"
	// GroundingReference appends validated URLs as context.
	GroundingReference GroundingMode = "reference"
	// GroundingSearch instructs the model to perform open web research.
	GroundingSearch GroundingMode = "search"
)

// GenerationRequest is transient; one per orchestrator invocation.
type GenerationRequest struct {
	Prompt       string
	UseGrounding bool
	MaxRetries   int
	Timeout      time.Duration
	FallbackMode bool
}

// Source is one grounding attribution returned by the provider.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// GenerationResult is the single successful outcome of a GenerationRequest.
type GenerationResult struct {
	Text     string
	Elapsed  time.Duration
	Sources  []Source
	Attempt  int
	Mode     GroundingMode
	Fallback bool
}

// FailureCategory is the closed set of terminal AI failure classes. It is
// produced once at the failure site and matched exhaustively afterwards;
// callers never re-derive it from error text.
type FailureCategory string

const (
	FailureNetwork          FailureCategory = "network"
	FailureMalformedRequest FailureCategory = "malformed-request"
	FailureNotFound         FailureCategory = "not-found"
	FailureRateLimited      FailureCategory = "rate-limited"
	FailureGeneric          FailureCategory = "generic"
)

// GenerationFailure is the typed terminal error of the orchestrator when
// fallback responses are disabled.
type GenerationFailure struct {
	Category   FailureCategory
	TrackingID string
	Attempts   int
	Err        error
}

func (f *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed after %d attempts (%s): %v", f.Attempts, f.Category, f.Err)
}

func (f *GenerationFailure) Unwrap() error {
	return f.Err
}
