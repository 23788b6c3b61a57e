package youtube

import (
	"fmt"
	"strings"
)

// CaptionsUnavailableError reports that a video has no usable captions: either
// the pre-check found an explicit negative signal, or every strategy failed
// with a "no tracks / disabled" signature. It is user-facing and not worth
// retrying.
type CaptionsUnavailableError struct {
	VideoID string
}

func (e *CaptionsUnavailableError) Error() string {
	return fmt.Sprintf("video %s doesn't have captions or has disabled captions", e.VideoID)
}

// TranscriptFetchError reports that every strategy failed for reasons other
// than confirmed caption absence (network errors, structural drift, timeouts).
// The last underlying cause is attached; callers may retry later.
type TranscriptFetchError struct {
	VideoID string
	Cause   error
}

func (e *TranscriptFetchError) Error() string {
	return fmt.Sprintf("failed to fetch transcript for video %s: %v", e.VideoID, e.Cause)
}

func (e *TranscriptFetchError) Unwrap() error { return e.Cause }

// extractionError marks a failure inside one fetch strategy. It never reaches
// callers directly: the orchestrator logs it with the strategy and step that
// broke, then moves on to the next strategy.
type extractionError struct {
	strategy string
	step     string
	cause    error
}

func (e *extractionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.strategy, e.step, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.strategy, e.step)
}

func (e *extractionError) Unwrap() error { return e.cause }

func extractErr(strategy, step string, cause error) *extractionError {
	return &extractionError{strategy: strategy, step: step, cause: cause}
}

// unavailableSignatures are error-message fragments that mean "the captions
// genuinely don't exist", as opposed to "our extraction broke". Matching is
// case-insensitive over the whole wrapped chain.
var unavailableSignatures = []string{
	"no captions",
	"no caption tracks",
	"caption tracks unavailable",
	"transcripts disabled",
	"captions disabled",
	"disabled captions",
	"no subtitles",
	"api 403",
}

func isUnavailableSignature(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range unavailableSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
