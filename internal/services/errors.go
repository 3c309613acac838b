package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	// Stage markers. Failures tagged with these never abort the pipeline;
	// the coordinator records them and moves on or terminates the swing.
	ErrTranscode            = errors.New("transcode failed")
	ErrAnalysisUnavailable  = errors.New("analysis unavailable")
	ErrExtractionFailed     = errors.New("measurement extraction failed")
	ErrExtractorUnavailable = errors.New("measurement extractor unavailable")
	ErrIncompleteResult     = errors.New("incomplete analysis result")

	// ErrPersistence marks store failures. These are fatal to a pipeline run.
	ErrPersistence = errors.New("persistence failure")
)

// Kind is the coarse error class surfaced to callers.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindRecoverable Kind = "recoverable"
	KindFatal       Kind = "fatal"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to its Kind. Persistence and configuration failures
// are fatal; validation and not-found surface as caller mistakes; everything
// else is a recoverable stage failure.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindRecoverable
	case errors.Is(err, ErrPersistence), errors.Is(err, ErrConfiguration):
		return KindFatal
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return KindValidation
	default:
		return KindRecoverable
	}
}

// IsFatal reports whether err must abort the current pipeline run.
func IsFatal(err error) bool {
	return err != nil && Classify(err) == KindFatal
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
