package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDecode        = errors.New("decode error")
	ErrEngine        = errors.New("analysis engine error")
	ErrStorage       = errors.New("storage error")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
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

// IsFatal reports whether err must abort a whole run rather than a single
// track. Storage and configuration failures are fatal; everything else is
// isolated to the track that raised it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrConfiguration)
}

// ErrorKind returns a short machine-readable label for err, used as the
// error_kind log field and in failure summaries.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var classified interface{ ErrorKind() string }
	if errors.As(err, &classified) {
		return classified.ErrorKind()
	}
	switch {
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrEngine):
		return "engine"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "unknown"
	}
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
