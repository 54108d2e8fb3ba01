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
	ErrTransient     = errors.New("transient failure")
	ErrSilentFailure = errors.New("silent tool failure")
	ErrChunkFailed   = errors.New("chunk transcription failed")
)

// ServiceError carries the stage context of a failure alongside its marker so
// callers can recover both the classification and the user-facing message.
type ServiceError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

// Unwrap exposes both the marker and the cause to errors.Is / errors.As.
func (e *ServiceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Cause}
}

// ErrorKind returns the classification string used by queue status mapping.
func (e *ServiceError) ErrorKind() string {
	return kindForMarker(e.Marker)
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails summarizes an error for status reporting.
type ErrorDetails struct {
	Kind    string
	Stage   string
	Message string
}

// Details extracts the classification and user-facing message from err. When
// err was not produced by Wrap the message falls back to err.Error().
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		message := svcErr.Message
		if message == "" {
			message = svcErr.Error()
		} else if svcErr.Cause != nil && svcErr.Marker != ErrValidation && svcErr.Marker != ErrChunkFailed {
			message = fmt.Sprintf("%s: %v", message, svcErr.Cause)
		}
		return ErrorDetails{
			Kind:    svcErr.ErrorKind(),
			Stage:   svcErr.Stage,
			Message: message,
		}
	}
	return ErrorDetails{Kind: "unknown", Message: strings.TrimSpace(err.Error())}
}

func kindForMarker(marker error) string {
	switch {
	case errors.Is(marker, ErrValidation):
		return "validation"
	case errors.Is(marker, ErrConfiguration):
		return "configuration"
	case errors.Is(marker, ErrNotFound):
		return "not_found"
	case errors.Is(marker, ErrExternalTool):
		return "external_tool"
	case errors.Is(marker, ErrSilentFailure):
		return "silent_failure"
	case errors.Is(marker, ErrChunkFailed):
		return "chunk_failed"
	default:
		return "transient"
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
