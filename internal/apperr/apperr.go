// Package apperr provides a structured error type carrying the taxonomy
// tags operators and logs rely on to distinguish validation, execution,
// and license failures.
package apperr

import (
	"fmt"
	"net/http"
	"time"
)

// Tag is a dotted taxonomy string, e.g. "validation.source_unsupported".
type Tag string

const (
	TagSourceUnsupported       Tag = "validation.source_unsupported"
	TagCodecContainerMismatch  Tag = "validation.codec_container_mismatch"
	TagProxyProfileMismatch    Tag = "validation.proxy_profile_mismatch"
	TagSourceMissingOrNotFile  Tag = "validation.source_missing_or_not_file"
	TagNamingTemplateAmbiguous Tag = "validation.naming_template_ambiguous"
	TagResolveAvailability     Tag = "validation.resolve_availability"
	TagResolvePresetMissing    Tag = "validation.resolve_preset_missing"
	TagEditionMismatch         Tag = "validation.edition_mismatch"
	TagEngineFailure           Tag = "execution.engine_failure"
	TagInterruptedByRestart    Tag = "execution.interrupted_by_restart"
	TagCancelled               Tag = "execution.cancelled"
	TagWorkerLimitExceeded     Tag = "license.worker_limit_exceeded"
)

// AppError is a structured error carrying a taxonomy tag, an optional
// recommended action, and arbitrary context for logs and API responses.
type AppError struct {
	Tag               Tag
	Message           string
	Details           string
	RecommendedAction string
	HTTPStatus        int
	Context           map[string]interface{}
	Timestamp         time.Time
	Cause             error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Tag, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Tag, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithContext attaches a key/value pair for logging and API responses.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecommendedAction sets the operator-facing remediation hint.
func (e *AppError) WithRecommendedAction(action string) *AppError {
	e.RecommendedAction = action
	return e
}

// New creates a validation-class AppError (HTTP 400 by default).
func New(tag Tag, message string) *AppError {
	return &AppError{
		Tag:        tag,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Timestamp:  time.Now(),
	}
}

// NewWithCause wraps an underlying error under a taxonomy tag.
func NewWithCause(tag Tag, message string, status int, cause error) *AppError {
	return &AppError{
		Tag:        tag,
		Message:    message,
		HTTPStatus: status,
		Timestamp:  time.Now(),
		Cause:      cause,
	}
}

// As extracts an *AppError from err, if any.
func As(err error) (*AppError, bool) {
	ae, ok := err.(*AppError)
	return ae, ok
}
