package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider-facing failures so handlers can render a
// differentiated message instead of a raw exception.
type ErrorKind string

const (
	// KindMissingCredential means no credential is configured for the provider.
	KindMissingCredential ErrorKind = "missing_credential"
	// KindInvalidCredential means the provider rejected the configured credential.
	KindInvalidCredential ErrorKind = "invalid_credential"
	// KindNetworkFailure covers transport errors and unexpected upstream failures.
	KindNetworkFailure ErrorKind = "network_failure"
	// KindQuotaExceeded means the upstream provider rate- or quota-limited us.
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	// KindRecognitionUnsupported means no speech-to-text capability is available.
	KindRecognitionUnsupported ErrorKind = "recognition_unsupported"
	// KindLocationUnavailable means a location could not be resolved.
	KindLocationUnavailable ErrorKind = "location_unavailable"
)

// ProviderError is the typed, user-presentable error returned from every
// provider boundary. The raw upstream error is wrapped for logging.
type ProviderError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err as a ProviderError of the given kind.
func NewProviderError(kind ErrorKind, message string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the ErrorKind of err, or KindNetworkFailure if err is not
// a ProviderError.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindNetworkFailure
}

// IsKind reports whether err is a ProviderError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}
