package generation

import (
	"errors"
	"strings"
)

// Kind classifies a failed generation.
type Kind string

const (
	KindCredentialExpired Kind = "credential_expired"
	KindNoOutput          Kind = "no_output"
	KindTimeout           Kind = "timeout"
	KindGeneric           Kind = "generic"
)

// FallbackMessage is reported when a failure carries no message of its own.
const FallbackMessage = "An unexpected error occurred."

// notFoundMessage is what the provider says when a job handle outlives the key
// that created it.
const notFoundMessage = "Requested entity was not found"

var (
	ErrCredentialExpired = errors.New("api key expired")
	ErrNoOutput          = errors.New("video generation failed: no output received")
	ErrTimeout           = errors.New("video generation did not finish within the poll limit")

	// ErrJobNotFound is returned by providers that can report a missing job
	// with a structured status instead of free text.
	ErrJobNotFound = errors.New("requested entity was not found")
)

// Error is the single failure outcome of Generate.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil && e.Err.Error() != "" {
		return e.Err.Error()
	}
	return FallbackMessage
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Err* sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrCredentialExpired:
		return e.Kind == KindCredentialExpired
	case ErrNoOutput:
		return e.Kind == KindNoOutput
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// KindOf returns the classification of err, KindGeneric for foreign errors and
// an empty kind for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindGeneric
}

// ClassifyPollError decides whether a failed status poll means the selected
// credential no longer owns the job.
func ClassifyPollError(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrJobNotFound) || strings.Contains(err.Error(), notFoundMessage) {
		return KindCredentialExpired
	}
	return KindGeneric
}

func failure(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
