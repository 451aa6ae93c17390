// Package errors defines the structured failure variants used across the
// enrichment pipeline. Each external-facing component has its own closed set
// of reason tags so the workflow engine can pattern-match on cause with
// errors.As instead of string inspection.
package errors

import (
	"errors"
	"fmt"
)

// MappingReason classifies place-data mapping failures.
type MappingReason string

const (
	MappingMissingRequiredField MappingReason = "missing-required-field"
	MappingMalformedCoordinates MappingReason = "malformed-coordinates"
	MappingUnsupportedCategory  MappingReason = "unsupported-category"
	// Provider fetch failures surface through the same stage and share its
	// retry policy.
	MappingUpstreamUnavailable MappingReason = "upstream-unavailable"
	MappingUpstreamTimeout     MappingReason = "upstream-timeout"
)

// MappingError is returned by the place-data mapper and provider fetcher.
type MappingError struct {
	Op     string
	Reason MappingReason
	Msg    string
	Err    error
}

func (e *MappingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("mapping: %s: %s: %s: %v", e.Op, e.Reason, e.Msg, e.Err)
	}
	return fmt.Sprintf("mapping: %s: %s: %s", e.Op, e.Reason, e.Msg)
}

func (e *MappingError) Unwrap() error { return e.Err }

func NewMapping(op string, reason MappingReason, msg string, err error) error {
	return &MappingError{Op: op, Reason: reason, Msg: msg, Err: err}
}

// EmbeddingReason classifies embedding adapter failures.
type EmbeddingReason string

const (
	EmbeddingEmptyInput          EmbeddingReason = "empty-input"
	EmbeddingUpstreamUnavailable EmbeddingReason = "upstream-unavailable"
	EmbeddingUpstreamTimeout     EmbeddingReason = "upstream-timeout"
)

// EmbeddingError is returned by the embedding service adapter.
type EmbeddingError struct {
	Op     string
	Reason EmbeddingReason
	Msg    string
	Err    error
}

func (e *EmbeddingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("embedding: %s: %s: %s: %v", e.Op, e.Reason, e.Msg, e.Err)
	}
	return fmt.Sprintf("embedding: %s: %s: %s", e.Op, e.Reason, e.Msg)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func NewEmbedding(op string, reason EmbeddingReason, msg string, err error) error {
	return &EmbeddingError{Op: op, Reason: reason, Msg: msg, Err: err}
}

// InferenceReason classifies activity-inference failures.
type InferenceReason string

const (
	InferenceUpstreamUnavailable InferenceReason = "upstream-unavailable"
	InferenceUpstreamTimeout     InferenceReason = "upstream-timeout"
	InferenceUnparsableResponse  InferenceReason = "unparsable-response"
	InferenceEmptyResult         InferenceReason = "empty-result"
)

// InferenceError is returned by the activity inferrer. Unparsable responses
// get their own reason so the engine can retry with the strict prompt
// variant before degrading.
type InferenceError struct {
	Op     string
	Reason InferenceReason
	Msg    string
	Err    error
}

func (e *InferenceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("inference: %s: %s: %s: %v", e.Op, e.Reason, e.Msg, e.Err)
	}
	return fmt.Sprintf("inference: %s: %s: %s", e.Op, e.Reason, e.Msg)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func NewInference(op string, reason InferenceReason, msg string, err error) error {
	return &InferenceError{Op: op, Reason: reason, Msg: msg, Err: err}
}

// ConfigurationError indicates invalid weights/thresholds/limits. Detected
// at engine construction and fatal: the engine refuses to start.
type ConfigurationError struct {
	Op  string
	Msg string
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("configuration: %s: %s", e.Op, e.Msg)
}

func NewConfiguration(op, msg string) error {
	return &ConfigurationError{Op: op, Msg: msg}
}

// ErrCancelled marks a run cancelled between stages. Runs settle into a
// failed terminal state with this as the cause.
var ErrCancelled = errors.New("run cancelled")

// AsMapping unwraps err to a MappingError if one is in the chain.
func AsMapping(err error) (*MappingError, bool) {
	var me *MappingError
	ok := errors.As(err, &me)
	return me, ok
}

// AsEmbedding unwraps err to an EmbeddingError if one is in the chain.
func AsEmbedding(err error) (*EmbeddingError, bool) {
	var ee *EmbeddingError
	ok := errors.As(err, &ee)
	return ee, ok
}

// AsInference unwraps err to an InferenceError if one is in the chain.
func AsInference(err error) (*InferenceError, bool) {
	var ie *InferenceError
	ok := errors.As(err, &ie)
	return ie, ok
}

// Kind returns a short failure tag for logs and persisted run records.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrCancelled) {
		return "cancelled"
	}
	if me, ok := AsMapping(err); ok {
		return "mapping/" + string(me.Reason)
	}
	if ee, ok := AsEmbedding(err); ok {
		return "embedding/" + string(ee.Reason)
	}
	if ie, ok := AsInference(err); ok {
		return "inference/" + string(ie.Reason)
	}
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return "configuration"
	}
	return "unknown"
}
