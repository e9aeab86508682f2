package domain

import (
	"errors"
	"fmt"
)

// ExtractionError means a file yielded no usable text or could not be downloaded.
type ExtractionError struct {
	Adapter  string
	FileName string
	Cause    error
}

func (e *ExtractionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s extraction failed for %s", e.Adapter, e.FileName)
	}
	return fmt.Sprintf("%s extraction failed for %s: %v", e.Adapter, e.FileName, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// ClassificationFailure means the generative capability returned nothing usable.
type ClassificationFailure struct {
	Reason string
	Cause  error
}

func (e *ClassificationFailure) Error() string {
	if e.Cause == nil {
		return "classification failed: " + e.Reason
	}
	return fmt.Sprintf("classification failed: %s: %v", e.Reason, e.Cause)
}

func (e *ClassificationFailure) Unwrap() error { return e.Cause }

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// Degradation kinds recorded on non-fatal outcomes.
var (
	ErrNormalizationDegraded = errors.New("normalization degraded")
	ErrPersistenceWarning    = errors.New("persistence warning")
	ErrNotificationFailure   = errors.New("notification failure")
)

// IsExtractionError reports whether err carries an ExtractionError.
func IsExtractionError(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}

// IsClassificationFailure reports whether err carries a ClassificationFailure.
func IsClassificationFailure(err error) bool {
	var target *ClassificationFailure
	return errors.As(err, &target)
}
