package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("referral not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrStatusConflict    = errors.New("status changed concurrently")
	ErrResumeRequired    = errors.New("resume is required")
)

// ValidationError is returned for a submission that cannot be accepted.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "resume" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StorageError wraps a failed persistence operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ExtractionError reports that resume text could not be derived from an upload.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// OracleErrorKind classifies why a scoring call produced no usable answer.
type OracleErrorKind string

const (
	OracleTransport OracleErrorKind = "transport"
	OracleStatus    OracleErrorKind = "status"
	OracleTimeout   OracleErrorKind = "timeout"
	OracleEmpty     OracleErrorKind = "empty"
	OracleParse     OracleErrorKind = "parse"
)

// OracleError is a failed call to the scoring oracle.
type OracleError struct {
	Kind       OracleErrorKind
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *OracleError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("oracle %s (HTTP %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("oracle %s: %v", e.Kind, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// IsRetryable lets retry loops decide without string matching.
func (e *OracleError) IsRetryable() bool {
	return e.Retryable
}
