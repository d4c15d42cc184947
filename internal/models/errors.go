package models

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures during ingestion of a single key
type ErrorKind string

const (
	// ErrTransient covers network errors, rate limits and backend hiccups.
	// Transient errors are retried with bounded backoff before they surface.
	ErrTransient ErrorKind = "transient"
	// ErrNotFound means the source has no file for the key (no racing that
	// day). This is a normal outcome, not a failure.
	ErrNotFound ErrorKind = "not_found"
	// ErrFormat means the response could not be parsed into SP records
	ErrFormat ErrorKind = "format"
	// ErrStorage covers existence-check and upload failures after retries
	ErrStorage ErrorKind = "storage"
)

// IngestError is a failure scoped to one ArtifactKey
type IngestError struct {
	Kind ErrorKind
	Key  ArtifactKey
	Err  error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error for %s: %v", e.Kind, e.Key, e.Err)
	}
	return fmt.Sprintf("%s error for %s", e.Kind, e.Key)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps a retryable source or backend failure
func NewTransientError(key ArtifactKey, err error) *IngestError {
	return &IngestError{Kind: ErrTransient, Key: key, Err: err}
}

// NewNotFoundError marks a key the source has no data for
func NewNotFoundError(key ArtifactKey) *IngestError {
	return &IngestError{Kind: ErrNotFound, Key: key}
}

// NewFormatError wraps an unparseable response
func NewFormatError(key ArtifactKey, err error) *IngestError {
	return &IngestError{Kind: ErrFormat, Key: key, Err: err}
}

// NewStorageError wraps a storage backend failure
func NewStorageError(key ArtifactKey, err error) *IngestError {
	return &IngestError{Kind: ErrStorage, Key: key, Err: err}
}

// KindOf extracts the error kind, defaulting to transient for untyped errors
func KindOf(err error) ErrorKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ErrTransient
}

// IsNotFound reports whether err means the source has no data for the key
func IsNotFound(err error) bool {
	return KindOf(err) == ErrNotFound
}

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind == ErrTransient
	}
	// Untyped errors from the HTTP transport are treated as retryable
	return true
}
