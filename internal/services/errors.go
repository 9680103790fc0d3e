package services

import (
	"errors"
	"fmt"

	"github.com/bootcamp/registry/internal/github"
)

var (
	ErrAssetNotFound      = errors.New("asset not found")
	ErrTechnologyNotFound = errors.New("technology not found")
	ErrConfigNotFound     = errors.New("config file not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAssetExists        = errors.New("asset already exists")
)

// SyncErrorKind classifies why a pull or push failed
type SyncErrorKind string

const (
	KindNotFound             SyncErrorKind = "NOT_FOUND"
	KindMissingCredentials   SyncErrorKind = "MISSING_CREDENTIALS"
	KindInvalidSource        SyncErrorKind = "INVALID_SOURCE"
	KindInvalidConfiguration SyncErrorKind = "INVALID_CONFIGURATION"
	KindUpstreamFailure      SyncErrorKind = "UPSTREAM_FAILURE"
	KindAuthFailure          SyncErrorKind = "AUTH_FAILURE"
	KindValidationFailure    SyncErrorKind = "VALIDATION_FAILURE"
	KindInProgress           SyncErrorKind = "IN_PROGRESS"
)

// SyncError is returned by SyncService. Err keeps the original cause.
type SyncError struct {
	Kind SyncErrorKind
	Slug string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s failed (%s): %v", e.Slug, e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Message is the human readable text persisted in the asset's status_text
func (e *SyncError) Message() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

// KindOf returns the kind of a SyncError anywhere in err's chain, or "" if there is none
func KindOf(err error) SyncErrorKind {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind
	}
	return ""
}

func syncErrorf(kind SyncErrorKind, slug, format string, args ...any) *SyncError {
	return &SyncError{Kind: kind, Slug: slug, Err: fmt.Errorf(format, args...)}
}

// sourceError classifies a source client failure
func sourceError(slug string, err error) *SyncError {
	kind := KindUpstreamFailure
	switch {
	case errors.Is(err, github.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, github.ErrAuth):
		kind = KindAuthFailure
	case errors.Is(err, github.ErrEmptyContent):
		kind = KindValidationFailure
	}
	return &SyncError{Kind: kind, Slug: slug, Err: err}
}

// asSyncError keeps typed failures and reports anything else as an upstream failure
func asSyncError(slug string, err error) *SyncError {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}
	return &SyncError{Kind: KindUpstreamFailure, Slug: slug, Err: err}
}
