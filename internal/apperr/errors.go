// Package apperr holds the error kinds shared by the notification pipeline,
// the document store and the HTTP surface.
package apperr

import (
	"errors"
	"fmt"
)

// AuthError indicates that a stored refresh credential could not be
// exchanged for an access credential.
type AuthError struct {
	Email string
	Err   error
}

func (e *AuthError) Error() string {
	if e.Email == "" {
		return fmt.Sprintf("auth error: %v", e.Err)
	}
	return fmt.Sprintf("auth error (%s): %v", e.Email, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// FetchError marks a single message that could not be retrieved or decoded.
type FetchError struct {
	MessageID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch message %s: %v", e.MessageID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err (or any error in its chain) is a FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// ValidationError rejects caller input. Message is safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidationError reports whether err (or any error in its chain) is a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// TransientProviderError is returned once the generative provider has failed
// every attempt allowed by the retry policy.
type TransientProviderError struct {
	Attempts int
	Err      error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// IsTransientProviderError reports whether err (or any error in its chain) is a TransientProviderError.
func IsTransientProviderError(err error) bool {
	var providerErr *TransientProviderError
	return errors.As(err, &providerErr)
}

// PublishError indicates the reply draft could not be created.
type PublishError struct {
	MessageID string
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish draft for %s: %v", e.MessageID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// IsPublishError reports whether err (or any error in its chain) is a PublishError.
func IsPublishError(err error) bool {
	var publishErr *PublishError
	return errors.As(err, &publishErr)
}

// StorageError wraps a failed persistence call, including a pool wait that
// ran past its deadline.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err (or any error in its chain) is a StorageError.
func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}

// Storage wraps err as a StorageError for op, leaving nil untouched.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
