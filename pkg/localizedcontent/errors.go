package localizedcontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error types
var (
	// ErrPostNotFound indicates a post was not found
	ErrPostNotFound = errors.New("post not found")

	// ErrCategoryNotFound indicates a category was not found
	ErrCategoryNotFound = errors.New("category not found")

	// ErrTranslationNotFound indicates no translation exists for a lookup key
	ErrTranslationNotFound = errors.New("translation not found")

	// ErrTranslationExists indicates a second row for an existing lookup key
	ErrTranslationExists = errors.New("translation already exists")

	// ErrMediaNotFound indicates a media attachment was not found
	ErrMediaNotFound = errors.New("media not found")

	// ErrFileNotFound indicates a stored file does not exist
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidInput indicates malformed client input
	ErrInvalidInput = errors.New("invalid input")

	// ErrUploadFailed indicates a file could not be stored
	ErrUploadFailed = errors.New("upload failed")

	// ErrNoFileStore indicates files were supplied but no FileStore is configured
	ErrNoFileStore = errors.New("no file store configured")
)

// ValidationError reports a required field that is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// PostError represents an error related to post operations
type PostError struct {
	PostID int64
	Op     string
	Err    error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post operation %s failed for post %d: %v", e.Op, e.PostID, e.Err)
}

func (e *PostError) Unwrap() error {
	return e.Err
}

// StoreError wraps a failed call into a backing store. The operation is not
// retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// PartialWriteError reports a multi-step write where one step failed after
// earlier steps were committed. Completed lists those steps in order.
type PartialWriteError struct {
	PostID    int64
	Op        string
	Step      string
	Completed []string
	Err       error

	work *unitOfWork
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("post operation %s partially applied for post %d: step %s failed after [%s]: %v",
		e.Op, e.PostID, e.Step, strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// Compensate undoes the completed steps in reverse order. It is a no-op once
// compensation has run.
func (e *PartialWriteError) Compensate(ctx context.Context) error {
	if e.work == nil {
		return nil
	}
	return e.work.compensate(ctx)
}

// Compensated reports whether the completed steps have been undone.
func (e *PartialWriteError) Compensated() bool {
	return e.work != nil && e.work.compensated
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) || isNotFound(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrTranslationNotFound) ||
		errors.Is(err, ErrMediaNotFound)
}
