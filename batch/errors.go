package batch

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorKind tags a failure with where it came from.
type ErrorKind string

const (
	// KindProcessing marks an item whose transform failed.
	KindProcessing ErrorKind = "processing_error"
	// KindAccessor marks an accessor that failed or returned no data. It is
	// always recovered and never fails an item on its own.
	KindAccessor ErrorKind = "accessor_error"
	// KindValidation marks malformed arguments to a run.
	KindValidation ErrorKind = "validation_error"
)

var (
	// ErrInvalidArgument is wrapped by every ValidationError.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyAccessorResult is used when an accessor returns a nil payload
	// without an error. WithRetry also uses it for empty payloads.
	ErrEmptyAccessorResult = errors.New("accessor returned no data")
)

// ValidationError is returned when a run is started with malformed
// arguments. No item has been processed when it is returned.
type ValidationError struct {
	Err error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %v", e.Err)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// AccessorError is produced when a named accessor fails for an item.
type AccessorError struct {
	Name  string
	Index int
	Err   error
}

func (e AccessorError) Error() string {
	return fmt.Sprintf("accessor %q failed for item %d: %v", e.Name, e.Index, e.Err)
}

func (e AccessorError) Unwrap() error {
	return e.Err
}

// ProcessingError wraps the error a transform returned for an item.
type ProcessingError struct {
	Index int
	Err   error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("processing error at item %d: %v", e.Index, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. It returns an empty kind for a nil error and
// KindProcessing for anything it does not recognize.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var verr ValidationError
	if errors.As(err, &verr) {
		return KindValidation
	}
	var aerr AccessorError
	if errors.As(err, &aerr) {
		return KindAccessor
	}
	return KindProcessing
}

func invalidArgf(format string, args ...interface{}) error {
	return ValidationError{Err: errors.Wrapf(ErrInvalidArgument, format, args...)}
}

// panicError converts a recovered panic value into an error carrying a stack.
func panicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return errors.Wrap(err, "transform panicked")
	}
	return errors.Newf("transform panicked: %v", r)
}
