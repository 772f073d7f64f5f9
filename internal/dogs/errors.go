package dogs

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrDuplicateName = errors.New("dog already exists")
	ErrFetch         = errors.New("photo fetch failed")
	ErrNotFound      = errors.New("dog not found")
	ErrFlowNotFound  = errors.New("photo flow not found")
	ErrNotRetryable  = errors.New("photo flow can only be retried after an error")
)

// DuplicateNameError is returned by Add when a dog with the same name
// (ignoring case) already exists.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("dog %q already exists", e.Name)
}

// Is reports whether target is ErrDuplicateName.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// FetchError wraps a photo provider failure. Fetch errors are always
// retryable.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("photo fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFetch.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}
