package store

import (
	"errors"
	"fmt"
)

var (
	// ErrGroupNotFound reports that no group exists for the given id.
	ErrGroupNotFound = errors.New("group not found")
	// ErrFileNotFound reports that a group has no record for the given
	// storage name, or that the recorded artifact is missing on disk.
	ErrFileNotFound = errors.New("file not found")
	// ErrEmptyGroup reports an attempt to complete a group with no files.
	ErrEmptyGroup = errors.New("group has no files")
	// ErrForbiddenPath reports a path parameter that would resolve
	// outside its owning subtree.
	ErrForbiddenPath = errors.New("path escapes storage root")
)

// StorageError wraps a filesystem or serialization failure during a
// store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage fault during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageFault(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
