package module

import (
	"errors"
	"fmt"
)

// Error classes returned by the codec. Use errors.Is to test for them.
var (
	// ErrNotFound indicates the module file does not exist
	ErrNotFound = errors.New("module file not found")

	// ErrEmpty indicates the module file or buffer has zero length
	ErrEmpty = errors.New("module is empty")

	// ErrMalformed indicates the buffer is structurally invalid
	ErrMalformed = errors.New("malformed module")

	// ErrAlreadyCompressed indicates compression was requested for a compressed module
	ErrAlreadyCompressed = errors.New("module is already compressed")

	// ErrNotCompressed indicates decompression was requested for an uncompressed module
	ErrNotCompressed = errors.New("module is not compressed")

	// ErrUnsupportedCompression indicates an unknown compression method or header size
	ErrUnsupportedCompression = errors.New("unsupported compression")

	// ErrSizeMismatch indicates the inflated payload does not match the recorded size
	ErrSizeMismatch = errors.New("decompressed size mismatch")
)

// MalformedError describes a region of the buffer that is missing or inconsistent.
type MalformedError struct {
	// Field is the region that failed to decode
	Field string

	// Need is the number of bytes the region requires
	Need int

	// Have is the number of bytes available
	Have int
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed module: %s needs %d bytes, have %d", e.Field, e.Need, e.Have)
}

// Is reports ErrMalformed as the class of this error.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}
