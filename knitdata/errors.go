package knitdata

import (
	"errors"
	"fmt"
)

// ErrFragmented is returned by Dataset.Bytes when a removal left a gap in pattern
// storage. Call Dataset.Repack to close it.
var ErrFragmented = errors.New("pattern storage is fragmented, repack required")

// ErrPatternNotFound is returned when a pattern number is not present in the data set.
var ErrPatternNotFound = errors.New("pattern not found")

// BoundsError indicates that decoding addressed a byte outside the data buffer.
type BoundsError struct {
	Offset int
	Size   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("offset %d out of bounds: buffer is %d bytes", e.Offset, e.Size)
}

// CapacityError indicates that a pattern does not fit in the remaining memory.
type CapacityError struct {
	Number int
	Need   int
	Free   int
	// Slots is set when the directory, not the byte space, is exhausted
	Slots bool
}

func (e *CapacityError) Error() string {
	if e.Slots {
		return fmt.Sprintf("pattern %d: all %d directory slots in use", e.Number, DirectorySlots)
	}
	return fmt.Sprintf("pattern %d needs %d bytes, only %d free", e.Number, e.Need, e.Free)
}

// SizeError indicates that a sector file or buffer has the wrong length.
type SizeError struct {
	Name     string
	Expected int
	Actual   int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("wrong length for %s: got %d bytes, expected %d", e.Name, e.Actual, e.Expected)
}

// IsBoundsError reports whether err is or wraps a *BoundsError.
func IsBoundsError(err error) bool {
	var be *BoundsError
	return errors.As(err, &be)
}
