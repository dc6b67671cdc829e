package filter

import (
	"errors"
	"fmt"
)

// ErrRange matches every *RangeError with errors.Is
var ErrRange = errors.New("filter: range out of bounds")

// RangeError is returned by Trim when the requested range does not satisfy
// 0 <= Start <= End <= Len.
type RangeError struct {
	Start, End int
	Len        int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("filter: trim range [%d, %d) out of bounds for %d segments", e.Start, e.End, e.Len)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}
