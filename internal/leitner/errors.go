package leitner

import (
	"errors"
	"fmt"
)

// ErrInvalidBox matches every *InvalidBoxError via errors.Is.
var ErrInvalidBox = errors.New("leitner: invalid box")

// InvalidBoxError reports a box number outside 1..5. It means the stored
// card is corrupt, so callers must reject the review rather than coerce it.
type InvalidBoxError struct {
	Box int
}

func (e *InvalidBoxError) Error() string {
	return fmt.Sprintf("leitner: invalid box %d (want %d..%d)", e.Box, int(MinBox), int(MaxBox))
}

func (e *InvalidBoxError) Is(target error) bool {
	return target == ErrInvalidBox
}
