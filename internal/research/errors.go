package research

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks a structurally invalid parameter: empty required
	// string, negative threshold, non-positive limit. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSimilarityUnavailable marks a failure of the injected similarity
	// capability. The cause is preserved via wrapping; retry policy belongs to
	// the caller.
	ErrSimilarityUnavailable = errors.New("similarity capability unavailable")
)

func invalidArgf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func similarityUnavailable(cause error) error {
	return fmt.Errorf("%w: %w", ErrSimilarityUnavailable, cause)
}
