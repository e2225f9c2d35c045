package mediagl

import (
	"errors"
	"fmt"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/internal/gles"
)

// wrapGL translates a driver error into the glbridge taxonomy. Thread
// errors keep their own category; everything else becomes kind.
func wrapGL(kind error, op string, err error) error {
	switch {
	case errors.Is(err, gles.ErrContextBusy):
		return fmt.Errorf("%w: %s", glbridge.ErrContextContention, op)
	case errors.Is(err, gles.ErrNotCurrent):
		return fmt.Errorf("%w: %s", glbridge.ErrContextNotCurrent, op)
	default:
		return fmt.Errorf("%w: %s: %w", kind, op, err)
	}
}
