package glbridge

import "errors"

// Error categories. Every sentinel below unwraps to exactly one category,
// so callers can branch on the class of failure with errors.Is.
var (
	// ErrInitialization covers display and context creation failures.
	// Unrecoverable: the bridge cannot start.
	ErrInitialization = errors.New("glbridge: initialization failed")

	// ErrCompatibility covers unsupported platform/API/format combinations.
	// Reported before any GPU resource is touched.
	ErrCompatibility = errors.New("glbridge: incompatible configuration")

	// ErrContention covers context activation on the wrong thread.
	ErrContention = errors.New("glbridge: context contention")

	// ErrResource covers allocation, attachment and map failures.
	ErrResource = errors.New("glbridge: resource failure")

	// ErrRender covers draw and flush failures. The current frame is lost.
	ErrRender = errors.New("glbridge: render failure")
)

// Specific failures.
var (
	ErrDisplayInit     = newSentinel(ErrInitialization, "glbridge: no compatible headless display backend")
	ErrContextCreation = newSentinel(ErrInitialization, "glbridge: context creation rejected")
	ErrContextInfo     = newSentinel(ErrInitialization, "glbridge: context info not filled")

	ErrUnsupportedPlatform = newSentinel(ErrCompatibility, "glbridge: unsupported platform/API")
	ErrUnsupportedFormat   = newSentinel(ErrCompatibility, "glbridge: unsupported format descriptor")

	ErrContextContention = newSentinel(ErrContention, "glbridge: context is current on another thread")
	ErrContextNotCurrent = newSentinel(ErrContention, "glbridge: context is not current on the calling thread")

	ErrAllocation = newSentinel(ErrResource, "glbridge: allocation failed")
	ErrAttachment = newSentinel(ErrResource, "glbridge: attachment failed")
	ErrMap        = newSentinel(ErrResource, "glbridge: map failed")

	ErrFramebufferIncomplete = newSentinel(ErrRender, "glbridge: framebuffer incomplete")
	ErrRenderBackend         = newSentinel(ErrRender, "glbridge: render backend error")
	ErrInvalidRegion         = newSentinel(ErrRender, "glbridge: region outside frame")
	ErrUseAfterFinish        = newSentinel(ErrRender, "glbridge: frame already finished")
)

// sentinel is a named failure that belongs to a category.
type sentinel struct {
	kind error
	msg  string
}

func newSentinel(kind error, msg string) error {
	return &sentinel{kind: kind, msg: msg}
}

func (e *sentinel) Error() string { return e.msg }

func (e *sentinel) Unwrap() error { return e.kind }

// Category returns the category sentinel err belongs to, or nil when err
// did not originate in glbridge.
func Category(err error) error {
	for _, kind := range []error{ErrInitialization, ErrCompatibility, ErrContention, ErrResource, ErrRender} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsFatal reports whether err aborts the whole operation rather than a
// single frame or allocation.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInitialization) || errors.Is(err, ErrCompatibility) || errors.Is(err, ErrContention)
}
