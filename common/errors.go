package common

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the application must react to it.
type Kind int

const (
	// KindUnknown is reported for errors that carry no classification.
	KindUnknown Kind = iota

	// KindFatalInit means a device, context or kernel binary is unavailable. Startup aborts.
	KindFatalInit

	// KindTransientFrame means the current frame cannot be completed (surface lost or outdated,
	// allocation exhausted for one frame). The frame is skipped and the loop continues.
	KindTransientFrame

	// KindDeviceLost means the driver reset the device. The context and every resource are recreated,
	// a bounded number of times.
	KindDeviceLost

	// KindInputIgnored means an input event was malformed or out of range. It is clamped or dropped
	// and never surfaced to the user.
	KindInputIgnored
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFatalInit:
		return "FatalInit"
	case KindTransientFrame:
		return "TransientFrame"
	case KindDeviceLost:
		return "DeviceLost"
	case KindInputIgnored:
		return "InputIgnored"
	default:
		return "Unknown"
	}
}

var (
	ErrNotFound          = errors.New("not found")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrSurfaceLost       = errors.New("surface lost")
	ErrSurfaceOutdated   = errors.New("surface outdated")
	ErrDeviceLost        = errors.New("device lost")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrStale             = errors.New("artifact is stale relative to its source")
	ErrFrameSkipped      = errors.New("frame skipped")
	ErrTimeout           = errors.New("timed out")
)

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a KindFatalInit error for the given operation.
func Fatal(op string, err error) error {
	return &Error{Kind: KindFatalInit, Op: op, Err: err}
}

// Transient wraps err as a KindTransientFrame error for the given operation.
func Transient(op string, err error) error {
	return &Error{Kind: KindTransientFrame, Op: op, Err: err}
}

// Lost wraps err as a KindDeviceLost error for the given operation.
func Lost(op string, err error) error {
	return &Error{Kind: KindDeviceLost, Op: op, Err: err}
}

// Ignored wraps err as a KindInputIgnored error for the given operation.
func Ignored(op string, err error) error {
	return &Error{Kind: KindInputIgnored, Op: op, Err: err}
}

// KindOf reports the classification of err.
// Unclassified errors wrapping one of the well-known sentinels are classified by the sentinel.
//
// Parameters:
//   - err: the error to classify
//
// Returns:
//   - Kind: the kind of the outermost classified error, or a kind derived from a known sentinel
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrDeviceLost):
		return KindDeviceLost
	case errors.Is(err, ErrSurfaceLost), errors.Is(err, ErrSurfaceOutdated),
		errors.Is(err, ErrResourceExhausted), errors.Is(err, ErrFrameSkipped):
		return KindTransientFrame
	}
	return KindUnknown
}

// IsFatal reports whether err must terminate the process.
func IsFatal(err error) bool {
	k := KindOf(err)
	return k == KindFatalInit || (k == KindUnknown && err != nil)
}
