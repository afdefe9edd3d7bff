package winsys

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for every failure the core can surface. Callers match with
// errors.Is; call sites annotate with context before returning.
var (
	// OutOfMemoryError is returned when the backing allocator cannot satisfy
	// an allocation request.
	OutOfMemoryError error = errors.New("out of device memory")
	// ImportFailedError is returned when a shared name or descriptor does not
	// recover a usable object, or its tiling state cannot be queried.
	ImportFailedError error = errors.New("import failed")
	// ExportFailedError is returned when the backend refuses to produce a
	// sharing handle for an object.
	ExportFailedError error = errors.New("export failed")
	// InvalidTilingError is returned when a requested mode/pitch pair
	// violates the mode's alignment constraint. The object is unchanged.
	InvalidTilingError error = errors.New("invalid tiling mode/pitch pair")
	// TilingMismatchError indicates the backend applied a different tiling
	// mode than requested. It is always wrapped in a FatalError: the object's
	// tiling state has diverged from what the caller believes.
	TilingMismatchError error = errors.New("backend tiling state diverged from request")
	// MapFailedError is returned when a mapping path fails; no pointer is
	// produced.
	MapFailedError error = errors.New("map failed")
	// IOError is returned when a bounce-buffer read or write fails in the
	// backend.
	IOError error = errors.New("object i/o failed")
	// TooManyRelocationsError is returned once a command buffer's fixed
	// relocation capacity is exhausted.
	TooManyRelocationsError error = errors.New("relocation capacity exhausted")
	// SubmissionFailedError is returned when a batch cannot be dispatched.
	// The batch's relocation table is left unchanged.
	SubmissionFailedError error = errors.New("submission failed")
	// QueryFailedError is returned when reset statistics cannot be read.
	QueryFailedError error = errors.New("reset stats query failed")
	// UnsupportedDeviceError is returned from Open when the device lacks the
	// mandatory relaxed-delta addressing capability.
	UnsupportedDeviceError error = errors.New("device lacks mandatory capabilities")
)

// FatalError marks an invariant violation the caller must not retry: the
// winsys state backing the wrapped error is unknown. Embedders should log it
// and shut down rather than continue issuing work.
type FatalError struct {
	cause error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal winsys error: %s", e.cause.Error())
}

func (e *FatalError) Unwrap() error {
	return e.cause
}

func fatal(cause error) error {
	return &FatalError{cause: cause}
}

// IsFatal reports whether err (at any level of wrapping) is a FatalError.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
