package engine

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-livefx/engine/capture"
)

var (
	// ErrPermissionDenied means the input device refused access.
	ErrPermissionDenied = errors.New("engine: permission denied")
	// ErrDeviceNotFound means no capture device is available.
	ErrDeviceNotFound = errors.New("engine: device not found")
	// ErrInitializationFailed wraps any other acquisition or graph failure.
	ErrInitializationFailed = errors.New("engine: initialization failed")
	// ErrNotInitialized is returned by operations that need a Ready engine.
	ErrNotInitialized = capture.ErrNotInitialized
	// ErrNoActiveCapture is returned by StopCapture without a capture.
	ErrNoActiveCapture = capture.ErrNoActiveCapture
)

// classify maps an initialization error onto the public taxonomy. Device
// drivers report access and presence problems by wrapping
// ErrPermissionDenied or ErrDeviceNotFound.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrDeviceNotFound):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrInitializationFailed, err)
	}
}
