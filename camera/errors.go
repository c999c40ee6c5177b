package camera

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDeviceNotFound is returned by New when no matching device is connected.
	ErrDeviceNotFound = errors.New("no device connected")
	// ErrDeviceOpenFailed is matched by every error New returns after a device was found.
	ErrDeviceOpenFailed = errors.New("failure opening device")
	// ErrClosed is returned by waits that were pending when the camera was closed.
	ErrClosed = errors.New("camera is closed")
)

// DeviceOpenError reports why a found device could not be brought up.
type DeviceOpenError struct {
	Serial string
	Cause  error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrDeviceOpenFailed, e.Serial, e.Cause)
}

// Is matches ErrDeviceOpenFailed.
func (e *DeviceOpenError) Is(target error) bool {
	return target == ErrDeviceOpenFailed
}

// Unwrap returns the driver error.
func (e *DeviceOpenError) Unwrap() error {
	return e.Cause
}
