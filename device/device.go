// Package device defines the contract between the acquisition pipeline and a color+depth sensor driver,
// and the listener that pairs the frames a sensor pushes.
package device

import (
	"context"
	"fmt"
	"time"

	"github.com/derpvision/procam/logging"
	"github.com/derpvision/procam/rimage"
	"github.com/derpvision/procam/rimage/transform"
)

// FrameType identifies which sensor produced a frame.
type FrameType int

// Frame types.
const (
	FrameTypeColor FrameType = iota
	FrameTypeDepth
)

func (ft FrameType) String() string {
	switch ft {
	case FrameTypeColor:
		return "color"
	case FrameTypeDepth:
		return "depth"
	default:
		return fmt.Sprintf("FrameType(%d)", int(ft))
	}
}

// Frame is a single image pushed by a device. Exactly one of Color and Depth is set, matching Type.
// Frames of the same capture cycle carry the same Sequence.
type Frame struct {
	Type       FrameType
	Sequence   uint64
	CapturedAt time.Time
	Color      *rimage.ColorImage
	Depth      *rimage.DepthMap
}

// FrameSet is a color and a depth frame from the same capture cycle.
type FrameSet struct {
	Sequence uint64
	Color    *rimage.ColorImage
	Depth    *rimage.DepthMap
}

// A FrameSink receives frames from a running device. OnNewFrame returns false when the frame was not
// taken, in which case the device keeps ownership of its buffers.
type FrameSink interface {
	OnNewFrame(frame Frame) bool
}

// Device is an opened color+depth sensor.
type Device interface {
	Serial() string
	ColorIntrinsics() transform.PinholeCameraIntrinsics
	DepthIntrinsics() transform.PinholeCameraIntrinsics
	DepthDistortion() transform.BrownConrady
	// Extrinsics returns the depth to color transform, or nil when the sensors share an optical center.
	Extrinsics() *transform.DepthColorExtrinsics

	// Start begins pushing frames into sink until Stop is called.
	Start(ctx context.Context, sink FrameSink) error
	Stop(ctx context.Context) error
	Close(ctx context.Context) error
}

// Driver discovers and opens devices.
type Driver interface {
	EnumerateDevices(ctx context.Context) ([]string, error)
	OpenDevice(ctx context.Context, serial string, logger logging.Logger) (Device, error)
}
