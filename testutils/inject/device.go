package inject

import (
	"context"

	"github.com/derpvision/procam/device"
	"github.com/derpvision/procam/logging"
	"github.com/derpvision/procam/rimage/transform"
)

// Device is an injected device.
type Device struct {
	device.Device
	SerialFunc          func() string
	ColorIntrinsicsFunc func() transform.PinholeCameraIntrinsics
	DepthIntrinsicsFunc func() transform.PinholeCameraIntrinsics
	DepthDistortionFunc func() transform.BrownConrady
	ExtrinsicsFunc      func() *transform.DepthColorExtrinsics
	StartFunc           func(ctx context.Context, sink device.FrameSink) error
	StopFunc            func(ctx context.Context) error
	CloseFunc           func(ctx context.Context) error
}

// Serial calls the injected Serial or the real version.
func (d *Device) Serial() string {
	if d.SerialFunc == nil {
		return d.Device.Serial()
	}
	return d.SerialFunc()
}

// ColorIntrinsics calls the injected ColorIntrinsics or the real version.
func (d *Device) ColorIntrinsics() transform.PinholeCameraIntrinsics {
	if d.ColorIntrinsicsFunc == nil {
		return d.Device.ColorIntrinsics()
	}
	return d.ColorIntrinsicsFunc()
}

// DepthIntrinsics calls the injected DepthIntrinsics or the real version.
func (d *Device) DepthIntrinsics() transform.PinholeCameraIntrinsics {
	if d.DepthIntrinsicsFunc == nil {
		return d.Device.DepthIntrinsics()
	}
	return d.DepthIntrinsicsFunc()
}

// DepthDistortion calls the injected DepthDistortion or the real version.
func (d *Device) DepthDistortion() transform.BrownConrady {
	if d.DepthDistortionFunc == nil {
		return d.Device.DepthDistortion()
	}
	return d.DepthDistortionFunc()
}

// Extrinsics calls the injected Extrinsics or the real version.
func (d *Device) Extrinsics() *transform.DepthColorExtrinsics {
	if d.ExtrinsicsFunc == nil {
		return d.Device.Extrinsics()
	}
	return d.ExtrinsicsFunc()
}

// Start calls the injected Start or the real version.
func (d *Device) Start(ctx context.Context, sink device.FrameSink) error {
	if d.StartFunc == nil {
		return d.Device.Start(ctx, sink)
	}
	return d.StartFunc(ctx, sink)
}

// Stop calls the injected Stop or the real version.
func (d *Device) Stop(ctx context.Context) error {
	if d.StopFunc == nil {
		return d.Device.Stop(ctx)
	}
	return d.StopFunc(ctx)
}

// Close calls the injected Close or the real version.
func (d *Device) Close(ctx context.Context) error {
	if d.CloseFunc == nil {
		if d.Device == nil {
			return nil
		}
		return d.Device.Close(ctx)
	}
	return d.CloseFunc(ctx)
}

// Driver is an injected driver.
type Driver struct {
	device.Driver
	EnumerateDevicesFunc func(ctx context.Context) ([]string, error)
	OpenDeviceFunc       func(ctx context.Context, serial string, logger logging.Logger) (device.Device, error)
}

// EnumerateDevices calls the injected EnumerateDevices or the real version.
func (d *Driver) EnumerateDevices(ctx context.Context) ([]string, error) {
	if d.EnumerateDevicesFunc == nil {
		return d.Driver.EnumerateDevices(ctx)
	}
	return d.EnumerateDevicesFunc(ctx)
}

// OpenDevice calls the injected OpenDevice or the real version.
func (d *Driver) OpenDevice(ctx context.Context, serial string, logger logging.Logger) (device.Device, error) {
	if d.OpenDeviceFunc == nil {
		return d.Driver.OpenDevice(ctx, serial, logger)
	}
	return d.OpenDeviceFunc(ctx, serial, logger)
}
