// Package mediadevices implements a color+depth device out of two video drivers, one color stream and
// one Z16 depth stream, discovered through pion/mediadevices. Generic video drivers report no
// calibration, so intrinsics come from the configuration.
package mediadevices

import (
	"context"
	"image"
	"sync"
	"time"

	driverutils "github.com/pion/mediadevices/pkg/driver"
	mediadevicescamera "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/derpvision/procam/config"
	"github.com/derpvision/procam/device"
	"github.com/derpvision/procam/logging"
	"github.com/derpvision/procam/rimage"
	"github.com/derpvision/procam/rimage/transform"
)

const readRetryInterval = 50 * time.Millisecond

// SensorConfig pairs a color and a depth video driver into one device.
type SensorConfig struct {
	Serial          string                             `json:"serial"`
	ColorLabel      string                             `json:"color_label"`
	DepthLabel      string                             `json:"depth_label"`
	ColorIntrinsics *transform.PinholeCameraIntrinsics `json:"color_intrinsics"`
	DepthIntrinsics *transform.PinholeCameraIntrinsics `json:"depth_intrinsics"`
	DepthDistortion *transform.BrownConrady            `json:"depth_distortion,omitempty"`
	Extrinsics      *transform.DepthColorExtrinsics    `json:"extrinsics,omitempty"`
}

// Config are the attributes of the mediadevices driver.
type Config struct {
	Sensors []SensorConfig `json:"sensors"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	seen := map[string]bool{}
	for i, sensor := range conf.Sensors {
		if sensor.Serial == "" || sensor.ColorLabel == "" || sensor.DepthLabel == "" {
			return config.NewConfigValidationError(path, "sensors need a serial, color_label and depth_label")
		}
		if seen[sensor.Serial] {
			return config.NewConfigValidationError(path, "duplicate serial "+sensor.Serial)
		}
		seen[sensor.Serial] = true
		if err := sensor.ColorIntrinsics.CheckValid(); err != nil {
			return errors.Wrapf(err, "%s.sensors.%d.color_intrinsics", path, i)
		}
		if err := sensor.DepthIntrinsics.CheckValid(); err != nil {
			return errors.Wrapf(err, "%s.sensors.%d.depth_intrinsics", path, i)
		}
		if sensor.Extrinsics != nil {
			if err := sensor.Extrinsics.CheckValid(); err != nil {
				return errors.Wrapf(err, "%s.sensors.%d.extrinsics", path, i)
			}
		}
	}
	return nil
}

var initializeOnce sync.Once

// Driver finds configured sensors among the video drivers known to mediadevices.
type Driver struct {
	conf  Config
	query func() []driverutils.Driver
}

// NewDriver returns a driver over the system's video recorders.
func NewDriver(conf Config) (*Driver, error) {
	return newDriver(conf, func() []driverutils.Driver {
		initializeOnce.Do(mediadevicescamera.Initialize)
		return driverutils.GetManager().Query(driverutils.FilterVideoRecorder())
	})
}

func newDriver(conf Config, query func() []driverutils.Driver) (*Driver, error) {
	if err := conf.Validate("mediadevices"); err != nil {
		return nil, err
	}
	return &Driver{conf: conf, query: query}, nil
}

func (d *Driver) driversByLabel() map[string]driverutils.Driver {
	byLabel := map[string]driverutils.Driver{}
	for _, drv := range d.query() {
		byLabel[drv.Info().Label] = drv
	}
	return byLabel
}

// EnumerateDevices returns the serials of configured sensors whose color and depth drivers are both present.
func (d *Driver) EnumerateDevices(ctx context.Context) ([]string, error) {
	byLabel := d.driversByLabel()
	var serials []string
	for _, sensor := range d.conf.Sensors {
		_, hasColor := byLabel[sensor.ColorLabel]
		_, hasDepth := byLabel[sensor.DepthLabel]
		if hasColor && hasDepth {
			serials = append(serials, sensor.Serial)
		}
	}
	return serials, nil
}

// OpenDevice opens the color and depth drivers of the sensor with the given serial.
func (d *Driver) OpenDevice(ctx context.Context, serial string, logger logging.Logger) (_ device.Device, err error) {
	var sensor *SensorConfig
	for i := range d.conf.Sensors {
		if d.conf.Sensors[i].Serial == serial {
			sensor = &d.conf.Sensors[i]
		}
	}
	if sensor == nil {
		return nil, errors.Errorf("no sensor configured with serial %q", serial)
	}

	byLabel := d.driversByLabel()
	colorDriver, depthDriver := byLabel[sensor.ColorLabel], byLabel[sensor.DepthLabel]
	if colorDriver == nil || depthDriver == nil {
		return nil, errors.Errorf("video drivers for %q are not connected", serial)
	}

	dev := &Device{
		sensor:      *sensor,
		colorDriver: colorDriver,
		depthDriver: depthDriver,
		logger:      logger,
	}
	var opened []driverutils.Driver
	defer func() {
		if err != nil {
			for _, drv := range opened {
				err = multierr.Combine(err, drv.Close())
			}
		}
	}()

	for _, stream := range []struct {
		drv        driverutils.Driver
		intrinsics *transform.PinholeCameraIntrinsics
		depth      bool
		reader     *video.Reader
	}{
		{colorDriver, sensor.ColorIntrinsics, false, &dev.colorReader},
		{depthDriver, sensor.DepthIntrinsics, true, &dev.depthReader},
	} {
		if err := stream.drv.Open(); err != nil {
			return nil, errors.Wrapf(err, "cannot open %q", stream.drv.Info().Label)
		}
		opened = append(opened, stream.drv)

		media, ok := selectMedia(stream.drv.Properties(), stream.intrinsics, stream.depth)
		if !ok {
			return nil, errors.Errorf("%q has no %dx%d stream (depth=%v)",
				stream.drv.Info().Label, stream.intrinsics.Width, stream.intrinsics.Height, stream.depth)
		}
		recorder, ok := stream.drv.(driverutils.VideoRecorder)
		if !ok {
			return nil, errors.Errorf("%q is not a video recorder", stream.drv.Info().Label)
		}
		reader, err := recorder.VideoRecord(media)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot record from %q", stream.drv.Info().Label)
		}
		*stream.reader = reader
		logger.Debugw("opened stream", "label", stream.drv.Info().Label, "format", media.FrameFormat,
			"width", media.Width, "height", media.Height)
	}
	return dev, nil
}

// selectMedia picks the stream matching the calibrated resolution; depth streams must be Z16.
func selectMedia(props []prop.Media, intrinsics *transform.PinholeCameraIntrinsics, depth bool) (prop.Media, bool) {
	for _, p := range props {
		if p.Width != intrinsics.Width || p.Height != intrinsics.Height {
			continue
		}
		if (p.FrameFormat == frame.FormatZ16) != depth {
			continue
		}
		return p, true
	}
	return prop.Media{}, false
}

// Device reads paired color and depth frames from two video drivers.
type Device struct {
	sensor      SensorConfig
	colorDriver driverutils.Driver
	depthDriver driverutils.Driver
	colorReader video.Reader
	depthReader video.Reader
	logger      logging.Logger

	mu                      sync.Mutex
	cancel                  func()
	done                    chan struct{}
	driversClosed           bool
	driversOnce             sync.Once
	activeBackgroundWorkers sync.WaitGroup
}

// Serial returns the configured serial.
func (dev *Device) Serial() string { return dev.sensor.Serial }

// ColorIntrinsics returns the configured color intrinsics.
func (dev *Device) ColorIntrinsics() transform.PinholeCameraIntrinsics { return *dev.sensor.ColorIntrinsics }

// DepthIntrinsics returns the configured depth intrinsics.
func (dev *Device) DepthIntrinsics() transform.PinholeCameraIntrinsics { return *dev.sensor.DepthIntrinsics }

// DepthDistortion returns the configured depth lens model, or the identity.
func (dev *Device) DepthDistortion() transform.BrownConrady {
	if dev.sensor.DepthDistortion == nil {
		return transform.BrownConrady{}
	}
	return *dev.sensor.DepthDistortion
}

// Extrinsics returns the configured depth to color transform.
func (dev *Device) Extrinsics() *transform.DepthColorExtrinsics { return dev.sensor.Extrinsics }

// Start reads one color and one depth image per cycle and pushes them into sink.
func (dev *Device) Start(ctx context.Context, sink device.FrameSink) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.cancel != nil {
		return errors.New("device already started")
	}
	if dev.driversClosed {
		return errors.New("device is stopped")
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	dev.cancel = cancel
	dev.done = make(chan struct{})
	done := dev.done

	dev.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		var seq uint64
		for {
			if cancelCtx.Err() != nil {
				return
			}
			color, depth, err := dev.readPair()
			if err != nil {
				if cancelCtx.Err() != nil {
					return
				}
				dev.logger.Warnw("cannot read frames", "serial", dev.sensor.Serial, "error", err)
				if !goutils.SelectContextOrWait(cancelCtx, readRetryInterval) {
					return
				}
				continue
			}
			seq++
			now := time.Now()
			sink.OnNewFrame(device.Frame{Type: device.FrameTypeColor, Sequence: seq, CapturedAt: now, Color: color})
			sink.OnNewFrame(device.Frame{Type: device.FrameTypeDepth, Sequence: seq, CapturedAt: now, Depth: depth})
		}
	}, func() {
		dev.activeBackgroundWorkers.Done()
		close(done)
	})
	return nil
}

func (dev *Device) readPair() (*rimage.ColorImage, *rimage.DepthMap, error) {
	colorImg, releaseColor, err := dev.colorReader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "color")
	}
	color := rimage.ConvertToColorImage(colorImg)
	if releaseColor != nil {
		releaseColor()
	}

	depthImg, releaseDepth, err := dev.depthReader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "depth")
	}
	if releaseDepth != nil {
		defer releaseDepth()
	}
	gray, ok := depthImg.(*image.Gray16)
	if !ok {
		return nil, nil, errors.Errorf("depth stream produced %T, expected *image.Gray16", depthImg)
	}
	return color, rimage.ConvertGray16ToDepthMap(gray), nil
}

// Stop halts frame delivery. Drivers only return from a pending read once they are closed, so Stop
// closes both drivers and the device cannot be started again.
func (dev *Device) Stop(ctx context.Context) error {
	dev.mu.Lock()
	cancel, done := dev.cancel, dev.done
	dev.cancel = nil
	dev.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	err := dev.closeDrivers()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		return multierr.Combine(err, errors.Wrap(ctx.Err(), "frame reader did not stop"))
	}
}

// closeDrivers closes both drivers once. Only the call that closes them reports their errors.
func (dev *Device) closeDrivers() (err error) {
	dev.driversOnce.Do(func() {
		dev.mu.Lock()
		dev.driversClosed = true
		dev.mu.Unlock()
		err = multierr.Combine(dev.colorDriver.Close(), dev.depthDriver.Close())
	})
	return err
}

// Close stops the device and closes both drivers.
func (dev *Device) Close(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	err := multierr.Combine(dev.Stop(stopCtx), dev.closeDrivers())
	dev.activeBackgroundWorkers.Wait()
	return err
}
