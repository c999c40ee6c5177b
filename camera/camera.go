// Package camera runs the acquisition pipeline of one color+depth sensor. A Camera owns the device, a
// background loop that registers every color/depth pair the device delivers, and the store consumers
// read the latest registered frames from.
package camera

import (
	"context"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/derpvision/procam/device"
	"github.com/derpvision/procam/logging"
	"github.com/derpvision/procam/rimage"
	"github.com/derpvision/procam/rimage/transform"
)

// Camera is an open session with one sensor. All methods are safe for concurrent use.
type Camera struct {
	serial       string
	dev          device.Device
	listener     *device.SyncFrameListener
	registration *transform.Registration
	store        *frameStore
	fresh        *freshness
	stats        *statsTracker

	logger  logging.Logger
	logFile *logging.FileAppender

	running                 atomic.Bool
	loopErr                 atomic.Error
	cancelCtx               context.Context
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// New opens a device through driver and starts acquiring frames from it. It fails with
// ErrDeviceNotFound when the driver reports no device (or not the configured one) and with an
// error matching ErrDeviceOpenFailed when the device cannot be brought up; in both cases
// everything acquired so far has been released.
func New(ctx context.Context, driver device.Driver, conf Config, logger logging.Logger) (_ *Camera, err error) {
	if err := conf.Validate("camera"); err != nil {
		return nil, err
	}

	logger = logger.Sublogger("procam")
	if conf.LogLevel != "" {
		level, err := logging.LevelFromString(conf.LogLevel)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}
	var logFile *logging.FileAppender
	if conf.LogFile != "" {
		logFile = logging.NewFileAppender(conf.LogFile, conf.LogMaxSizeMB)
		logger.AddAppender(logFile)
		defer func() {
			if err != nil {
				err = multierr.Combine(err, logFile.Close())
			}
		}()
	}

	serial, err := selectDevice(ctx, driver, conf.Serial)
	if err != nil {
		logger.Errorw("cannot find device", "error", err)
		return nil, err
	}

	dev, err := driver.OpenDevice(ctx, serial, logger.Sublogger(serial))
	if err != nil {
		logger.Errorw("cannot open device", "serial", serial, "error", err)
		return nil, &DeviceOpenError{Serial: serial, Cause: err}
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, dev.Close(ctx))
		}
	}()

	colorIntrinsics, depthIntrinsics := dev.ColorIntrinsics(), dev.DepthIntrinsics()
	distortion := dev.DepthDistortion()
	reg, err := transform.NewRegistration(
		&depthIntrinsics, &distortion, &colorIntrinsics, dev.Extrinsics(), conf.registrationOptions())
	if err != nil {
		return nil, &DeviceOpenError{Serial: serial, Cause: err}
	}

	clk := conf.Clock
	if clk == nil {
		clk = clock.New()
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	c := &Camera{
		serial:       serial,
		dev:          dev,
		listener:     device.NewSyncFrameListener(),
		registration: reg,
		store:        newFrameStore(colorIntrinsics, depthIntrinsics),
		fresh:        newFreshness(),
		stats:        newStatsTracker(clk, conf.statsWindow()),
		logger:       logger,
		logFile:      logFile,
		cancelCtx:    cancelCtx,
		cancel:       cancel,
	}

	if err := dev.Start(ctx, c.listener); err != nil {
		c.listener.Close()
		cancel()
		return nil, multierr.Combine(&DeviceOpenError{Serial: serial, Cause: err}, reg.Close())
	}

	c.running.Store(true)
	c.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(c.acquire)

	logger.Infow("camera started",
		"serial", serial,
		"color", []int{colorIntrinsics.Width, colorIntrinsics.Height},
		"depth", []int{depthIntrinsics.Width, depthIntrinsics.Height})
	return c, nil
}

func selectDevice(ctx context.Context, driver device.Driver, want string) (string, error) {
	serials, err := driver.EnumerateDevices(ctx)
	if err != nil {
		return "", errors.Wrapf(ErrDeviceNotFound, "cannot enumerate devices: %v", err)
	}
	if len(serials) == 0 {
		return "", ErrDeviceNotFound
	}
	if want == "" {
		return serials[0], nil
	}
	if !slices.Contains(serials, want) {
		return "", errors.Wrapf(ErrDeviceNotFound, "serial %q not among %v", want, serials)
	}
	return want, nil
}

// acquire registers and publishes frame pairs until the camera is closed or registration fails.
func (c *Camera) acquire() {
	defer c.activeBackgroundWorkers.Done()

	var version uint64
	for c.running.Load() {
		set, err := c.listener.WaitForNewFrame(c.cancelCtx)
		if err != nil {
			if !errors.Is(err, device.ErrListenerClosed) && !errors.Is(err, context.Canceled) {
				c.logger.Errorw("frame listener failed", "error", err)
				c.loopErr.Store(err)
			}
			return
		}

		version++
		err = c.store.publish(set, c.registration, version)
		c.listener.Release(set)
		if err != nil {
			c.logger.Errorw("cannot register frames, stopping acquisition", "sequence", set.Sequence, "error", err)
			c.loopErr.Store(err)
			c.running.Store(false)
			return
		}

		c.fresh.advance(version)
		c.stats.record()
		c.logger.Debugw("published frame", "version", version, "sequence", set.Sequence)
	}
}

// Serial returns the serial of the opened device.
func (c *Camera) Serial() string {
	return c.serial
}

// ColorImage returns a copy of the latest raw color image.
func (c *Camera) ColorImage() *rimage.ColorImage {
	img, _ := c.store.colorImage()
	return img
}

// DepthImage returns a copy of the latest depth image registered onto the color grid.
func (c *Camera) DepthImage() *rimage.DepthMap {
	img, _ := c.store.depthImage()
	return img
}

// UndistortedColorImage returns a copy of the latest color image registered onto the undistorted depth grid.
func (c *Camera) UndistortedColorImage() *rimage.ColorImage {
	img, _ := c.store.undistortedColorImage()
	return img
}

// UndistortedDepthImage returns a copy of the latest depth image with lens distortion removed.
func (c *Camera) UndistortedDepthImage() *rimage.DepthMap {
	img, _ := c.store.undistortedDepthImage()
	return img
}

// Frames returns copies of all the latest images, taken together.
func (c *Camera) Frames() Frames {
	return c.store.snapshot()
}

// FrameVersion returns how many frames have been published.
func (c *Camera) FrameVersion() uint64 {
	return c.fresh.current()
}

// WaitForFreshFrame blocks until a frame newer than the one current at the time of the call is
// published and returns its version. Images read afterwards are at least that new.
func (c *Camera) WaitForFreshFrame(ctx context.Context) (uint64, error) {
	return c.fresh.waitAfter(ctx, c.fresh.current())
}

// WaitForFrameAfter blocks until a frame with a version greater than observed is published.
func (c *Camera) WaitForFrameAfter(ctx context.Context, observed uint64) (uint64, error) {
	return c.fresh.waitAfter(ctx, observed)
}

// Parameters returns the device calibration.
func (c *Camera) Parameters() Parameters {
	return Parameters{
		Color:           c.dev.ColorIntrinsics(),
		Depth:           c.dev.DepthIntrinsics(),
		DepthDistortion: c.dev.DepthDistortion(),
	}
}

// Undistort registers a caller supplied color image onto the undistorted depth grid using depth.
func (c *Camera) Undistort(color *rimage.ColorImage, depth *rimage.DepthMap) (*rimage.ColorImage, error) {
	_, registered, _, err := c.registration.Undistort(color, depth)
	if err != nil {
		return nil, err
	}
	return registered, nil
}

// MapDepthPixel maps a pixel of the raw depth image with depth z to sub-pixel color image coordinates.
// ok is false for invalid depth or points that do not land in front of the color sensor.
func (c *Camera) MapDepthPixel(x, y float64, z rimage.Depth) (r2.Point, bool) {
	return c.registration.MapRawDepthPixel(x, y, z)
}

// Stats returns acquisition counters.
func (c *Camera) Stats() Stats {
	return c.stats.snapshot(c.listener.Dropped())
}

// Err returns the error that stopped acquisition, if any.
func (c *Camera) Err() error {
	return c.loopErr.Load()
}

// Close stops the device, joins the acquisition loop and releases the device. Pending waits return
// ErrClosed. Close is idempotent.
func (c *Camera) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.close(ctx)
	})
	return c.closeErr
}

func (c *Camera) close(ctx context.Context) error {
	c.running.Store(false)
	err := errors.Wrap(c.dev.Stop(ctx), "cannot stop device")
	c.listener.Close()
	c.cancel()
	c.activeBackgroundWorkers.Wait()
	c.fresh.close()

	err = multierr.Combine(
		err,
		c.registration.Close(),
		errors.Wrap(c.dev.Close(ctx), "cannot close device"),
	)
	c.logger.Infow("camera closed", "serial", c.serial, "frames", c.stats.snapshot(c.listener.Dropped()).FramesPublished)
	if c.logFile != nil {
		err = multierr.Combine(err, c.logFile.Close())
	}
	return err
}
