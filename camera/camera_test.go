package camera

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"github.com/derpvision/procam/device"
	"github.com/derpvision/procam/device/fake"
	"github.com/derpvision/procam/logging"
	"github.com/derpvision/procam/rimage"
	"github.com/derpvision/procam/rimage/transform"
	"github.com/derpvision/procam/testutils/inject"
)

const testSerial = "003412"

var (
	testColorIntrinsics = transform.PinholeCameraIntrinsics{Width: 16, Height: 12, Fx: 20, Fy: 20, Ppx: 7.5, Ppy: 5.5}
	testDepthIntrinsics = transform.PinholeCameraIntrinsics{Width: 8, Height: 6, Fx: 10, Fy: 10, Ppx: 3.5, Ppy: 2.5}
	testDistortion      = transform.BrownConrady{RadialK1: 0.01, RadialK2: -0.002, TangentialP1: 0.0005}
)

// manualRig is a device whose frames are pushed by the test through the sink the camera starts it with.
type manualRig struct {
	dev     *inject.Device
	drv     *inject.Driver
	sinks   chan device.FrameSink
	stopped atomic.Bool
	closed  atomic.Int32
}

func newManualRig() *manualRig {
	rig := &manualRig{sinks: make(chan device.FrameSink, 1)}
	rig.dev = &inject.Device{
		SerialFunc:          func() string { return testSerial },
		ColorIntrinsicsFunc: func() transform.PinholeCameraIntrinsics { return testColorIntrinsics },
		DepthIntrinsicsFunc: func() transform.PinholeCameraIntrinsics { return testDepthIntrinsics },
		DepthDistortionFunc: func() transform.BrownConrady { return transform.BrownConrady{} },
		ExtrinsicsFunc:      func() *transform.DepthColorExtrinsics { return nil },
		StartFunc: func(ctx context.Context, sink device.FrameSink) error {
			rig.sinks <- sink
			return nil
		},
		// stopping never unblocks anything on its own
		StopFunc: func(ctx context.Context) error {
			rig.stopped.Store(true)
			return nil
		},
		CloseFunc: func(ctx context.Context) error {
			rig.closed.Inc()
			return nil
		},
	}
	rig.drv = &inject.Driver{
		EnumerateDevicesFunc: func(ctx context.Context) ([]string, error) {
			return []string{testSerial}, nil
		},
		OpenDeviceFunc: func(ctx context.Context, serial string, logger logging.Logger) (device.Device, error) {
			return rig.dev, nil
		},
	}
	return rig
}

func (rig *manualRig) open(t *testing.T, conf Config, logger logging.Logger) (*Camera, device.FrameSink) {
	t.Helper()
	cam, err := New(context.Background(), rig.drv, conf, logger)
	test.That(t, err, test.ShouldBeNil)
	return cam, <-rig.sinks
}

func uniformPair(depth rimage.Depth, c rimage.BGRX) (*rimage.ColorImage, *rimage.DepthMap) {
	color := rimage.NewColorImage(testColorIntrinsics.Width, testColorIntrinsics.Height)
	color.Fill(c)
	dm := rimage.NewEmptyDepthMap(testDepthIntrinsics.Width, testDepthIntrinsics.Height)
	dm.Fill(depth)
	return color, dm
}

func push(t *testing.T, sink device.FrameSink, seq uint64, color *rimage.ColorImage, depth *rimage.DepthMap) {
	t.Helper()
	test.That(t, sink.OnNewFrame(device.Frame{Type: device.FrameTypeColor, Sequence: seq, Color: color}), test.ShouldBeTrue)
	test.That(t, sink.OnNewFrame(device.Frame{Type: device.FrameTypeDepth, Sequence: seq, Depth: depth}), test.ShouldBeTrue)
}

// pushAndWait pushes one pair and waits for the camera to publish it.
func pushAndWait(t *testing.T, cam *Camera, sink device.FrameSink, seq uint64, depth rimage.Depth, c rimage.BGRX) uint64 {
	t.Helper()
	before := cam.FrameVersion()
	color, dm := uniformPair(depth, c)
	push(t, sink, seq, color, dm)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	version, err := cam.WaitForFrameAfter(ctx, before)
	test.That(t, err, test.ShouldBeNil)
	return version
}

func TestNewDeviceNotFound(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()

	opened := atomic.NewBool(false)
	drv := &inject.Driver{
		EnumerateDevicesFunc: func(ctx context.Context) ([]string, error) {
			return nil, nil
		},
		OpenDeviceFunc: func(ctx context.Context, serial string, logger logging.Logger) (device.Device, error) {
			opened.Store(true)
			return nil, errors.New("should not be called")
		},
	}
	_, err := New(ctx, drv, Config{}, logger)
	test.That(t, errors.Is(err, ErrDeviceNotFound), test.ShouldBeTrue)
	test.That(t, opened.Load(), test.ShouldBeFalse)

	drv.EnumerateDevicesFunc = func(ctx context.Context) ([]string, error) {
		return nil, errors.New("usb stack unavailable")
	}
	_, err = New(ctx, drv, Config{}, logger)
	test.That(t, errors.Is(err, ErrDeviceNotFound), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "usb stack unavailable")

	drv.EnumerateDevicesFunc = func(ctx context.Context) ([]string, error) {
		return []string{"000001"}, nil
	}
	_, err = New(ctx, drv, Config{Serial: "000002"}, logger)
	test.That(t, errors.Is(err, ErrDeviceNotFound), test.ShouldBeTrue)
	test.That(t, opened.Load(), test.ShouldBeFalse)
}

func TestNewOpenFailed(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()

	t.Run("driver refuses", func(t *testing.T) {
		cause := errors.New("device busy")
		drv, err := fake.NewDriver(fake.Config{Serials: []string{testSerial}, OpenErr: cause})
		test.That(t, err, test.ShouldBeNil)

		logPath := filepath.Join(t.TempDir(), "procam.log")
		_, err = New(ctx, drv, Config{LogFile: logPath}, logger)
		test.That(t, errors.Is(err, ErrDeviceOpenFailed), test.ShouldBeTrue)
		test.That(t, errors.Is(err, cause), test.ShouldBeTrue)
		var openErr *DeviceOpenError
		test.That(t, errors.As(err, &openErr), test.ShouldBeTrue)
		test.That(t, openErr.Serial, test.ShouldEqual, testSerial)

		contents, err := os.ReadFile(logPath)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(contents), test.ShouldContainSubstring, "cannot open device")
	})

	t.Run("start fails", func(t *testing.T) {
		rig := newManualRig()
		rig.dev.StartFunc = func(ctx context.Context, sink device.FrameSink) error {
			return errors.New("no bandwidth")
		}
		_, err := New(ctx, rig.drv, Config{}, logger)
		test.That(t, errors.Is(err, ErrDeviceOpenFailed), test.ShouldBeTrue)
		test.That(t, rig.closed.Load(), test.ShouldEqual, int32(1))
	})

	t.Run("bad calibration", func(t *testing.T) {
		rig := newManualRig()
		rig.dev.DepthIntrinsicsFunc = func() transform.PinholeCameraIntrinsics {
			return transform.PinholeCameraIntrinsics{Width: 8, Height: 6}
		}
		_, err := New(ctx, rig.drv, Config{}, logger)
		test.That(t, errors.Is(err, ErrDeviceOpenFailed), test.ShouldBeTrue)
		test.That(t, errors.Is(err, transform.ErrNoIntrinsics), test.ShouldBeTrue)
		test.That(t, rig.closed.Load(), test.ShouldEqual, int32(1))
	})

	t.Run("bad config", func(t *testing.T) {
		_, err := New(ctx, newManualRig().drv, Config{LogLevel: "loud"}, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrDeviceOpenFailed), test.ShouldBeFalse)
	})
}

func TestFrameVersionIncrementsOncePerCycle(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rig := newManualRig()
	cam, sink := rig.open(t, Config{}, logger)
	defer cam.Close(context.Background())

	test.That(t, cam.FrameVersion(), test.ShouldEqual, uint64(0))
	test.That(t, cam.Frames().Version, test.ShouldEqual, uint64(0))

	for i := uint64(1); i <= 5; i++ {
		version := pushAndWait(t, cam, sink, i, rimage.Depth(1000+i), rimage.NewBGRX(uint8(i), 0, 0))
		test.That(t, version, test.ShouldEqual, i)
		test.That(t, cam.FrameVersion(), test.ShouldEqual, i)
		test.That(t, cam.Frames().Version, test.ShouldEqual, i)
	}
	test.That(t, cam.Stats().FramesPublished, test.ShouldEqual, uint64(5))
}

func TestPublishedFramesAreConsistent(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rig := newManualRig()
	cam, sink := rig.open(t, Config{}, logger)
	defer cam.Close(context.Background())

	gray := rimage.NewBGRX(90, 90, 90)
	color, depth := uniformPair(1500, gray)
	depth.Set(2, 3, rimage.InvalidDepth)
	push(t, sink, 1, color, depth)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := cam.WaitForFrameAfter(ctx, 0)
	test.That(t, err, test.ShouldBeNil)

	first, second := cam.Frames(), cam.Frames()
	test.That(t, second, test.ShouldResemble, first)
	test.That(t, cam.ColorImage(), test.ShouldResemble, first.Color)
	test.That(t, cam.DepthImage(), test.ShouldResemble, first.Depth)
	test.That(t, cam.UndistortedColorImage(), test.ShouldResemble, first.UndistortedColor)
	test.That(t, cam.UndistortedDepthImage(), test.ShouldResemble, first.UndistortedDepth)

	test.That(t, first.Color.Width(), test.ShouldEqual, 16)
	test.That(t, first.Depth.Width(), test.ShouldEqual, 16)
	test.That(t, first.UndistortedColor.Width(), test.ShouldEqual, 8)
	test.That(t, first.UndistortedDepth.Width(), test.ShouldEqual, 8)
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			if x == 2 && y == 3 {
				test.That(t, first.UndistortedColor.GetXY(x, y), test.ShouldResemble, rimage.InvalidColor)
				continue
			}
			test.That(t, first.UndistortedColor.GetXY(x, y), test.ShouldResemble, gray)
			test.That(t, first.UndistortedDepth.GetDepth(x, y), test.ShouldEqual, rimage.Depth(1500))
		}
	}

	// copies are independent of the store
	first.Color.Fill(rimage.InvalidColor)
	test.That(t, cam.ColorImage().GetXY(0, 0), test.ShouldResemble, gray)
}

func TestConcurrentConsumers(t *testing.T) {
	const cycles = 100
	logger := logging.NewTestLogger(t)
	logger.SetLevel(logging.INFO)
	rig := newManualRig()
	cam, sink := rig.open(t, Config{}, logger)
	defer cam.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var eg errgroup.Group
	for i := 0; i < 3; i++ {
		eg.Go(func() error {
			var last uint64
			for last < cycles {
				version, err := cam.WaitForFrameAfter(ctx, last)
				if err != nil {
					return err
				}
				if version <= last {
					return errors.Errorf("wait returned %d after observing %d", version, last)
				}
				frames := cam.Frames()
				if frames.Version < version {
					return errors.Errorf("read version %d older than woken version %d", frames.Version, version)
				}
				// every image of a snapshot belongs to the same cycle
				if got := frames.Color.GetXY(0, 0)[2]; got != uint8(frames.Version) {
					return errors.Errorf("color from cycle %d in snapshot %d", got, frames.Version)
				}
				if got := frames.UndistortedDepth.GetDepth(0, 0); got != rimage.Depth(1000+frames.Version) {
					return errors.Errorf("depth %v in snapshot %d", got, frames.Version)
				}
				last = version
			}
			return nil
		})
	}

	for i := uint64(1); i <= cycles; i++ {
		pushAndWait(t, cam, sink, i, rimage.Depth(1000+i), rimage.NewBGRX(uint8(i), 0, 0))
	}
	test.That(t, eg.Wait(), test.ShouldBeNil)
	test.That(t, cam.FrameVersion(), test.ShouldEqual, uint64(cycles))
}

func TestWaitForFreshFrame(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rig := newManualRig()
	cam, sink := rig.open(t, Config{}, logger)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cam.WaitForFreshFrame(cancelled)
	test.That(t, err, test.ShouldBeError, context.Canceled)

	woken := make(chan uint64, 1)
	utils.PanicCapturingGo(func() {
		version, err := cam.WaitForFreshFrame(context.Background())
		if err != nil {
			close(woken)
			return
		}
		woken <- version
	})
	// the waiter must not be satisfied by the version current at entry
	time.Sleep(10 * time.Millisecond)
	select {
	case <-woken:
		t.Fatal("waiter returned without a new frame")
	default:
	}
	color, depth := uniformPair(800, rimage.NewBGRX(1, 2, 3))
	push(t, sink, 1, color, depth)
	select {
	case version := <-woken:
		test.That(t, version, test.ShouldEqual, uint64(1))
		test.That(t, cam.Frames().Version, test.ShouldBeGreaterThanOrEqualTo, version)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken")
	}

	// already newer than the observed version
	version, err := cam.WaitForFrameAfter(context.Background(), 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, version, test.ShouldEqual, uint64(1))

	pending := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := cam.WaitForFreshFrame(context.Background())
		pending <- err
	})
	time.Sleep(10 * time.Millisecond)
	test.That(t, cam.Close(context.Background()), test.ShouldBeNil)
	select {
	case err := <-pending:
		test.That(t, err, test.ShouldBeError, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not released by Close")
	}
}

func TestCloseUnblocksIdleLoop(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rig := newManualRig()
	cam, _ := rig.open(t, Config{}, logger)

	done := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		done <- cam.Close(context.Background())
	})
	select {
	case err := <-done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not join the acquisition loop")
	}
	test.That(t, rig.stopped.Load(), test.ShouldBeTrue)
	test.That(t, rig.closed.Load(), test.ShouldEqual, int32(1))

	test.That(t, cam.Close(context.Background()), test.ShouldBeNil)
	test.That(t, rig.closed.Load(), test.ShouldEqual, int32(1))

	_, err := cam.Undistort(uniformPair(1000, rimage.NewBGRX(1, 1, 1)))
	test.That(t, err, test.ShouldBeError, transform.ErrRegistrationClosed)
}

func TestCloseCombinesErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rig := newManualRig()
	rig.dev.StopFunc = func(ctx context.Context) error { return errors.New("stop failed") }
	rig.dev.CloseFunc = func(ctx context.Context) error { return errors.New("close failed") }
	cam, _ := rig.open(t, Config{}, logger)

	err := cam.Close(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "stop failed")
	test.That(t, err.Error(), test.ShouldContainSubstring, "close failed")
	test.That(t, cam.Close(context.Background()), test.ShouldEqual, err)
}

func TestRegistrationFailureStopsLoop(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	rig := newManualRig()
	cam, sink := rig.open(t, Config{}, logger)
	defer cam.Close(context.Background())

	good := pushAndWait(t, cam, sink, 1, 1000, rimage.NewBGRX(5, 5, 5))
	test.That(t, good, test.ShouldEqual, uint64(1))

	push(t, sink, 2, rimage.NewColorImage(4, 4), rimage.NewEmptyDepthMap(8, 6))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for cam.Err() == nil {
		select {
		case <-ctx.Done():
			t.Fatal("acquisition loop did not stop")
		case <-time.After(time.Millisecond):
		}
	}
	test.That(t, errors.Is(cam.Err(), transform.ErrFrameSizeMismatch), test.ShouldBeTrue)
	test.That(t, logs.FilterMessage("cannot register frames, stopping acquisition").Len(), test.ShouldEqual, 1)

	// nothing half written
	frames := cam.Frames()
	test.That(t, frames.Version, test.ShouldEqual, uint64(1))
	test.That(t, frames.Color.GetXY(3, 3), test.ShouldResemble, rimage.NewBGRX(5, 5, 5))
	test.That(t, cam.FrameVersion(), test.ShouldEqual, uint64(1))
}

func TestParameters(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rig := newManualRig()
	rig.dev.DepthDistortionFunc = func() transform.BrownConrady { return testDistortion }
	cam, _ := rig.open(t, Config{}, logger)
	defer cam.Close(context.Background())

	params := cam.Parameters()
	test.That(t, cam.Parameters(), test.ShouldResemble, params)
	test.That(t, params.Color, test.ShouldResemble, testColorIntrinsics)
	test.That(t, params.Depth, test.ShouldResemble, testDepthIntrinsics)
	test.That(t, params.DistortionCoefficients(), test.ShouldResemble, [5]float64{0.01, -0.002, 0.0005, 0, 0})
	test.That(t, params.ColorCameraMatrix().At(0, 2), test.ShouldEqual, 7.5)
	test.That(t, params.DepthCameraMatrix().At(1, 1), test.ShouldEqual, 10.)
	test.That(t, cam.Serial(), test.ShouldEqual, testSerial)
}

func TestUndistort(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rig := newManualRig()
	cam, _ := rig.open(t, Config{}, logger)
	defer cam.Close(context.Background())

	pattern := rimage.NewBGRX(255, 255, 255)
	registered, err := cam.Undistort(uniformPair(600, pattern))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, registered.Width(), test.ShouldEqual, 8)
	test.That(t, registered.GetXY(4, 4), test.ShouldResemble, pattern)

	_, err = cam.Undistort(rimage.NewColorImage(3, 3), rimage.NewEmptyDepthMap(8, 6))
	test.That(t, errors.Is(err, transform.ErrFrameSizeMismatch), test.ShouldBeTrue)
}

func TestMapDepthPixel(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rig := newManualRig()
	cam, _ := rig.open(t, Config{}, logger)

	p, ok := cam.MapDepthPixel(3.5, 2.5, 900)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.X, test.ShouldAlmostEqual, 7.5)
	test.That(t, p.Y, test.ShouldAlmostEqual, 5.5)
	_, ok = cam.MapDepthPixel(3.5, 2.5, rimage.InvalidDepth)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, cam.Close(context.Background()), test.ShouldBeNil)

	// with a lens model the raw pixel is undistorted before projecting
	rig = newManualRig()
	rig.dev.DepthDistortionFunc = func() transform.BrownConrady { return testDistortion }
	cam, _ = rig.open(t, Config{}, logger)
	defer cam.Close(context.Background())

	distortion := testDistortion
	lens := transform.PinholeCameraModel{PinholeCameraIntrinsics: &testDepthIntrinsics, Distortion: &distortion}
	rx, ry := lens.DistortionMap()(2, 3)
	p, ok = cam.MapDepthPixel(rx, ry, 1200)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.X, test.ShouldAlmostEqual, 4.5, 1e-6)
	test.That(t, p.Y, test.ShouldAlmostEqual, 6.5, 1e-6)
}

func TestStats(t *testing.T) {
	logger := logging.NewTestLogger(t)
	clk := clock.NewMock()
	rig := newManualRig()
	cam, sink := rig.open(t, Config{Clock: clk, StatsWindow: 4}, logger)
	defer cam.Close(context.Background())

	test.That(t, cam.Stats(), test.ShouldResemble, Stats{})

	for i, gap := range []time.Duration{0, 30, 30, 40, 40, 40} {
		clk.Add(gap * time.Millisecond)
		pushAndWait(t, cam, sink, uint64(i+1), 1000, rimage.NewBGRX(1, 1, 1))
	}
	stats := cam.Stats()
	test.That(t, stats.FramesPublished, test.ShouldEqual, uint64(6))
	test.That(t, stats.LastFrameAt, test.ShouldEqual, clk.Now())
	// window of four: 30, 40, 40, 40
	test.That(t, stats.MeanInterval, test.ShouldEqual, 37500*time.Microsecond)
	test.That(t, stats.StdDevInterval, test.ShouldBeGreaterThan, 0)

	// a lone color frame superseded by a later cycle is dropped
	color, depth := uniformPair(1000, rimage.NewBGRX(1, 1, 1))
	test.That(t, sink.OnNewFrame(device.Frame{Type: device.FrameTypeColor, Sequence: 7, Color: color}), test.ShouldBeTrue)
	push(t, sink, 8, color, depth)
	test.That(t, cam.Stats().FramesDropped, test.ShouldEqual, uint64(1))
}

func TestFakeDriverSession(t *testing.T) {
	logger := logging.NewTestLogger(t)
	clk := clock.NewMock()
	drv, err := fake.NewDriver(fake.Config{
		Serials:     []string{"A", "B"},
		ColorWidth:  64,
		ColorHeight: 36,
		DepthWidth:  32,
		DepthHeight: 24,
		FrameRate:   25,
		Clock:       clk,
	})
	test.That(t, err, test.ShouldBeNil)

	logPath := filepath.Join(t.TempDir(), "session.log")
	cam, err := New(context.Background(), drv, Config{Serial: "B", LogFile: logPath, LogLevel: "info", Clock: clk}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cam.Serial(), test.ShouldEqual, "B")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var version uint64
	for version < 3 {
		clk.Add(40 * time.Millisecond)
		waitCtx, waitCancel := context.WithTimeout(ctx, 100*time.Millisecond)
		v, err := cam.WaitForFrameAfter(waitCtx, version)
		waitCancel()
		if err == nil {
			version = v
			continue
		}
		test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
		test.That(t, ctx.Err(), test.ShouldBeNil)
	}

	frames := cam.Frames()
	test.That(t, frames.Depth.Width(), test.ShouldEqual, 64)
	test.That(t, frames.UndistortedDepth.Height(), test.ShouldEqual, 24)
	// the principal point survives undistortion and lands on the color grid
	center := frames.UndistortedDepth.GetDepth(16, 12)
	test.That(t, center, test.ShouldEqual, rimage.Depth(1000))
	test.That(t, frames.Depth.GetDepth(32, 18), test.ShouldEqual, rimage.Depth(1000))

	test.That(t, cam.Close(context.Background()), test.ShouldBeNil)
	contents, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "camera started")
	test.That(t, string(contents), test.ShouldContainSubstring, "camera closed")
	test.That(t, string(contents), test.ShouldNotContainSubstring, "published frame")
}
