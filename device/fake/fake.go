// Package fake implements a synthetic color+depth sensor that renders uniform or gradient frames at a fixed rate.
package fake

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/derpvision/procam/device"
	"github.com/derpvision/procam/logging"
	"github.com/derpvision/procam/rimage"
	"github.com/derpvision/procam/rimage/transform"
)

// Frame patterns.
const (
	PatternUniform  = "uniform"
	PatternGradient = "gradient"
)

const (
	defaultDepth     = 1000
	defaultFrameRate = 30
)

var defaultColorIntrinsics = transform.PinholeCameraIntrinsics{
	Width:  1920,
	Height: 1080,
	Fx:     1081.37,
	Fy:     1081.37,
	Ppx:    959.5,
	Ppy:    539.5,
}

var defaultDepthIntrinsics = transform.PinholeCameraIntrinsics{
	Width:  512,
	Height: 424,
	Fx:     365.456,
	Fy:     365.456,
	Ppx:    254.878,
	Ppy:    205.395,
}

var defaultDistortion = transform.BrownConrady{
	RadialK1: 0.0905474,
	RadialK2: -0.26819,
	RadialK3: 0.0950862,
}

// Config are the attributes of the fake driver.
type Config struct {
	Serials     []string `json:"serials"`
	ColorWidth  int      `json:"color_width_px,omitempty"`
	ColorHeight int      `json:"color_height_px,omitempty"`
	DepthWidth  int      `json:"depth_width_px,omitempty"`
	DepthHeight int      `json:"depth_height_px,omitempty"`
	FrameRate   float64  `json:"frame_rate,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	// DepthMM is the depth every pixel reports in the uniform pattern.
	DepthMM float64 `json:"depth_mm,omitempty"`
	// Undistorted disables the default depth lens model.
	Undistorted bool `json:"undistorted,omitempty"`

	// OpenErr, when set, is returned by every OpenDevice call.
	OpenErr error       `json:"-"`
	Clock   clock.Clock `json:"-"`
}

// Validate checks that the config attributes are valid for a fake driver.
func (conf *Config) Validate(path string) error {
	for _, dim := range []int{conf.ColorWidth, conf.ColorHeight, conf.DepthWidth, conf.DepthHeight} {
		if dim < 0 {
			return errors.Errorf("%s: resolutions must not be negative, got %d", path, dim)
		}
	}
	if conf.FrameRate < 0 {
		return errors.Errorf("%s: frame_rate must not be negative, got %.2f", path, conf.FrameRate)
	}
	switch conf.Pattern {
	case "", PatternUniform, PatternGradient:
	default:
		return errors.Errorf("%s: unknown pattern %q", path, conf.Pattern)
	}
	if conf.DepthMM < 0 {
		return errors.Errorf("%s: depth_mm must not be negative, got %.2f", path, conf.DepthMM)
	}
	return nil
}

// Driver enumerates and opens fake devices.
type Driver struct {
	conf Config
}

// NewDriver returns a fake driver.
func NewDriver(conf Config) (*Driver, error) {
	if err := conf.Validate("fake"); err != nil {
		return nil, err
	}
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	return &Driver{conf: conf}, nil
}

// EnumerateDevices returns the configured serials.
func (d *Driver) EnumerateDevices(ctx context.Context) ([]string, error) {
	return slices.Clone(d.conf.Serials), nil
}

// OpenDevice opens the fake device with the given serial.
func (d *Driver) OpenDevice(ctx context.Context, serial string, logger logging.Logger) (device.Device, error) {
	if !slices.Contains(d.conf.Serials, serial) {
		return nil, errors.Errorf("no fake device with serial %q", serial)
	}
	if d.conf.OpenErr != nil {
		return nil, d.conf.OpenErr
	}
	dev := &Device{
		serial: serial,
		conf:   d.conf,
		color:  scaleIntrinsics(defaultColorIntrinsics, d.conf.ColorWidth, d.conf.ColorHeight),
		depth:  scaleIntrinsics(defaultDepthIntrinsics, d.conf.DepthWidth, d.conf.DepthHeight),
		logger: logger,
	}
	if !d.conf.Undistorted {
		dev.distortion = defaultDistortion
	}
	logger.Debugw("opened fake device", "serial", serial, "color", dev.color, "depth", dev.depth)
	return dev, nil
}

func scaleIntrinsics(base transform.PinholeCameraIntrinsics, width, height int) transform.PinholeCameraIntrinsics {
	if width <= 0 || height <= 0 {
		return base
	}
	widthRatio := float64(width) / float64(base.Width)
	heightRatio := float64(height) / float64(base.Height)
	return transform.PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     base.Fx * widthRatio,
		Fy:     base.Fy * heightRatio,
		Ppx:    base.Ppx * widthRatio,
		Ppy:    base.Ppy * heightRatio,
	}
}

// Device is a fake color+depth sensor.
type Device struct {
	serial     string
	conf       Config
	color      transform.PinholeCameraIntrinsics
	depth      transform.PinholeCameraIntrinsics
	distortion transform.BrownConrady
	logger     logging.Logger

	mu                      sync.Mutex
	cancel                  func()
	closed                  bool
	activeBackgroundWorkers sync.WaitGroup
}

// Serial returns the serial the device was opened with.
func (dev *Device) Serial() string { return dev.serial }

// ColorIntrinsics returns the color sensor intrinsics.
func (dev *Device) ColorIntrinsics() transform.PinholeCameraIntrinsics { return dev.color }

// DepthIntrinsics returns the depth sensor intrinsics.
func (dev *Device) DepthIntrinsics() transform.PinholeCameraIntrinsics { return dev.depth }

// DepthDistortion returns the depth lens model.
func (dev *Device) DepthDistortion() transform.BrownConrady { return dev.distortion }

// Extrinsics returns nil; the fake sensors share an optical center.
func (dev *Device) Extrinsics() *transform.DepthColorExtrinsics { return nil }

// Start renders a frame pair every frame period until Stop.
func (dev *Device) Start(ctx context.Context, sink device.FrameSink) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.closed {
		return errors.New("fake device is closed")
	}
	if dev.cancel != nil {
		return errors.New("fake device already started")
	}

	rate := dev.conf.FrameRate
	if rate == 0 {
		rate = defaultFrameRate
	}
	period := time.Duration(float64(time.Second) / rate)
	ticker := dev.conf.Clock.Ticker(period)

	cancelCtx, cancel := context.WithCancel(context.Background())
	dev.cancel = cancel
	dev.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer dev.activeBackgroundWorkers.Done()
		defer ticker.Stop()
		var seq uint64
		for {
			select {
			case <-cancelCtx.Done():
				return
			case now := <-ticker.C:
				seq++
				color, depth := dev.render(seq)
				sink.OnNewFrame(device.Frame{Type: device.FrameTypeColor, Sequence: seq, CapturedAt: now, Color: color})
				sink.OnNewFrame(device.Frame{Type: device.FrameTypeDepth, Sequence: seq, CapturedAt: now, Depth: depth})
			}
		}
	})
	return nil
}

func (dev *Device) render(seq uint64) (*rimage.ColorImage, *rimage.DepthMap) {
	color := rimage.NewColorImage(dev.color.Width, dev.color.Height)
	depth := rimage.NewEmptyDepthMap(dev.depth.Width, dev.depth.Height)
	base := dev.conf.DepthMM
	if base == 0 {
		base = defaultDepth
	}

	if dev.conf.Pattern != PatternGradient {
		color.Fill(rimage.NewBGRX(128, 128, 128))
		depth.Fill(rimage.Depth(base))
		return color, depth
	}

	// hue sweeps across the frame and drifts with the sequence number
	for x := 0; x < color.Width(); x++ {
		hue := math.Mod(float64(x)*360/float64(color.Width())+float64(seq), 360)
		r, g, b := colorful.Hsv(hue, 1, 1).RGB255()
		c := rimage.NewBGRX(r, g, b)
		for y := 0; y < color.Height(); y++ {
			color.SetXY(x, y, c)
		}
	}
	for y := 0; y < depth.Height(); y++ {
		for x := 0; x < depth.Width(); x++ {
			depth.Set(x, y, rimage.Depth(base+float64(y)))
		}
	}
	return color, depth
}

// Stop halts frame delivery and waits for the render goroutine to exit.
func (dev *Device) Stop(ctx context.Context) error {
	dev.mu.Lock()
	cancel := dev.cancel
	dev.cancel = nil
	dev.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	dev.activeBackgroundWorkers.Wait()
	return nil
}

// Close stops the device and releases it.
func (dev *Device) Close(ctx context.Context) error {
	err := dev.Stop(ctx)
	dev.mu.Lock()
	dev.closed = true
	dev.mu.Unlock()
	return err
}
