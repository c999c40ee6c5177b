// Package main opens one color+depth sensor, waits for a number of fresh frames and optionally
// writes snapshots of the last one.
package main

import (
	"context"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/derpvision/procam/camera"
	"github.com/derpvision/procam/config"
	"github.com/derpvision/procam/device"
	"github.com/derpvision/procam/device/fake"
	"github.com/derpvision/procam/device/mediadevices"
	"github.com/derpvision/procam/logging"
	"github.com/derpvision/procam/rimage"
)

var logger = logging.NewLogger("procam")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"config,usage=session config file; a fake sensor is used when empty"`
	Frames     int    `flag:"frames,default=30,usage=number of fresh frames to wait for"`
	OutputDir  string `flag:"output,usage=directory to write snapshots of the last frame to"`
	Debug      bool   `flag:"debug,usage=enable debug logging"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Debug {
		logger.SetLevel(logging.DEBUG)
	}

	cfg := &config.Config{
		Driver: config.DriverConfig{Type: "fake", Attributes: config.AttributeMap{"serials": []interface{}{"fake-0"}}},
		Camera: config.AttributeMap{},
	}
	if argsParsed.ConfigFile != "" {
		if cfg, err = config.Read(ctx, argsParsed.ConfigFile, logger); err != nil {
			return err
		}
	}

	driver, err := newDriver(cfg.Driver)
	if err != nil {
		return err
	}
	var camConf camera.Config
	if err := config.Decode("camera", cfg.Camera, &camConf); err != nil {
		return err
	}

	cam, err := camera.New(ctx, driver, camConf, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, cam.Close(context.Background()))
	}()

	return capture(ctx, cam, argsParsed.Frames, argsParsed.OutputDir, logger)
}

func newDriver(conf config.DriverConfig) (device.Driver, error) {
	switch conf.Type {
	case "fake":
		var attrs fake.Config
		if err := config.Decode("driver.attributes", conf.Attributes, &attrs); err != nil {
			return nil, err
		}
		return fake.NewDriver(attrs)
	case "mediadevices":
		var attrs mediadevices.Config
		if err := config.Decode("driver.attributes", conf.Attributes, &attrs); err != nil {
			return nil, err
		}
		return mediadevices.NewDriver(attrs)
	default:
		return nil, errors.Errorf("unknown driver type %q", conf.Type)
	}
}

func capture(ctx context.Context, cam *camera.Camera, frames int, outputDir string, logger logging.Logger) error {
	utils.ContextMainReadyFunc(ctx)()
	var version uint64
	for version < uint64(frames) {
		v, err := cam.WaitForFrameAfter(ctx, version)
		if err != nil {
			return err
		}
		version = v
	}

	stats := cam.Stats()
	logger.Infow("captured frames",
		"serial", cam.Serial(),
		"version", version,
		"dropped", stats.FramesDropped,
		"mean_interval", stats.MeanInterval,
		"stddev_interval", stats.StdDevInterval)

	if outputDir == "" {
		return nil
	}
	return writeSnapshots(cam.Frames(), outputDir, logger)
}

func writeSnapshots(frames camera.Frames, outputDir string, logger logging.Logger) error {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return errors.Wrapf(err, "cannot create %q", outputDir)
	}
	snapshots := []struct {
		name string
		img  image.Image
	}{
		{"color.ppm", frames.Color},
		{"depth.png", frames.Depth.ToPrettyPicture(0, 0)},
		{"undistorted_color.ppm", frames.UndistortedColor},
		{"undistorted_depth.png", frames.UndistortedDepth.ToPrettyPicture(0, 0)},
	}
	for _, snap := range snapshots {
		path := filepath.Join(outputDir, snap.name)
		if err := rimage.WriteImageToFile(path, snap.img); err != nil {
			return err
		}
		logger.Debugw("wrote snapshot", "path", path, "version", frames.Version)
	}
	return nil
}
