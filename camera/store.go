package camera

import (
	"sync"

	"github.com/derpvision/procam/device"
	"github.com/derpvision/procam/rimage"
	"github.com/derpvision/procam/rimage/transform"
)

// Frames is one published set of images. Every image comes from the acquisition cycle Version.
type Frames struct {
	Version uint64
	// Color is the raw color image.
	Color *rimage.ColorImage
	// Depth is the depth registered onto the color grid.
	Depth *rimage.DepthMap
	// UndistortedColor is the color registered onto the undistorted depth grid.
	UndistortedColor *rimage.ColorImage
	// UndistortedDepth is the depth with the lens distortion removed, on the depth grid.
	UndistortedDepth *rimage.DepthMap
}

// frameStore holds the most recent outputs of the acquisition loop. Only the loop writes.
type frameStore struct {
	mu               sync.RWMutex
	version          uint64
	color            *rimage.ColorImage
	depth            *rimage.DepthMap
	undistortedColor *rimage.ColorImage
	undistortedDepth *rimage.DepthMap
}

func newFrameStore(color, depth transform.PinholeCameraIntrinsics) *frameStore {
	return &frameStore{
		color:            rimage.NewColorImage(color.Width, color.Height),
		depth:            rimage.NewEmptyDepthMap(color.Width, color.Height),
		undistortedColor: rimage.NewColorImage(depth.Width, depth.Height),
		undistortedDepth: rimage.NewEmptyDepthMap(depth.Width, depth.Height),
	}
}

// publish registers set straight into the store buffers and stamps them with version. The registration
// validates sizes before writing, so a failed publish leaves the previous frames intact.
func (s *frameStore) publish(set device.FrameSet, reg *transform.Registration, version uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := reg.Apply(set.Color, set.Depth, s.undistortedDepth, s.undistortedColor, s.depth); err != nil {
		return err
	}
	if err := s.color.CopyFrom(set.Color); err != nil {
		return err
	}
	s.version = version
	return nil
}

func (s *frameStore) snapshot() Frames {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Frames{
		Version:          s.version,
		Color:            s.color.Clone(),
		Depth:            s.depth.Clone(),
		UndistortedColor: s.undistortedColor.Clone(),
		UndistortedDepth: s.undistortedDepth.Clone(),
	}
}

func (s *frameStore) colorImage() (*rimage.ColorImage, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color.Clone(), s.version
}

func (s *frameStore) depthImage() (*rimage.DepthMap, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.depth.Clone(), s.version
}

func (s *frameStore) undistortedColorImage() (*rimage.ColorImage, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.undistortedColor.Clone(), s.version
}

func (s *frameStore) undistortedDepthImage() (*rimage.DepthMap, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.undistortedDepth.Clone(), s.version
}
