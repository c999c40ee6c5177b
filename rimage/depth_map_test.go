package rimage

import (
	"image"
	"image/color"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDepthValid(t *testing.T) {
	test.That(t, Depth(1).Valid(), test.ShouldBeTrue)
	test.That(t, InvalidDepth.Valid(), test.ShouldBeFalse)
	test.That(t, Depth(-3).Valid(), test.ShouldBeFalse)
	test.That(t, Depth(math.NaN()).Valid(), test.ShouldBeFalse)
	test.That(t, Depth(math.Inf(1)).Valid(), test.ShouldBeFalse)
}

func TestDepthMapAccess(t *testing.T) {
	dm := NewEmptyDepthMap(3, 2)
	test.That(t, dm.Samples(), test.ShouldHaveLength, 6)
	test.That(t, dm.GetDepth(2, 1), test.ShouldEqual, InvalidDepth)

	dm.Set(2, 1, 1234.5)
	test.That(t, dm.GetIndex(5), test.ShouldEqual, Depth(1234.5))
	test.That(t, dm.At(2, 1), test.ShouldResemble, color.Gray16{Y: 1234})
	test.That(t, dm.At(-1, 0), test.ShouldResemble, color.Gray16{})

	dm.Set(0, 0, 1e9)
	test.That(t, dm.At(0, 0), test.ShouldResemble, color.Gray16{Y: math.MaxUint16})

	low, high := dm.MinMax()
	test.That(t, low, test.ShouldEqual, Depth(1234.5))
	test.That(t, high, test.ShouldEqual, Depth(1e9))
}

func TestDepthMapCopies(t *testing.T) {
	dm := NewEmptyDepthMap(2, 2)
	dm.Fill(500)
	clone := dm.Clone()
	clone.Set(1, 1, 700)
	test.That(t, dm.GetDepth(1, 1), test.ShouldEqual, Depth(500))

	test.That(t, dm.CopyFrom(clone), test.ShouldBeNil)
	test.That(t, dm.GetDepth(1, 1), test.ShouldEqual, Depth(700))
	test.That(t, dm.CopyFrom(NewEmptyDepthMap(1, 1)), test.ShouldNotBeNil)

	_, err := NewDepthMapFromSamples(2, 2, make([]Depth, 3))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConvertGray16ToDepthMap(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 4, 2))
	src.SetGray16(3, 1, color.Gray16{Y: 2500})

	dm := ConvertGray16ToDepthMap(src)
	test.That(t, dm.Width(), test.ShouldEqual, 4)
	test.That(t, dm.Height(), test.ShouldEqual, 2)
	test.That(t, dm.GetDepth(3, 1), test.ShouldEqual, Depth(2500))
	test.That(t, dm.GetDepth(0, 0).Valid(), test.ShouldBeFalse)
}

func TestToPrettyPicture(t *testing.T) {
	dm := NewEmptyDepthMap(3, 1)
	dm.Set(0, 0, 1000)
	dm.Set(1, 0, 2000)

	pretty := dm.ToPrettyPicture(0, 0)
	test.That(t, pretty.GetXY(0, 0), test.ShouldResemble, NewBGRX(255, 0, 0))
	test.That(t, pretty.GetXY(1, 0), test.ShouldResemble, NewBGRX(0, 0, 255))
	test.That(t, pretty.GetXY(2, 0), test.ShouldResemble, InvalidColor)
}
