package facematch

import (
	"image"
	"math"
)

// Region is a face bounding box in pixel coordinates.
type Region struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// RegionFromCorners converts a pixel bbox [x1, y1, x2, y2] to a Region.
// Returns false if the bbox does not have four values or is inverted.
func RegionFromCorners(bbox []float64) (Region, bool) {
	if len(bbox) != 4 || bbox[2] < bbox[0] || bbox[3] < bbox[1] {
		return Region{}, false
	}
	return Region{
		Left:   int(math.Round(bbox[0])),
		Top:    int(math.Round(bbox[1])),
		Right:  int(math.Round(bbox[2])),
		Bottom: int(math.Round(bbox[3])),
	}, true
}

// RegionFromRect converts an image.Rectangle to a Region.
func RegionFromRect(r image.Rectangle) Region {
	return Region{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// Rescale maps a region found in an image with bounds from onto an image with
// bounds to, using the real width and height ratios of the two. Resized
// images have rounded sizes, so this is exact where Scale(1/factor) is not.
func (r Region) Rescale(from, to image.Rectangle) Region {
	if from.Dx() <= 0 || from.Dy() <= 0 || from == to {
		return r
	}
	fx := float64(to.Dx()) / float64(from.Dx())
	fy := float64(to.Dy()) / float64(from.Dy())
	x := func(v int) int { return to.Min.X + int(math.Round(float64(v-from.Min.X)*fx)) }
	y := func(v int) int { return to.Min.Y + int(math.Round(float64(v-from.Min.Y)*fy)) }
	return Region{
		Top:    y(r.Top),
		Right:  x(r.Right),
		Bottom: y(r.Bottom),
		Left:   x(r.Left),
	}
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// Corners returns the region as [x1, y1, x2, y2].
func (r Region) Corners() []float64 {
	return []float64{float64(r.Left), float64(r.Top), float64(r.Right), float64(r.Bottom)}
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// Relative converts the region to relative (0-1) [x1, y1, x2, y2] coordinates.
// Returns the pixel corners unchanged if the dimensions are not positive.
func (r Region) Relative(width, height int) []float64 {
	bbox := r.Corners()
	if width <= 0 || height <= 0 {
		return bbox
	}
	return []float64{
		bbox[0] / float64(width),
		bbox[1] / float64(height),
		bbox[2] / float64(width),
		bbox[3] / float64(height),
	}
}
