package embedding

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Decode decodes JPEG, PNG, GIF or BMP data.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// DecodeFile reads and decodes an image file.
func DecodeFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the dataset directory
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return Decode(data)
}

// EncodeJPEG encodes an image as JPEG.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Downsample scales img by a linear factor (0.25 = quarter width and height).
// Factors >= 1 or <= 0 return img unchanged. The result always starts at (0,0).
func Downsample(img image.Image, factor float64) image.Image {
	if factor >= 1 || factor <= 0 {
		return img
	}

	bounds := img.Bounds()
	width := max(1, int(math.Round(float64(bounds.Dx())*factor)))
	height := max(1, int(math.Round(float64(bounds.Dy())*factor)))

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// FitWithin shrinks img to fit within maxSize while keeping aspect ratio.
// Returns the image and the factor that was applied (1 when no resize was needed).
func FitWithin(img image.Image, maxSize int) (image.Image, float64) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return img, 1
	}

	factor := float64(maxSize) / float64(max(width, height))
	return Downsample(img, factor), factor
}
