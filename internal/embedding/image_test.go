package embedding

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDownsample(t *testing.T) {
	tests := []struct {
		name           string
		width, height  int
		factor         float64
		expectedWidth  int
		expectedHeight int
	}{
		{"quarter scale", 640, 480, 0.25, 160, 120},
		{"half scale", 101, 51, 0.5, 51, 26},
		{"tiny image keeps one pixel", 2, 2, 0.1, 1, 1},
		{"factor one is a no-op", 64, 32, 1, 64, 32},
		{"invalid factor is a no-op", 64, 32, 0, 64, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createTestImage(tt.width, tt.height, color.White)
			result := Downsample(img, tt.factor)
			b := result.Bounds()
			if b.Dx() != tt.expectedWidth || b.Dy() != tt.expectedHeight {
				t.Errorf("Downsample(%dx%d, %v) = %dx%d, want %dx%d",
					tt.width, tt.height, tt.factor, b.Dx(), b.Dy(), tt.expectedWidth, tt.expectedHeight)
			}
		})
	}
}

func TestFitWithin(t *testing.T) {
	img := createTestImage(400, 200, color.Black)

	resized, factor := FitWithin(img, 100)
	if factor != 0.25 {
		t.Errorf("expected factor 0.25, got %v", factor)
	}
	if resized.Bounds().Dx() != 100 || resized.Bounds().Dy() != 50 {
		t.Errorf("expected 100x50, got %v", resized.Bounds())
	}

	same, factor := FitWithin(img, 1000)
	if factor != 1 || same != image.Image(img) {
		t.Errorf("expected image to be returned unchanged, factor %v", factor)
	}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(10, 20, color.White)); err != nil {
		t.Fatalf("png encode: %v", err)
	}

	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 20 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}

	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestEncodeJPEG(t *testing.T) {
	data, err := EncodeJPEG(createTestImage(8, 8, color.White), 80)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if detectMIMEType(data) != "image/jpeg" {
		t.Errorf("expected JPEG magic bytes, got %s", detectMIMEType(data))
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"bmp", []byte{0x42, 0x4D, 0, 0, 0, 0, 0, 0}, "image/bmp"},
		{"too short", []byte{0xFF, 0xD8}, "application/octet-stream"},
		{"unknown", []byte("plaintext"), "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.expected {
				t.Errorf("detectMIMEType() = %s, want %s", got, tt.expected)
			}
		})
	}
}
