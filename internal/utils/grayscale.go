package utils

import (
	"errors"
	"image"

	"github.com/MeKo-Tech/capgo/internal/mempool"
	"github.com/disintegration/imaging"
)

// ResizeToGrid scales an image to exactly width×height. CAPTCHA inputs share
// one fixed geometry, so aspect ratio is deliberately not preserved.
func ResizeToGrid(img image.Image, width, height int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	if width <= 0 || height <= 0 {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("target dimensions must be > 0")}
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

// NormalizeGray converts an image to a single-channel [0,1] float tensor in
// NCHW order ([1, H, W] per sample): the layout the recognition model eats,
// with image columns mapped to the timestep axis downstream.
func NormalizeGray(img image.Image) ([]float32, int, int, error) {
	return normalizeGray(img, nil)
}

// NormalizeGrayPooled is NormalizeGray with a pooled output buffer. The
// caller must return the buffer via mempool.PutFloat32 when done with it.
func NormalizeGrayPooled(img image.Image) ([]float32, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	buf := mempool.GetFloat32(b.Dx() * b.Dy())
	data, w, h, err := normalizeGray(img, buf)
	if err != nil {
		mempool.PutFloat32(buf)
		return nil, 0, 0, err
	}
	return data, w, h, nil
}

func normalizeGray(img image.Image, buf []float32) ([]float32, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}
	needed := width * height
	if buf == nil || cap(buf) < needed {
		buf = make([]float32, needed)
	}
	data := buf[:needed]
	for y := range height {
		for x := range width {
			// Grayscale output has R == G == B.
			r, _, _, _ := gray.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			data[y*width+x] = float32(r>>8) / 255.0
		}
	}
	return data, width, height, nil
}
