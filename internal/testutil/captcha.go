package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CaptchaConfig controls synthetic CAPTCHA rendering.
type CaptchaConfig struct {
	Text       string
	Width      int
	Height     int
	NoiseLevel float64 // fraction of pixels to perturb, 0..1
	Rotation   float64 // degrees
	Seed       int64
}

// DefaultCaptchaConfig returns a config matching the recognizer's default
// input geometry.
func DefaultCaptchaConfig(text string) CaptchaConfig {
	return CaptchaConfig{
		Text:       text,
		Width:      160,
		Height:     60,
		NoiseLevel: 0.02,
		Seed:       1,
	}
}

// GenerateCaptcha renders a deterministic synthetic CAPTCHA image: the text
// in a fixed-width font over a light background with seeded speckle noise
// and optional rotation.
func GenerateCaptcha(cfg CaptchaConfig) image.Image {
	if cfg.Width <= 0 {
		cfg.Width = 160
	}
	if cfg.Height <= 0 {
		cfg.Height = 60
	}

	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{235, 235, 235, 255}}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	textWidth := len(cfg.Text) * 7
	x := (cfg.Width - textWidth) / 2
	if x < 0 {
		x = 0
	}
	y := cfg.Height/2 + 4

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{30, 30, 30, 255}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(cfg.Text)

	if cfg.NoiseLevel > 0 {
		rng := rand.New(rand.NewSource(cfg.Seed))
		count := int(float64(cfg.Width*cfg.Height) * cfg.NoiseLevel)
		for range count {
			px := rng.Intn(cfg.Width)
			py := rng.Intn(cfg.Height)
			g := uint8(rng.Intn(256))
			img.Set(px, py, color.RGBA{g, g, g, 255})
		}
	}

	if cfg.Rotation != 0 {
		rotated := imaging.Rotate(img, cfg.Rotation, color.NRGBA{235, 235, 235, 255})
		return imaging.CropCenter(rotated, cfg.Width, cfg.Height)
	}
	return img
}
