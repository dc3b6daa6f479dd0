package recognizer

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"
)

// Warmup runs synthetic blank images through the full pipeline so first-use
// latency (session lazy initialization, pool population) is paid up front.
func (r *Recognizer) Warmup(iterations int) error {
	if iterations <= 0 {
		return nil
	}
	img := image.NewGray(image.Rect(0, 0, r.config.ImageWidth, r.config.ImageHeight))
	for y := range r.config.ImageHeight {
		for x := range r.config.ImageWidth {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	start := time.Now()
	for i := range iterations {
		if _, err := r.Recognize(img); err != nil {
			return fmt.Errorf("warmup iteration %d: %w", i, err)
		}
	}
	slog.Debug("Recognizer warmup complete", "iterations", iterations, "elapsed", time.Since(start))
	return nil
}
