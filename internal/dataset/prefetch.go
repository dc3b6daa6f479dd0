package dataset

import (
	"context"
	"image"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/capgo/internal/utils"
)

// PrefetchConfig controls the parallel image loader.
type PrefetchConfig struct {
	Workers int // decode goroutines (0 = runtime.NumCPU())
	Depth   int // bounded prefetch queue depth (0 = 2×Workers)
}

// DefaultPrefetchConfig returns sensible defaults.
func DefaultPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{Workers: runtime.NumCPU(), Depth: 0}
}

// Loaded is one decoded sample. Err is per-sample: a corrupt file reports in
// its own slot and never stops the stream.
type Loaded struct {
	Index  int
	Sample Sample
	Image  image.Image
	Err    error
}

// Prefetch decodes samples on a worker pool and delivers them through a
// bounded channel, so decoding overlaps with downstream inference without
// unbounded memory growth. Results arrive in completion order; use Index to
// restore corpus order. The channel closes when all samples are delivered or
// the context is canceled.
func Prefetch(ctx context.Context, samples []Sample, cfg PrefetchConfig) <-chan Loaded {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(samples) && len(samples) > 0 {
		workers = len(samples)
	}
	depth := cfg.Depth
	if depth <= 0 {
		depth = 2 * workers
	}

	jobs := make(chan int)
	out := make(chan Loaded, depth)

	go func() {
		defer close(jobs)
		for i := range samples {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range jobs {
				img, _, err := utils.LoadImage(samples[i].Path)
				res := Loaded{Index: i, Sample: samples[i], Image: img, Err: err}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
