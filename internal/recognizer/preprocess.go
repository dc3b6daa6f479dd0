package recognizer

import (
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/capgo/internal/mempool"
	"github.com/MeKo-Tech/capgo/internal/onnx"
	"github.com/MeKo-Tech/capgo/internal/utils"
)

// Preprocess converts one CAPTCHA image into the model's input tensor:
// grayscale, resized to the fixed (width, height), values in [0,1], NCHW.
// The returned buffer belongs to the pool; callers release it via
// mempool.PutFloat32 after inference.
func (r *Recognizer) Preprocess(img image.Image) (onnx.Tensor, []float32, error) {
	if img == nil {
		return onnx.Tensor{}, nil, errors.New("input image is nil")
	}
	resized, err := utils.ResizeToGrid(img, r.config.ImageWidth, r.config.ImageHeight)
	if err != nil {
		return onnx.Tensor{}, nil, fmt.Errorf("resize: %w", err)
	}
	data, w, h, err := utils.NormalizeGrayPooled(resized)
	if err != nil {
		return onnx.Tensor{}, nil, fmt.Errorf("normalize: %w", err)
	}
	tensor, err := onnx.NewGrayTensor(data, h, w)
	if err != nil {
		mempool.PutFloat32(data)
		return onnx.Tensor{}, nil, err
	}
	return tensor, data, nil
}

// PreprocessBatch stacks multiple images into one [N,1,H,W] tensor. All
// images share the recognizer's fixed geometry, so no per-batch padding is
// needed.
func (r *Recognizer) PreprocessBatch(images []image.Image) (onnx.Tensor, []float32, error) {
	if len(images) == 0 {
		return onnx.Tensor{}, nil, errors.New("empty batch")
	}
	w, h := r.config.ImageWidth, r.config.ImageHeight
	per := w * h
	buf := mempool.GetFloat32(per * len(images))
	for i, img := range images {
		if img == nil {
			mempool.PutFloat32(buf)
			return onnx.Tensor{}, nil, fmt.Errorf("image %d is nil", i)
		}
		resized, err := utils.ResizeToGrid(img, w, h)
		if err != nil {
			mempool.PutFloat32(buf)
			return onnx.Tensor{}, nil, fmt.Errorf("resize image %d: %w", i, err)
		}
		data, _, _, err := utils.NormalizeGray(resized)
		if err != nil {
			mempool.PutFloat32(buf)
			return onnx.Tensor{}, nil, fmt.Errorf("normalize image %d: %w", i, err)
		}
		copy(buf[i*per:(i+1)*per], data)
	}
	tensor := onnx.Tensor{
		Data:  buf,
		Shape: []int64{int64(len(images)), 1, int64(h), int64(w)},
	}
	return tensor, buf, nil
}
