package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrayTensor(t *testing.T) {
	data := make([]float32, 6)
	tensor, err := NewGrayTensor(data, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 2, 3}, tensor.Shape)
	require.NoError(t, VerifyTensor(tensor))

	_, err = NewGrayTensor(nil, 2, 3)
	assert.Error(t, err)
	_, err = NewGrayTensor(data, 3, 3)
	assert.Error(t, err)
}

func TestNewBatchGrayTensor(t *testing.T) {
	images := [][]float32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}
	tensor, err := NewBatchGrayTensor(images, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 2, 2}, tensor.Shape)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Data)

	_, err = NewBatchGrayTensor(nil, 2, 2)
	assert.Error(t, err)
	_, err = NewBatchGrayTensor([][]float32{{1}}, 2, 2)
	assert.Error(t, err)
}

func TestValidateNCHW(t *testing.T) {
	assert.NoError(t, ValidateNCHW([]int64{1, 1, 40, 120}))
	assert.Error(t, ValidateNCHW([]int64{1, 1, 40}))
	assert.Error(t, ValidateNCHW([]int64{1, 1, 0, 120}))
	assert.Error(t, ValidateNCHW([]int64{1, 1, -40, 120}))
}

func TestTensorStats(t *testing.T) {
	minV, maxV, mean := TensorStats([]float32{0, 0.5, 1})
	assert.InDelta(t, 0, minV, 1e-6)
	assert.InDelta(t, 1, maxV, 1e-6)
	assert.InDelta(t, 0.5, mean, 1e-6)

	minV, maxV, mean = TensorStats(nil)
	assert.Zero(t, minV)
	assert.Zero(t, maxV)
	assert.Zero(t, mean)
}
