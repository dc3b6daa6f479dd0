package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/MeKo-Tech/capgo/internal/recognizer"
	"github.com/MeKo-Tech/capgo/internal/vocab"
)

// mockRecognizer is a recognizerInterface implementation for handler tests.
type mockRecognizer struct {
	result *recognizer.Result
	err    error
	vocab  *vocab.Vocabulary
}

func newMockRecognizer() *mockRecognizer {
	v, err := vocab.Build([]string{"abc7", "42x"})
	if err != nil {
		panic(err)
	}
	res := &recognizer.Result{
		Text:       "abc7",
		Confidence: 0.93,
		Score:      -0.21,
		IDs:        []int{4, 5, 6, 3},
	}
	res.TimingNs.Preprocess = 1000000
	res.TimingNs.Model = 2000000
	res.TimingNs.Decode = 100000
	res.TimingNs.Total = 3100000
	return &mockRecognizer{result: res, vocab: v}
}

func (m *mockRecognizer) Recognize(img image.Image) (*recognizer.Result, error) {
	return m.result, m.err
}

func (m *mockRecognizer) RecognizeBatch(images []image.Image) ([]*recognizer.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*recognizer.Result, len(images))
	for i := range out {
		out[i] = m.result
	}
	return out, nil
}

func (m *mockRecognizer) Vocabulary() *vocab.Vocabulary { return m.vocab }

func (m *mockRecognizer) Close() error { return nil }

// newTestServer builds a server backed by a mock recognizer.
func newTestServer() *Server {
	return &Server{
		recognizer:     newMockRecognizer(),
		corsOrigin:     "*",
		maxUploadBytes: 8 << 20,
		timeoutSec:     30,
	}
}

// encodeTestPNG renders a small solid image as PNG bytes.
func encodeTestPNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// newMultipartImageRequest builds a multipart POST with an image part.
func newMultipartImageRequest(target, field string, data []byte) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "captcha.png")
	if err != nil {
		panic(err)
	}
	if _, err := part.Write(data); err != nil {
		panic(err)
	}
	if err := writer.Close(); err != nil {
		panic(err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
