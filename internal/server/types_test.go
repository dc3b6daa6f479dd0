package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/capgo/internal/recognizer"
)

func TestToRecognizeResult(t *testing.T) {
	res := &recognizer.Result{Text: "x7", Confidence: 0.8, Score: -0.5}
	res.TimingNs.Preprocess = 1
	res.TimingNs.Model = 2
	res.TimingNs.Decode = 3
	res.TimingNs.Total = 6

	out := toRecognizeResult(res)
	assert.Equal(t, "x7", out.Text)
	assert.InDelta(t, 0.8, out.Confidence, 1e-9)
	assert.InDelta(t, -0.5, out.Score, 1e-9)
	assert.Equal(t, int64(1), out.Processing.PreprocessNs)
	assert.Equal(t, int64(6), out.Processing.TotalNs)
}

func TestSetupRoutes(t *testing.T) {
	s := newTestServer()

	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerClose(t *testing.T) {
	s := newTestServer()
	require.NoError(t, s.Close())
}
