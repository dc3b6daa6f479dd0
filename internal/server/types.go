package server

import (
	"image"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/capgo/internal/recognizer"
	"github.com/MeKo-Tech/capgo/internal/vocab"
)

// recognizerInterface defines the methods the server needs from a recognizer.
type recognizerInterface interface {
	Recognize(img image.Image) (*recognizer.Result, error)
	RecognizeBatch(images []image.Image) ([]*recognizer.Result, error)
	Vocabulary() *vocab.Vocabulary
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	recognizer     recognizerInterface
	corsOrigin     string
	maxUploadBytes int64
	timeoutSec     int
	rateLimiter    *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host             string
	Port             int
	CORSOrigin       string
	MaxUploadBytes   int64
	TimeoutSec       int
	RecognizerConfig recognizer.Config
	RateLimit        *RateLimitConfig
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// RecognizeResult is the JSON shape of one recognition result.
type RecognizeResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
	Processing struct {
		PreprocessNs int64 `json:"preprocess_ns"`
		ModelNs      int64 `json:"model_ns"`
		DecodeNs     int64 `json:"decode_ns"`
		TotalNs      int64 `json:"total_ns"`
	} `json:"processing"`
}

// RecognizeResponse wraps a recognition result for the JSON API.
type RecognizeResponse struct {
	Success bool             `json:"success"`
	Result  *RecognizeResult `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// VocabularyResponse describes the loaded character set.
type VocabularyResponse struct {
	Size        int    `json:"size"`
	BlankID     int    `json:"blank_id"`
	MaxLabelLen int    `json:"max_label_len"`
	Characters  string `json:"characters"`
}

// toRecognizeResult converts a recognizer result to its JSON shape.
func toRecognizeResult(res *recognizer.Result) *RecognizeResult {
	out := &RecognizeResult{
		Text:       res.Text,
		Confidence: res.Confidence,
		Score:      res.Score,
	}
	out.Processing.PreprocessNs = res.TimingNs.Preprocess
	out.Processing.ModelNs = res.TimingNs.Model
	out.Processing.DecodeNs = res.TimingNs.Decode
	out.Processing.TotalNs = res.TimingNs.Total
	return out
}

// NewServer creates a new recognition server instance.
func NewServer(config Config) (*Server, error) {
	rec, err := recognizer.New(config.RecognizerConfig)
	if err != nil {
		return nil, err
	}

	var limiter *RateLimiter
	if config.RateLimit != nil {
		limiter = NewRateLimiter(*config.RateLimit)
	}

	return &Server{
		recognizer:     rec,
		corsOrigin:     config.CORSOrigin,
		maxUploadBytes: config.MaxUploadBytes,
		timeoutSec:     config.TimeoutSec,
		rateLimiter:    limiter,
	}, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.recognizer != nil {
		return s.recognizer.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/vocab", s.corsMiddleware(s.vocabHandler))
	mux.HandleFunc("/recognize", s.corsMiddleware(s.rateLimitMiddleware(s.recognizeHandler)))
	mux.HandleFunc("/ws/batch", s.batchWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
