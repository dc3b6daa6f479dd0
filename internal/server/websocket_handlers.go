package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		return true
	},
}

// WebSocketBatchRequest is a batch recognition request sent by a client.
// Images are base64-encoded by encoding/json on the []byte fields.
type WebSocketBatchRequest struct {
	Type   string   `json:"type"` // "batch" or "image"
	Images [][]byte `json:"images,omitempty"`
	Image  []byte   `json:"image,omitempty"`
}

// WebSocketBatchResponse is a recognition response or progress update.
type WebSocketBatchResponse struct {
	Type      string             `json:"type"`
	Status    string             `json:"status"` // "processing", "completed", "error"
	Progress  float64            `json:"progress,omitempty"`
	Results   []*RecognizeResult `json:"results,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorType string             `json:"error_type,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
}

// webSocketConnWriter is the writing side of a WebSocket connection.
type webSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// batchWebSocketHandler handles WebSocket connections for streaming batch
// recognition.
func (s *Server) batchWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	// Read deadline prevents hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Ping messages keep the connection alive
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(conn, data)
		}
	}
}

// handleWebSocketMessage processes a single WebSocket message.
func (s *Server) handleWebSocketMessage(conn *websocket.Conn, data []byte) {
	var req WebSocketBatchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	s.sendWebSocketResponse(conn, WebSocketBatchResponse{
		Type:      "recognize_response",
		Status:    "processing",
		Progress:  0.0,
		RequestID: requestID,
	})

	switch req.Type {
	case "image":
		s.processWebSocketBatch(conn, [][]byte{req.Image}, requestID)
	case "batch":
		s.processWebSocketBatch(conn, req.Images, requestID)
	default:
		s.sendWebSocketError(conn, "invalid_request", "Unsupported request type: "+req.Type)
	}
}

// processWebSocketBatch decodes and recognizes a batch of images, streaming
// progress updates back to the client.
func (s *Server) processWebSocketBatch(conn *websocket.Conn, encoded [][]byte, requestID string) {
	if len(encoded) == 0 {
		s.sendWebSocketError(conn, "invalid_request", "No image data provided")
		return
	}

	images := make([]image.Image, 0, len(encoded))
	for i, data := range encoded {
		if len(data) == 0 {
			s.sendWebSocketError(conn, "invalid_request", fmt.Sprintf("Image %d is empty", i))
			return
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Failed to decode image %d: %v", i, err))
			return
		}
		images = append(images, img)
	}

	s.sendWebSocketResponse(conn, WebSocketBatchResponse{
		Type:      "recognize_response",
		Status:    "processing",
		Progress:  0.5,
		RequestID: requestID,
	})

	start := time.Now()
	results, err := s.recognizer.RecognizeBatch(images)
	duration := time.Since(start)

	if err != nil {
		recognizeRequestsTotal.WithLabelValues("websocket_batch", "error").Inc()
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Recognition failed: %v", err))
		return
	}

	recognizeRequestsTotal.WithLabelValues("websocket_batch", "success").Inc()
	recognizeDuration.WithLabelValues("websocket_batch").Observe(duration.Seconds())
	for _, res := range results {
		recognizeConfidence.WithLabelValues("websocket_batch").Observe(res.Confidence)
	}

	out := make([]*RecognizeResult, len(results))
	for i, res := range results {
		out[i] = toRecognizeResult(res)
	}

	s.sendWebSocketResponse(conn, WebSocketBatchResponse{
		Type:      "recognize_response",
		Status:    "completed",
		Progress:  1.0,
		Results:   out,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn webSocketConnWriter, response WebSocketBatchResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn webSocketConnWriter, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketBatchResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
	})
}
