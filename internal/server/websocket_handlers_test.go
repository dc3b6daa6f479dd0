package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestWebSocket serves the batch handler and connects a client to it.
func dialTestWebSocket(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/batch", s.batchWebSocketHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/batch"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// readResponse reads and decodes the next response message.
func readResponse(t *testing.T, conn *websocket.Conn) WebSocketBatchResponse {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var resp WebSocketBatchResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestWebSocketSingleImage(t *testing.T) {
	s := newTestServer()
	conn := dialTestWebSocket(t, s)

	req := WebSocketBatchRequest{Type: "image", Image: encodeTestPNG(160, 60)}
	require.NoError(t, conn.WriteJSON(req))

	first := readResponse(t, conn)
	assert.Equal(t, "processing", first.Status)
	assert.NotEmpty(t, first.RequestID)

	var final WebSocketBatchResponse
	for {
		final = readResponse(t, conn)
		if final.Status != "processing" {
			break
		}
	}

	require.Equal(t, "completed", final.Status)
	require.Len(t, final.Results, 1)
	assert.Equal(t, "abc7", final.Results[0].Text)
	assert.Equal(t, first.RequestID, final.RequestID)
}

func TestWebSocketBatch(t *testing.T) {
	s := newTestServer()
	conn := dialTestWebSocket(t, s)

	png := encodeTestPNG(160, 60)
	req := WebSocketBatchRequest{Type: "batch", Images: [][]byte{png, png, png}}
	require.NoError(t, conn.WriteJSON(req))

	var final WebSocketBatchResponse
	for {
		final = readResponse(t, conn)
		if final.Status != "processing" {
			break
		}
	}

	require.Equal(t, "completed", final.Status)
	assert.Len(t, final.Results, 3)
}

func TestWebSocketInvalidRequestType(t *testing.T) {
	s := newTestServer()
	conn := dialTestWebSocket(t, s)

	require.NoError(t, conn.WriteJSON(WebSocketBatchRequest{Type: "pdf"}))

	var final WebSocketBatchResponse
	for {
		final = readResponse(t, conn)
		if final.Status != "processing" {
			break
		}
	}

	assert.Equal(t, "error", final.Status)
	assert.Equal(t, "invalid_request", final.ErrorType)
}

func TestWebSocketCorruptImage(t *testing.T) {
	s := newTestServer()
	conn := dialTestWebSocket(t, s)

	req := WebSocketBatchRequest{Type: "image", Image: []byte("garbage")}
	require.NoError(t, conn.WriteJSON(req))

	var final WebSocketBatchResponse
	for {
		final = readResponse(t, conn)
		if final.Status != "processing" {
			break
		}
	}

	assert.Equal(t, "error", final.Status)
	assert.Equal(t, "processing_error", final.ErrorType)
}

func TestWebSocketMalformedJSON(t *testing.T) {
	s := newTestServer()
	conn := dialTestWebSocket(t, s)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	resp := readResponse(t, conn)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "invalid_request", resp.ErrorType)
}
