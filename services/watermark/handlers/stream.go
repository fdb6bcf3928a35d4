package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024 * 1024,
	WriteBufferSize: 1024 * 1024,
}

func sendStreamJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleStream runs an interactive sampling session over a websocket.
//
// The client receives a session_created event with a fresh session ID,
// then issues select and detect operations on the same connection. A
// generation client that calls /v1/watermark per token pays a round of
// HTTP overhead per draw; the socket amortizes that across the whole
// sequence. Position counts selections within this session, so the
// client can line responses up with its own loop.
func HandleStream(sampler *greenlist.Sampler, detector *greenlist.Detector) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", "error", err)
			return
		}
		defer ws.Close()

		if m := observability.DefaultMetrics; m != nil {
			m.StreamStarted()
			defer m.StreamEnded()
		}

		sessionID := uuid.New().String()
		slog.Info("Stream session created", "session_id", sessionID)
		if err := sendStreamJSON(ws, datatypes.StreamResponse{
			Type:      datatypes.StreamEventSessionCreated,
			SessionID: sessionID,
		}); err != nil {
			return
		}

		position := 0
		for {
			var req datatypes.StreamRequest
			if err := ws.ReadJSON(&req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Warn("Stream session ended abnormally", "session_id", sessionID, "error", err)
				}
				return
			}

			if err := req.Validate(); err != nil {
				recordError(observability.EndpointStream, observability.ErrorCodeValidation)
				if sendStreamJSON(ws, datatypes.StreamResponse{
					Type:  datatypes.StreamEventError,
					Error: err.Error(),
				}) != nil {
					return
				}
				continue
			}

			switch req.Op {
			case datatypes.StreamOpSelect:
				token, err := sampler.SelectToken(req.ModelID, req.Distribution, req.PrevToken)
				if err != nil {
					_, code := scoringStatus(err)
					recordError(observability.EndpointStream, code)
					if sendStreamJSON(ws, datatypes.StreamResponse{
						Type:  datatypes.StreamEventError,
						Error: err.Error(),
					}) != nil {
						return
					}
					continue
				}
				position++
				if m := observability.DefaultMetrics; m != nil {
					m.RecordTokensSelected(req.ModelID, 1)
				}
				if sendStreamJSON(ws, datatypes.StreamResponse{
					Type:     datatypes.StreamEventToken,
					Token:    token,
					Position: position,
				}) != nil {
					return
				}

			case datatypes.StreamOpDetect:
				z, err := detector.Score(req.ModelID, req.Tokens)
				if err != nil {
					_, code := scoringStatus(err)
					recordError(observability.EndpointStream, code)
					if sendStreamJSON(ws, datatypes.StreamResponse{
						Type:  datatypes.StreamEventError,
						Error: err.Error(),
					}) != nil {
						return
					}
					continue
				}
				if m := observability.DefaultMetrics; m != nil {
					m.RecordZScore(req.ModelID, z)
					m.RecordTokensScored(req.ModelID, len(req.Tokens))
				}
				if sendStreamJSON(ws, datatypes.StreamResponse{
					Type:   datatypes.StreamEventScore,
					ZScore: &z,
				}) != nil {
					return
				}
			}
		}
	}
}
