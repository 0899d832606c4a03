package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/eduquiz/eduquiz-backend/internal/middleware"
	"github.com/eduquiz/eduquiz-backend/internal/service"
	"github.com/eduquiz/eduquiz-backend/internal/session"
	ws "github.com/eduquiz/eduquiz-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a running attempt: countdown ticks flow out every
// second and answers flow in, with the auto-expiry grade pushed the
// moment the deadline fires.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	sess, err := h.attemptService.Get(attemptID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live attempt"})
		return
	}

	sock, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(sock)
	defer conn.Close()

	wsLog := h.log.With().
		Str("student_id", claims.UserID.String()).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	done := make(chan struct{})
	defer close(done)
	go h.pushTicks(conn, sess, done, wsLog)

	for {
		var envelope ws.RequestEnvelope
		raw, err := readEnvelope(conn, &envelope)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch envelope.Action {
		case ws.ActionAnswer:
			h.handleAnswer(c.Request.Context(), conn, sess, claims.UserID, raw, wsLog)
		case ws.ActionReset:
			h.handleReset(c.Request.Context(), conn, sess, claims.UserID)
		case ws.ActionSubmit:
			h.handleSubmit(c.Request.Context(), conn, sess, claims.UserID, raw, wsLog)
		case ws.ActionState:
			h.handleState(conn, sess)
		case ws.ActionPing:
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			_ = conn.WriteError("unknown action: " + string(envelope.Action))
		}
	}
}

// pushTicks sends the remaining seconds every second while Taking. When
// the deadline fires inside the session, the loop notices the transition
// on its next pass and pushes the graded event. A manual submit already
// answered its own request, so only the auto-expiry trigger is pushed
// here.
func (h *WSHandler) pushTicks(conn *ws.Conn, sess *session.Session, done <-chan struct{}, wsLog zerolog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		if sess.State() == session.StateTaking {
			if err := conn.WriteTyped(ws.TickResponse{
				Event:            ws.EventTick,
				SecondsRemaining: sess.SecondsRemaining(),
			}); err != nil {
				return
			}
			continue
		}

		if sess.Trigger() != session.TriggerAutoExpiry {
			return
		}
		view, ok := sess.Result()
		if !ok {
			return
		}
		if err := conn.WriteTyped(ws.GradedResponse{
			Event:        ws.EventGraded,
			Score:        view.Score,
			ScoreDisplay: view.ScoreDisplay,
			Passed:       view.Passed,
			SecondsSpent: view.SecondsSpent,
			Auto:         true,
		}); err != nil {
			return
		}
		wsLog.Info().Float64("score", view.Score).Msg("Auto grade pushed")
		return
	}
}

func (h *WSHandler) handleAnswer(ctx context.Context, conn *ws.Conn, sess *session.Session, studentID uuid.UUID, raw []byte, wsLog zerolog.Logger) {
	var req ws.AnswerRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.Key == "" {
		_ = conn.WriteError("key and ans are required")
		return
	}

	if err := h.attemptService.RecordAnswer(ctx, sess.ID, studentID, req.Key, req.Answer); err != nil {
		_ = conn.WriteError("attempt is no longer taking")
		return
	}

	view, ok := sess.Taking()
	count := 0
	if ok {
		count = view.AnsweredCount
	}
	_ = conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, AnsweredCount: count})
}

func (h *WSHandler) handleReset(ctx context.Context, conn *ws.Conn, sess *session.Session, studentID uuid.UUID) {
	if err := h.attemptService.Reset(ctx, sess.ID, studentID); err != nil {
		_ = conn.WriteError("attempt is no longer taking")
		return
	}
	_ = conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, AnsweredCount: 0})
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, sess *session.Session, studentID uuid.UUID, raw []byte, wsLog zerolog.Logger) {
	var req ws.SubmitRequest
	if err := json.Unmarshal(raw, &req); err != nil || !req.Confirm {
		_ = conn.WriteError("submit requires confirm:true")
		return
	}

	view, err := h.attemptService.Submit(ctx, sess.ID, studentID)
	if err != nil {
		_ = conn.WriteError("submit failed")
		return
	}

	wsLog.Info().Float64("score", view.Score).Msg("Attempt submitted over WebSocket")
	_ = conn.WriteTyped(ws.GradedResponse{
		Event:        ws.EventGraded,
		Score:        view.Score,
		ScoreDisplay: view.ScoreDisplay,
		Passed:       view.Passed,
		SecondsSpent: view.SecondsSpent,
		Auto:         false,
	})
}

// readEnvelope reads one raw message and peeks at its action. The raw
// bytes are returned for per-action decoding.
func readEnvelope(conn *ws.Conn, envelope *ws.RequestEnvelope) ([]byte, error) {
	raw, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, envelope); err != nil {
		return nil, err
	}
	return raw, nil
}

func (h *WSHandler) handleState(conn *ws.Conn, sess *session.Session) {
	state := sess.State()
	resp := ws.StateResponse{Event: ws.EventState, State: string(state)}
	switch state {
	case session.StateTaking:
		resp.View, _ = sess.Taking()
	case session.StateResult:
		resp.View, _ = sess.Result()
	case session.StateReview:
		resp.View, _ = sess.Review()
	}
	_ = conn.WriteTyped(resp)
}
