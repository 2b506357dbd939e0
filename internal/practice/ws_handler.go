package practice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/certprep/internal/auth"
	httperrors "github.com/gokatarajesh/certprep/pkg/http/errors"
	ws "github.com/gokatarajesh/certprep/pkg/http/ws"
)

// WSHandler streams a session's countdown and lets the client drive it.
type WSHandler struct {
	manager  *Manager
	hub      *ws.Hub
	upgrader websocket.Upgrader
	connOpts []ws.ConnectionOption
	logger   zerolog.Logger
}

func NewWSHandler(manager *Manager, hub *ws.Hub, upgrader websocket.Upgrader, logger zerolog.Logger, connOpts ...ws.ConnectionOption) *WSHandler {
	return &WSHandler{
		manager:  manager,
		hub:      hub,
		upgrader: upgrader,
		connOpts: connOpts,
		logger:   logger.With().Str("component", "practice_ws").Logger(),
	}
}

// HandleWebSocket handles GET /ws/sessions/{id}. The token may be passed as
// ?token= and is resolved by the auth middleware.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidSessionID, "Invalid session id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	view, err := h.manager.View(r.Context(), sessionID, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
			return
		}
		h.logger.Error().Err(err).Msg("session lookup failed")
		httperrors.RespondInternalError(w, "Internal server error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	wsConn := ws.NewConnection(conn, h.logger, h.connOpts...)
	h.hub.RegisterConnection(wsConn)
	h.hub.Subscribe(sessionID, wsConn.ID())
	defer h.hub.UnregisterConnection(wsConn.ID())

	h.logger.Debug().
		Str("session_id", sessionID.String()).
		Int("subscribers", h.hub.Subscribers(sessionID)).
		Msg("client following session")

	go wsConn.WritePump()

	h.reply(wsConn, "", ws.TypeSessionState, view)

	ctx := context.Background()
	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(ctx, wsConn, sessionID, userID, msg)
	})
}

// handleMessage routes incoming WebSocket messages.
func (h *WSHandler) handleMessage(ctx context.Context, conn *ws.Connection, sessionID, userID uuid.UUID, msg ws.Message) error {
	var (
		view View
		err  error
	)

	switch msg.Type {
	case ws.TypePing:
		return h.reply(conn, msg.RequestID, ws.TypePong, nil)
	case ws.TypeRequestState:
		view, err = h.manager.View(ctx, sessionID, userID)
	case ws.TypeSelectAnswer:
		var req ws.SelectAnswerPayload
		if jsonErr := json.Unmarshal(msg.Payload, &req); jsonErr != nil {
			return h.replyError(conn, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid select_answer payload")
		}
		view, err = h.manager.SelectAnswer(ctx, sessionID, userID, req.QuestionID, req.OptionID)
	case ws.TypeAdvance:
		view, err = h.manager.Advance(ctx, sessionID, userID)
	case ws.TypeRetreat:
		view, err = h.manager.Retreat(ctx, sessionID, userID)
	case ws.TypeSubmit:
		// session_completed is broadcast by the manager before this reply.
		if _, err = h.manager.Submit(ctx, sessionID, userID); err == nil {
			view, err = h.manager.View(ctx, sessionID, userID)
		}
	default:
		return h.replyError(conn, msg.RequestID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}

	if err != nil {
		code, message := wsErrorCode(err)
		return h.replyError(conn, msg.RequestID, code, message)
	}
	return h.reply(conn, msg.RequestID, ws.TypeSessionState, view)
}

func wsErrorCode(err error) (string, string) {
	if _, body, ok := sessionErrors.Lookup(err); ok {
		return body.Error, body.Message
	}
	return httperrors.ErrCodeInternalError, "Internal server error"
}

func (h *WSHandler) reply(conn *ws.Connection, requestID, msgType string, payload interface{}) error {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return conn.Send(msg)
}

func (h *WSHandler) replyError(conn *ws.Connection, requestID, code, message string) error {
	return h.reply(conn, requestID, ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
}
