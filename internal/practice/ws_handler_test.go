package practice

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/certprep/internal/session"
	ws "github.com/gokatarajesh/certprep/pkg/http/ws"
)

func newWSServer(t *testing.T, connOpts ...ws.ConnectionOption) (*Manager, *httptest.Server) {
	t.Helper()
	hub := ws.NewHub(zerolog.Nop())
	manager := NewManager(sampleSource(), nil, nil, hub, Options{TickInterval: time.Hour}, zerolog.Nop())
	t.Cleanup(manager.Close)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/sessions/{id}", NewWSHandler(manager, hub, upgrader, zerolog.Nop(), connOpts...).HandleWebSocket)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return manager, srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketDrivesSession(t *testing.T) {
	manager, srv := newWSServer(t)
	view, err := manager.Start(context.Background(), StartRequest{CertificationID: "aws-ccp"})
	require.NoError(t, err)

	conn := dial(t, srv, view.SessionID.String())

	msg := readMessage(t, conn)
	require.Equal(t, ws.TypeSessionState, msg.Type)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypeAdvance, RequestID: "r1"}))
	msg = readMessage(t, conn)
	require.Equal(t, ws.TypeSessionState, msg.Type)
	assert.Equal(t, "r1", msg.RequestID)
	var state View
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Equal(t, 1, state.CurrentIndex)

	payload, _ := json.Marshal(ws.SelectAnswerPayload{QuestionID: "q2", OptionID: "b"})
	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypeSelectAnswer, Payload: payload}))
	msg = readMessage(t, conn)
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Equal(t, "b", state.Current.SelectedOptionID)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: "dance"}))
	msg = readMessage(t, conn)
	require.Equal(t, ws.TypeError, msg.Type)
	var wsErr ws.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &wsErr))
	assert.Equal(t, "unknown_message_type", wsErr.Code)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypeSubmit, RequestID: "r-submit"}))
	msg = readMessage(t, conn)
	require.Equal(t, ws.TypeSessionCompleted, msg.Type)
	var done ws.SessionCompletedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &done))
	assert.Equal(t, 1, done.Correct)
	assert.Equal(t, 3, done.Total)

	msg = readMessage(t, conn)
	require.Equal(t, ws.TypeSessionState, msg.Type)
	assert.Equal(t, "r-submit", msg.RequestID)
	state = View{}
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Equal(t, session.StateCompleted, state.State)
	require.NotNil(t, state.Report)
	assert.Equal(t, 1, state.Report.Correct)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypeRetreat}))
	msg = readMessage(t, conn)
	require.Equal(t, ws.TypeError, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Payload, &wsErr))
	assert.Equal(t, "session_completed", wsErr.Code)
}

func TestWebSocketUnknownSession(t *testing.T) {
	_, srv := newWSServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + uuid.NewString()
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketOutlivesPongWait(t *testing.T) {
	const pongWait = 150 * time.Millisecond
	manager, srv := newWSServer(t, ws.WithPongWait(pongWait))
	view, err := manager.Start(context.Background(), StartRequest{CertificationID: "aws-ccp"})
	require.NoError(t, err)

	conn := dial(t, srv, view.SessionID.String())
	require.Equal(t, ws.TypeSessionState, readMessage(t, conn).Type)

	// An active client keeps the connection open well past pongWait.
	for i := 0; i < 6; i++ {
		time.Sleep(pongWait / 2)
		require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypePing, RequestID: "keepalive"}))
		msg := readMessage(t, conn)
		require.Equal(t, ws.TypePong, msg.Type)
	}

	// A silent client is kept alive by server pings answered with pongs.
	pings := 0
	conn.SetPingHandler(func(data string) error {
		pings++
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(4*pongWait)))
	_, _, err = conn.ReadMessage()

	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected client-side timeout, got %v", err)
	assert.GreaterOrEqual(t, pings, 2)
}
