package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu            sync.Mutex
	written       []Message
	inbound       []Message
	pings         int
	closeFrames   int
	readDeadlines int
	closed        bool
}

func (f *fakeConn) ReadJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbound) == 0 {
		return errors.New("eof")
	}
	msg := f.inbound[0]
	f.inbound = f.inbound[1:]
	*(v.(*Message)) = msg
	return nil
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, v.(Message))
	return nil
}

func (f *fakeConn) WriteMessage(messageType int, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch messageType {
	case websocket.PingMessage:
		f.pings++
	case websocket.CloseMessage:
		f.closeFrames++
	}
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readDeadlines++
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *fakeConn) SetPongHandler(func(appData string) error) {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func drain(c *Connection) []Message {
	var out []Message
	for {
		select {
		case msg := <-c.sendCh:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHubBroadcastOnlyReachesSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := NewConnection(&fakeConn{}, zerolog.Nop())
	b := NewConnection(&fakeConn{}, zerolog.Nop())
	hub.RegisterConnection(a)
	hub.RegisterConnection(b)

	sessionID := uuid.New()
	hub.Subscribe(sessionID, a.ID())
	hub.Subscribe(sessionID, a.ID())
	assert.Equal(t, 1, hub.Subscribers(sessionID))

	msg, err := NewMessage(TypeSessionTick, SessionTickPayload{SessionID: sessionID.String(), RemainingSeconds: 9})
	require.NoError(t, err)
	require.NoError(t, hub.Broadcast(sessionID, msg))

	got := drain(a)
	require.Len(t, got, 1)
	assert.Equal(t, TypeSessionTick, got[0].Type)

	var payload SessionTickPayload
	require.NoError(t, json.Unmarshal(got[0].Payload, &payload))
	assert.Equal(t, 9, payload.RemainingSeconds)
	assert.Empty(t, drain(b))
}

func TestHubUnregisterDropsSubscriptions(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	fc := &fakeConn{}
	c := NewConnection(fc, zerolog.Nop())
	hub.RegisterConnection(c)

	sessionID := uuid.New()
	hub.Subscribe(sessionID, c.ID())
	hub.UnregisterConnection(c.ID())

	assert.Equal(t, 0, hub.Subscribers(sessionID))
	assert.True(t, fc.closed)
	assert.NoError(t, hub.Broadcast(sessionID, Message{Type: TypePong}))
	assert.ErrorIs(t, c.Send(Message{Type: TypePong}), ErrConnectionClosed)
}

func TestHubCloseSession(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := NewConnection(&fakeConn{}, zerolog.Nop())
	b := NewConnection(&fakeConn{}, zerolog.Nop())
	hub.RegisterConnection(a)
	hub.RegisterConnection(b)

	sessionID := uuid.New()
	hub.Subscribe(sessionID, a.ID())
	hub.Subscribe(sessionID, b.ID())
	assert.Equal(t, 2, hub.Subscribers(sessionID))

	hub.CloseSession(sessionID)
	assert.Equal(t, 0, hub.Subscribers(sessionID))
	assert.NoError(t, hub.Broadcast(sessionID, Message{Type: TypePong}))
}

func TestConnectionSendQueueFull(t *testing.T) {
	c := NewConnection(&fakeConn{}, zerolog.Nop())
	for i := 0; i < cap(c.sendCh); i++ {
		require.NoError(t, c.Send(Message{Type: TypePong}))
	}
	assert.ErrorIs(t, c.Send(Message{Type: TypePong}), ErrSendQueueFull)
}

func TestConnectionPumps(t *testing.T) {
	fc := &fakeConn{inbound: []Message{{Type: TypePing}, {Type: TypeAdvance}}}
	c := NewConnection(fc, zerolog.Nop())

	var seen []string
	c.ReadPump(func(msg Message) error {
		seen = append(seen, msg.Type)
		return nil
	})
	assert.Equal(t, []string{TypePing, TypeAdvance}, seen)

	require.NoError(t, c.Send(Message{Type: TypePong}))
	done := make(chan struct{})
	go func() {
		c.WritePump()
		close(done)
	}()
	c.Close()
	<-done

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Len(t, fc.written, 1)
	assert.Equal(t, TypePong, fc.written[0].Type)
	assert.Equal(t, 1, fc.closeFrames)
	// One deadline up front, then one per message read.
	assert.Equal(t, 3, fc.readDeadlines)
}

func TestWritePumpPingsPeer(t *testing.T) {
	fc := &fakeConn{}
	c := NewConnection(fc, zerolog.Nop(), WithPongWait(50*time.Millisecond))
	assert.Equal(t, 45*time.Millisecond, c.pingPeriod)

	done := make(chan struct{})
	go func() {
		c.WritePump()
		close(done)
	}()

	assert.Eventually(t, func() bool { return fc.pingCount() >= 2 }, time.Second, 5*time.Millisecond)
	c.Close()
	<-done
}
