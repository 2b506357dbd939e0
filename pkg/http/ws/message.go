package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeSelectAnswer = "select_answer"
	TypeAdvance      = "advance"
	TypeRetreat      = "retreat"
	TypeSubmit       = "submit"
	TypeRequestState = "request_state"
	TypePing         = "ping"

	// Server -> Client
	TypeSessionState     = "session_state"
	TypeSessionTick      = "session_tick"
	TypeSessionCompleted = "session_completed"
	TypeAttemptRecorded  = "attempt_recorded"
	TypeError            = "error"
	TypePong             = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = raw
	return msg, nil
}

// Client Messages (incoming)

type SelectAnswerPayload struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

// Server Messages (outgoing)

type SessionTickPayload struct {
	SessionID        string `json:"session_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type SessionCompletedPayload struct {
	SessionID  string `json:"session_id"`
	Total      int    `json:"total"`
	Correct    int    `json:"correct"`
	Percentage int    `json:"percentage"`
	TimedOut   bool   `json:"timed_out"`
}

type AttemptRecordedPayload struct {
	SessionID  string `json:"session_id"`
	AttemptID  string `json:"attempt_id"`
	Percentage int    `json:"percentage"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
