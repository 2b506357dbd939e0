package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Write encodes body with the given status.
func Write(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func RespondError(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, ErrorResponse{Error: code, Message: message})
}

// RespondValidationError reports a bad request caused by one input field.
func RespondValidationError(w http.ResponseWriter, code, message, field string) {
	Write(w, http.StatusBadRequest, ErrorResponse{Error: code, Message: message, Field: field})
}

func RespondInternalError(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, message)
}

func RespondNotFound(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusNotFound, code, message)
}

func RespondUnauthorized(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusUnauthorized, code, message)
}

func RespondBadRequest(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusBadRequest, code, message)
}

func RespondConflict(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusConflict, code, message)
}

// Rule maps a sentinel error onto a response. An empty Message echoes the
// matched error's text.
type Rule struct {
	Target  error
	Status  int
	Code    string
	Message string
	Field   string
}

// Table is an ordered list of rules; the first rule whose Target matches
// (via errors.Is) wins.
type Table []Rule

// Lookup returns the response for err. ok is false when no rule matches.
func (t Table) Lookup(err error) (status int, body ErrorResponse, ok bool) {
	for _, rule := range t {
		if !stderrors.Is(err, rule.Target) {
			continue
		}
		msg := rule.Message
		if msg == "" {
			msg = err.Error()
		}
		return rule.Status, ErrorResponse{Error: rule.Code, Message: msg, Field: rule.Field}, true
	}
	return 0, ErrorResponse{}, false
}

// Respond writes the matching response for err, falling back to a 500.
// It reports whether a rule matched.
func (t Table) Respond(w http.ResponseWriter, err error) bool {
	status, body, ok := t.Lookup(err)
	if !ok {
		RespondInternalError(w, "Internal server error")
		return false
	}
	Write(w, status, body)
	return true
}
