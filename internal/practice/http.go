package practice

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/certprep/internal/auth"
	"github.com/gokatarajesh/certprep/internal/question"
	"github.com/gokatarajesh/certprep/internal/session"
	httperrors "github.com/gokatarajesh/certprep/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for practice sessions.
type HTTPHandlers struct {
	manager *Manager
	catalog question.Catalog
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for session endpoints.
func NewHTTPHandlers(manager *Manager, catalog question.Catalog, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		manager: manager,
		catalog: catalog,
		logger:  logger.With().Str("component", "practice_http").Logger(),
	}
}

// Register mounts the session routes on mux.
func (h *HTTPHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/certifications", h.ListCertifications)
	mux.HandleFunc("GET /v1/test-types", h.ListTestTypes)
	mux.HandleFunc("POST /v1/sessions", h.StartSession)
	mux.HandleFunc("GET /v1/sessions/{id}", h.GetSession)
	mux.HandleFunc("POST /v1/sessions/{id}/answers", h.SelectAnswer)
	mux.HandleFunc("POST /v1/sessions/{id}/next", h.Advance)
	mux.HandleFunc("POST /v1/sessions/{id}/prev", h.Retreat)
	mux.HandleFunc("POST /v1/sessions/{id}/goto", h.GoTo)
	mux.HandleFunc("POST /v1/sessions/{id}/submit", h.Submit)
	mux.HandleFunc("GET /v1/sessions/{id}/result", h.Result)
}

// ListCertifications handles GET /v1/certifications
func (h *HTTPHandlers) ListCertifications(w http.ResponseWriter, r *http.Request) {
	certs, err := h.catalog.ListCertifications(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list certifications")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeCatalogFetchFailed, "Could not load certifications")
		return
	}
	if certs == nil {
		certs = []question.Certification{}
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"certifications": certs})
}

// ListTestTypes handles GET /v1/test-types
func (h *HTTPHandlers) ListTestTypes(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"test_types": session.TestTypes()})
}

// StartSession handles POST /v1/sessions
func (h *HTTPHandlers) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.CertificationID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "certification_id is required", "certification_id")
		return
	}
	req.UserID = auth.UserIDFromContext(r.Context())

	view, err := h.manager.Start(r.Context(), req)
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /v1/sessions/{id}
func (h *HTTPHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.manager.View(r.Context(), sessionID, auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

type selectAnswerRequest struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

// SelectAnswer handles POST /v1/sessions/{id}/answers
func (h *HTTPHandlers) SelectAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req selectAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	view, err := h.manager.SelectAnswer(r.Context(), sessionID, auth.UserIDFromContext(r.Context()), req.QuestionID, req.OptionID)
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// Advance handles POST /v1/sessions/{id}/next
func (h *HTTPHandlers) Advance(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, h.manager.Advance)
}

// Retreat handles POST /v1/sessions/{id}/prev
func (h *HTTPHandlers) Retreat(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, h.manager.Retreat)
}

type goToRequest struct {
	Index *int `json:"index"`
}

// GoTo handles POST /v1/sessions/{id}/goto
func (h *HTTPHandlers) GoTo(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req goToRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Index == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "index is required", "index")
		return
	}

	view, err := h.manager.GoTo(r.Context(), sessionID, auth.UserIDFromContext(r.Context()), *req.Index)
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// Submit handles POST /v1/sessions/{id}/submit
func (h *HTTPHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	report, err := h.manager.Submit(r.Context(), sessionID, auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

// Result handles GET /v1/sessions/{id}/result. The session is discarded
// once its report has been returned.
func (h *HTTPHandlers) Result(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	report, err := h.manager.Result(r.Context(), sessionID, auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

type navigateFunc func(ctx context.Context, sessionID, userID uuid.UUID) (View, error)

func (h *HTTPHandlers) navigate(w http.ResponseWriter, r *http.Request, fn navigateFunc) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := fn(r.Context(), sessionID, auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.respondManagerError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

func (h *HTTPHandlers) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidSessionID, "Invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// sessionErrors maps manager and engine errors to responses. It is shared
// by the HTTP and WebSocket surfaces.
var sessionErrors = httperrors.Table{
	{Target: ErrSessionNotFound, Status: http.StatusNotFound, Code: httperrors.ErrCodeSessionNotFound, Message: "Session not found"},
	{Target: question.ErrCertificationNotFound, Status: http.StatusNotFound, Code: httperrors.ErrCodeCertificationNotFound, Message: "Certification not found"},
	{Target: ErrUnknownTestType, Status: http.StatusBadRequest, Code: httperrors.ErrCodeUnknownTestType, Field: "test_type"},
	{Target: session.ErrInvalidArgument, Status: http.StatusBadRequest, Code: httperrors.ErrCodeInvalidArgument},
	{Target: session.ErrInvalidState, Status: http.StatusConflict, Code: httperrors.ErrCodeSessionCompleted, Message: "Session is already completed"},
	{Target: ErrNotCompleted, Status: http.StatusConflict, Code: httperrors.ErrCodeSessionInProgress, Message: "Session is still in progress"},
	{Target: session.ErrInsufficientQuestions, Status: http.StatusUnprocessableEntity, Code: httperrors.ErrCodeInsufficientQuestions, Message: "No questions match the requested domains"},
}

func (h *HTTPHandlers) respondManagerError(w http.ResponseWriter, err error) {
	if !sessionErrors.Respond(w, err) {
		h.logger.Error().Err(err).Msg("session request failed")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
