package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/certprep/internal/auth"
	httperrors "github.com/gokatarajesh/certprep/pkg/http/errors"
)

type boardReader interface {
	Top(ctx context.Context, certificationID, window string, limit int) ([]Entry, error)
	Progress(ctx context.Context, certificationID string, userID uuid.UUID) (Entry, bool, error)
}

// HTTPHandler exposes certification boards and the caller's own standing.
type HTTPHandler struct {
	boards boardReader
	logger zerolog.Logger
}

// NewHTTPHandler constructs a progress HTTP handler.
func NewHTTPHandler(boards boardReader, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		boards: boards,
		logger: logger.With().Str("component", "progress_http").Logger(),
	}
}

// Register mounts the progress routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/certifications/{id}/leaderboard", h.HandleBoard)
	mux.Handle("GET /v1/certifications/{id}/progress", auth.RequireAuth(http.HandlerFunc(h.HandleProgress)))
}

// HandleBoard responds with the top of a certification board.
// Route: GET /v1/certifications/{id}/leaderboard?window=weekly&limit=10
func (h *HTTPHandler) HandleBoard(w http.ResponseWriter, r *http.Request) {
	certificationID := r.PathValue("id")

	window := r.URL.Query().Get("window")
	if window == "" {
		window = WindowAllTime
	}
	if !IsValidWindow(window) {
		httperrors.RespondValidationError(w, httperrors.ErrCodeUnknownWindow, "window must be weekly or all_time", "window")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidArgument, "limit must be between 1 and 100", "limit")
			return
		}
		limit = parsed
	}

	top, err := h.boards.Top(r.Context(), certificationID, window, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("certification_id", certificationID).Str("window", window).Msg("board fetch failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeProgressFetchFailed, "Could not load leaderboard")
		return
	}
	if top == nil {
		top = []Entry{}
	}

	writeJSON(w, map[string]interface{}{
		"certification_id": certificationID,
		"window":           window,
		"top":              top,
		"retrievedAt":      time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleProgress responds with the caller's all-time standing.
// Route: GET /v1/certifications/{id}/progress
func (h *HTTPHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	certificationID := r.PathValue("id")

	entry, ok, err := h.boards.Progress(r.Context(), certificationID, userID)
	if err != nil {
		h.logger.Error().Err(err).Str("certification_id", certificationID).Msg("progress fetch failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeProgressFetchFailed, "Could not load progress")
		return
	}
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeProgressNotFound, "No completed attempts for this certification")
		return
	}

	writeJSON(w, map[string]interface{}{
		"certification_id": certificationID,
		"progress":         entry,
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
