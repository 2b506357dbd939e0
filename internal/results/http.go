package results

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/certprep/internal/auth"
	httperrors "github.com/gokatarajesh/certprep/pkg/http/errors"
)

type historyReader interface {
	History(ctx context.Context, userID uuid.UUID, limit int) ([]Summary, error)
}

// HTTPHandler exposes the attempt history of the calling user.
type HTTPHandler struct {
	history historyReader
	logger  zerolog.Logger
}

func NewHTTPHandler(history historyReader, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		history: history,
		logger:  logger.With().Str("component", "results_http").Logger(),
	}
}

// HandleHistory responds to GET /v1/results?limit=20. It must be mounted
// behind auth.RequireAuth.
func (h *HTTPHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidArgument, "limit must be between 1 and 100", "limit")
			return
		}
		limit = parsed
	}

	items, err := h.history.History(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("history lookup failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeHistoryFetchFailed, "Could not load results")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"results": items,
	})
}
