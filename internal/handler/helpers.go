package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mhutchens/chorebank/internal/chore"
)

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeChoreError maps the lifecycle error taxonomy onto HTTP statuses.
// Authorization failures that hide a resource's existence come back as 404.
func writeChoreError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validation *chore.ValidationError
		authz      *chore.AuthorizationError
		state      *chore.StateError
		conflict   *chore.ConflictError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": validation.Msg})
	case errors.As(err, &authz):
		status := http.StatusForbidden
		if authz.NotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": authz.Msg})
	case errors.As(err, &state):
		body := map[string]any{"error": state.Msg}
		if state.State != "" {
			body["state"] = state.State
		}
		if state.DaysUntilAvailable > 0 {
			body["days_until_available"] = state.DaysUntilAvailable
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": conflict.Msg})
	default:
		logger.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
