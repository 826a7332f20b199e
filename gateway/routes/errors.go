package routes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"creditpool/native/credit"
)

const kindBadRequest = "BadRequest"

var errBadRequest = errors.New("bad request")

// statusForKind maps credit failure kinds onto HTTP statuses.
func statusForKind(kind string) int {
	switch kind {
	case "NotAdmin":
		return http.StatusForbidden
	case "AmountTooSmall", "NotALender", "PoolShareExceeded", "NotEligible", "InvalidAdmin":
		return http.StatusUnprocessableEntity
	case "FundsLocked":
		return http.StatusLocked
	case "FundsNotAvailable":
		return http.StatusConflict
	case "HistoryUnavailable":
		return http.StatusFailedDependency
	case "TransferFailed":
		return http.StatusBadGateway
	case "Paused":
		return http.StatusServiceUnavailable
	case kindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := credit.Kind(err)
	if errors.Is(err, errBadRequest) {
		kind = kindBadRequest
	}
	status := statusForKind(kind)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		message = http.StatusText(status)
	} else {
		h.logger.Debug("request rejected", slog.String("path", r.URL.Path), slog.String("kind", kind), slog.Any("error", err))
	}
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}
