package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/agendly/agendly/services/booking-service/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}

// writeDomainError maps engine errors onto the HTTP taxonomy. Unknown errors
// are logged and reported as an opaque 500 unless debug errors are on.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *booking.ValidationError
		ferr *booking.ForbiddenError
		ierr *booking.IntegrityError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &ferr):
		writeError(w, http.StatusForbidden, ferr.Reason)
	case errors.Is(err, booking.ErrServiceNotFound),
		errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrScheduleConflict),
		errors.Is(err, booking.ErrServiceInUse):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &ierr):
		h.logger.Error("data integrity violation", "error", err, "path", r.URL.Path)
		if h.debugErrors {
			writeError(w, http.StatusInternalServerError, ierr.Error())
		} else {
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	default:
		h.logger.Error("request failed", "error", err, "path", r.URL.Path,
			"method", r.Method, slog.String("kind", "unhandled"))
		if h.debugErrors {
			writeError(w, http.StatusInternalServerError, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
