// Package handlers exposes the scheduling core over HTTP. Identity arrives
// on trusted headers set by the gateway after token verification.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/agendly/agendly/services/booking-service/internal/booking"
)

type Handler struct {
	engine      *booking.Engine
	logger      *slog.Logger
	debugErrors bool
}

func New(engine *booking.Engine, logger *slog.Logger, debugErrors bool) *Handler {
	return &Handler{engine: engine, logger: logger, debugErrors: debugErrors}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/appointments", h.createAppointment)
	mux.HandleFunc("GET /api/v1/appointments", h.listDay)
	mux.HandleFunc("GET /api/v1/appointments/me", h.listMine)
	mux.HandleFunc("PUT /api/v1/appointments/{id}", h.updateAppointment)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}", h.cancelAppointment)
	mux.HandleFunc("GET /api/v1/availability", h.availability)
	mux.HandleFunc("GET /api/v1/services", h.listServices)
	mux.HandleFunc("POST /api/v1/services", h.createService)
	mux.HandleFunc("GET /api/v1/services/{id}", h.getService)
	mux.HandleFunc("PUT /api/v1/services/{id}", h.updateService)
	mux.HandleFunc("DELETE /api/v1/services/{id}", h.deleteService)
	mux.HandleFunc("GET /api/v1/reports/summary", h.summary)
}

// actor reads the identity headers the gateway injects. A request without
// them never passed authentication.
func actor(r *http.Request) (booking.Actor, bool) {
	id := r.Header.Get("X-User-Id")
	role := r.Header.Get("X-Role")
	if id == "" || role == "" {
		return booking.Actor{}, false
	}
	return booking.Actor{
		ID:    id,
		Role:  role,
		Name:  r.Header.Get("X-User-Name"),
		Email: r.Header.Get("X-User-Email"),
	}, true
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var body struct {
		ServiceID string `json:"service_id"`
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
		ClientID  string `json:"client_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	appt, err := h.engine.Create(r.Context(), act, booking.CreateRequest{
		ServiceID: body.ServiceID,
		Date:      body.Date,
		StartTime: body.StartTime,
		ClientID:  body.ClientID,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (h *Handler) listDay(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date: query parameter is required")
		return
	}
	appts, err := h.engine.ListDay(r.Context(), act, date)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	includePast := r.URL.Query().Get("include_past") == "true"
	appts, err := h.engine.ListMine(r.Context(), act, includePast)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var body struct {
		ServiceID string `json:"service_id"`
		ClientID  string `json:"client_id"`
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	appt, err := h.engine.Update(r.Context(), act, r.PathValue("id"), booking.UpdateRequest{
		ServiceID: body.ServiceID,
		ClientID:  body.ClientID,
		Date:      body.Date,
		StartTime: body.StartTime,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.engine.Cancel(r.Context(), act, r.PathValue("id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	serviceID := q.Get("service_id")
	date := q.Get("date")
	if serviceID == "" || date == "" {
		writeError(w, http.StatusBadRequest, "service_id and date query parameters are required")
		return
	}
	avail, err := h.engine.AvailableTimes(r.Context(), serviceID, date)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	svcs, err := h.engine.ListServices(r.Context(), act)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svcs)
}

func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.engine.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

type serviceBody struct {
	Name            string   `json:"name"`
	DurationMinutes int      `json:"duration_minutes"`
	Price           *float64 `json:"price"`
}

func (h *Handler) createService(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var body serviceBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	svc, err := h.engine.CreateService(r.Context(), act, booking.ServiceRequest{
		Name:            body.Name,
		DurationMinutes: body.DurationMinutes,
		Price:           body.Price,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

func (h *Handler) updateService(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var body serviceBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	svc, err := h.engine.UpdateService(r.Context(), act, r.PathValue("id"), booking.ServiceRequest{
		Name:            body.Name,
		DurationMinutes: body.DurationMinutes,
		Price:           body.Price,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *Handler) deleteService(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.engine.DeleteService(r.Context(), act, r.PathValue("id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	q := r.URL.Query()
	sum, err := h.engine.Summary(r.Context(), act, q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
