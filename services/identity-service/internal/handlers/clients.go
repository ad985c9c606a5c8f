package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/agendly/agendly/services/identity-service/internal/model"
	"github.com/agendly/agendly/services/identity-service/internal/storage"
)

// ProfileStore persists the client roster.
type ProfileStore interface {
	Insert(ctx context.Context, profile model.ClientProfile) (model.ClientProfile, error)
	GetByID(ctx context.Context, id string) (model.ClientProfile, error)
	ListForProfessional(ctx context.Context, professionalID string) ([]model.ClientProfile, error)
	Update(ctx context.Context, profile model.ClientProfile) (model.ClientProfile, error)
	Delete(ctx context.Context, id string) error
}

// ClientsHandler manages the roster of clients a professional books for.
// Creating a roster entry also provisions the client's login account.
type ClientsHandler struct {
	accounts AccountStore
	profiles ProfileStore
	sessions SessionStore
	logger   *slog.Logger
}

func NewClientsHandler(accounts AccountStore, profiles ProfileStore, sessions SessionStore, logger *slog.Logger) *ClientsHandler {
	return &ClientsHandler{accounts: accounts, profiles: profiles, sessions: sessions, logger: logger}
}

func (h *ClientsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/clients", h.create)
	mux.HandleFunc("GET /api/v1/clients", h.list)
	mux.HandleFunc("GET /api/v1/clients/{id}", h.get)
	mux.HandleFunc("PUT /api/v1/clients/{id}", h.update)
	mux.HandleFunc("DELETE /api/v1/clients/{id}", h.delete)
}

// professionalID reads the gateway identity headers. The gateway already
// gates these routes to the professional role.
func professionalID(r *http.Request) (string, bool) {
	id := r.Header.Get("X-User-Id")
	if id == "" || r.Header.Get("X-Role") != model.RoleProfessional {
		return "", false
	}
	return id, true
}

func (h *ClientsHandler) create(w http.ResponseWriter, r *http.Request) {
	proID, ok := professionalID(r)
	if !ok {
		writeError(w, http.StatusForbidden, "only professionals can manage clients")
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Notes    string `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if !emailPattern.MatchString(body.Email) {
		writeError(w, http.StatusBadRequest, "email: must be a valid address")
		return
	}
	if len(body.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password: must be at least 6 characters")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "name: must not be empty")
		return
	}

	hash, err := hashPassword(body.Password)
	if err != nil {
		h.logger.Error("password hash failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	acct, err := h.accounts.Insert(r.Context(), model.Account{
		ID:           uuid.NewString(),
		Email:        body.Email,
		Name:         strings.TrimSpace(body.Name),
		Role:         model.RoleClient,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("account insert failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	profile, err := h.profiles.Insert(r.Context(), model.ClientProfile{
		ID:             uuid.NewString(),
		AccountID:      acct.ID,
		ProfessionalID: proID,
		Phone:          strings.TrimSpace(body.Phone),
		Notes:          strings.TrimSpace(body.Notes),
	})
	if err != nil {
		// The account exists without a profile; remove it so the pair stays
		// all-or-nothing.
		if delErr := h.accounts.Delete(r.Context(), acct.ID); delErr != nil {
			h.logger.Error("compensating account delete failed",
				"account_id", acct.ID, "error", delErr)
		}
		h.logger.Error("profile insert failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	profile.Name = acct.Name
	profile.Email = acct.Email
	writeJSON(w, http.StatusCreated, profile)
}

func (h *ClientsHandler) list(w http.ResponseWriter, r *http.Request) {
	proID, ok := professionalID(r)
	if !ok {
		writeError(w, http.StatusForbidden, "only professionals can manage clients")
		return
	}
	profiles, err := h.profiles.ListForProfessional(r.Context(), proID)
	if err != nil {
		h.logger.Error("client list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *ClientsHandler) get(w http.ResponseWriter, r *http.Request) {
	proID, ok := professionalID(r)
	if !ok {
		writeError(w, http.StatusForbidden, "only professionals can manage clients")
		return
	}
	profile, err := h.owned(r.Context(), proID, r.PathValue("id"))
	if err != nil {
		h.writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ClientsHandler) update(w http.ResponseWriter, r *http.Request) {
	proID, ok := professionalID(r)
	if !ok {
		writeError(w, http.StatusForbidden, "only professionals can manage clients")
		return
	}
	profile, err := h.owned(r.Context(), proID, r.PathValue("id"))
	if err != nil {
		h.writeProfileError(w, err)
		return
	}
	var body struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Notes string `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	profile.Name = strings.TrimSpace(body.Name)
	profile.Phone = strings.TrimSpace(body.Phone)
	profile.Notes = strings.TrimSpace(body.Notes)
	updated, err := h.profiles.Update(r.Context(), profile)
	if err != nil {
		h.writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ClientsHandler) delete(w http.ResponseWriter, r *http.Request) {
	proID, ok := professionalID(r)
	if !ok {
		writeError(w, http.StatusForbidden, "only professionals can manage clients")
		return
	}
	profile, err := h.owned(r.Context(), proID, r.PathValue("id"))
	if err != nil {
		h.writeProfileError(w, err)
		return
	}
	if err := h.sessions.RevokeAllForAccount(r.Context(), profile.AccountID); err != nil {
		h.logger.Error("session revoke failed", "account_id", profile.AccountID, "error", err)
	}
	if err := h.profiles.Delete(r.Context(), profile.ID); err != nil {
		h.writeProfileError(w, err)
		return
	}
	if err := h.accounts.Delete(r.Context(), profile.AccountID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.logger.Error("account delete failed", "account_id", profile.AccountID, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// owned fetches a profile and hides entries on other professionals' rosters
// behind a 404.
func (h *ClientsHandler) owned(ctx context.Context, proID, id string) (model.ClientProfile, error) {
	profile, err := h.profiles.GetByID(ctx, id)
	if err != nil {
		return model.ClientProfile{}, err
	}
	if profile.ProfessionalID != proID {
		return model.ClientProfile{}, storage.ErrNotFound
	}
	return profile, nil
}

func (h *ClientsHandler) writeProfileError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	h.logger.Error("client request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
