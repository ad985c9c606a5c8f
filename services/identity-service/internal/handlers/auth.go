// Package handlers implements account registration, login and session
// management, plus the client roster professionals maintain.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agendly/agendly/services/identity-service/internal/model"
	"github.com/agendly/agendly/services/identity-service/internal/sessions"
	"github.com/agendly/agendly/services/identity-service/internal/storage"
)

// AccountStore persists login accounts.
type AccountStore interface {
	Insert(ctx context.Context, acct model.Account) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetByID(ctx context.Context, id string) (model.Account, error)
	ListByRole(ctx context.Context, role string) ([]model.Account, error)
	Delete(ctx context.Context, id string) error
}

// SessionStore manages refresh tokens.
type SessionStore interface {
	Create(ctx context.Context, accountID string) (string, error)
	Consume(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForAccount(ctx context.Context, accountID string) error
}

type AuthHandler struct {
	accounts AccountStore
	sessions SessionStore
	signer   TokenSigner
	logger   *slog.Logger
}

func NewAuthHandler(accounts AccountStore, sessions SessionStore, signer TokenSigner, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, signer: signer, logger: logger}
}

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/register", h.register)
	mux.HandleFunc("POST /api/v1/auth/login", h.login)
	mux.HandleFunc("GET /api/v1/auth/me", h.me)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", h.logout)
	mux.HandleFunc("GET /api/v1/professionals", h.listProfessionals)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

type tokenPair struct {
	User         model.Account `json:"user"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Role     string `json:"role"`
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
	if body.Role != model.RoleClient && body.Role != model.RoleProfessional {
		writeError(w, http.StatusBadRequest, "role: must be client or professional")
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
		Role:         body.Role,
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

	pair, err := h.issueTokens(r.Context(), acct)
	if err != nil {
		h.logger.Error("token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	acct, err := h.accounts.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(body.Email)))
	if err != nil {
		// Same response as a bad password so emails cannot be enumerated.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !verifyPassword(acct.PasswordHash, body.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	pair, err := h.issueTokens(r.Context(), acct)
	if err != nil {
		h.logger.Error("token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// me returns the account behind the gateway-verified identity headers.
func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	acct, err := h.accounts.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error("account lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &body); err != nil || body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}
	accountID, err := h.sessions.Consume(r.Context(), body.RefreshToken)
	if err != nil {
		if errors.Is(err, sessions.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "refresh token invalid or expired")
			return
		}
		h.logger.Error("refresh consume failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	acct, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "refresh token invalid or expired")
		return
	}
	pair, err := h.issueTokens(r.Context(), acct)
	if err != nil {
		h.logger.Error("token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &body); err != nil || body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}
	if err := h.sessions.Revoke(r.Context(), body.RefreshToken); err != nil {
		h.logger.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) listProfessionals(w http.ResponseWriter, r *http.Request) {
	accts, err := h.accounts.ListByRole(r.Context(), model.RoleProfessional)
	if err != nil {
		h.logger.Error("professional list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, accts)
}

func (h *AuthHandler) issueTokens(ctx context.Context, acct model.Account) (tokenPair, error) {
	access, err := h.signer.Sign(acct)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := h.sessions.Create(ctx, acct.ID)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{User: acct, AccessToken: access, RefreshToken: refresh}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
