// Package handler contains the JSON HTTP handlers. Handlers parse requests,
// call a service and translate apperror values into status codes; they hold
// no business rules.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/socialpulse/internal/auth"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/service"
)

// AccountService is the subset of service.AccountService the handlers use.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.Account, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	Profile(ctx context.Context, username string) (*model.Account, error)
	UpdateHandles(ctx context.Context, username, youtube, instagram string) (*model.Account, error)
}

// AccountHandler serves registration, sessions and the caller's profile.
//
//   - HandleRegister      → POST   /api/accounts
//   - HandleLogin         → POST   /api/sessions
//   - HandleLogout        → DELETE /api/sessions
//   - HandleMe            → GET    /api/me
//   - HandleUpdateHandles → PUT    /api/me/handles
type AccountHandler struct {
	accounts      AccountService
	sessionTTL    time.Duration
	secureCookies bool
	logger        *slog.Logger
}

// NewAccountHandler creates an AccountHandler. sessionTTL sets the cookie
// lifetime and should match the token TTL.
func NewAccountHandler(accounts AccountService, sessionTTL time.Duration, secureCookies bool, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts:      accounts,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type handlesRequest struct {
	YouTube   string `json:"youtube"`
	Instagram string `json:"instagram"`
}

// HandleRegister creates an account. It does not log the user in.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		h.logError("register failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// HandleLogin checks credentials and sets the session cookie.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logError("login failed", err)
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.sessionTTL, h.secureCookies)
	writeJSON(w, http.StatusOK, res.Account)
}

// HandleLogout deletes the session cookie. The token itself stays valid
// until it expires.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the logged-in account.
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	account, err := h.accounts.Profile(r.Context(), username)
	if err != nil {
		h.logError("profile lookup failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// HandleUpdateHandles replaces the caller's own platform handles.
func (h *AccountHandler) HandleUpdateHandles(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var req handlesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.UpdateHandles(r.Context(), username, req.YouTube, req.Instagram)
	if err != nil {
		h.logError("handle update failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) logError(msg string, err error) {
	h.logger.Warn(msg, slog.String("error", err.Error()))
}
