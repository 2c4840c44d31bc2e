package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/socialpulse/internal/auth"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/service"
)

// CompetitorService is the subset of service.CompetitorService the handlers use.
type CompetitorService interface {
	List(ctx context.Context, username string) ([]model.CompetitorEntry, error)
	Save(ctx context.Context, username string, inputs []service.CompetitorInput) ([]model.CompetitorEntry, error)
	Add(ctx context.Context, username string, in service.CompetitorInput) (*model.CompetitorEntry, error)
	Delete(ctx context.Context, username, id string) error
	VerifyEntry(ctx context.Context, username, id string) (*service.VerifyResult, error)
}

// CompetitorHandler serves the caller's competitor list. Every route sits
// behind auth.RequireAuth.
type CompetitorHandler struct {
	competitors CompetitorService
	logger      *slog.Logger
}

// NewCompetitorHandler creates a CompetitorHandler.
func NewCompetitorHandler(competitors CompetitorService, logger *slog.Logger) *CompetitorHandler {
	return &CompetitorHandler{competitors: competitors, logger: logger}
}

type competitorList struct {
	Competitors []model.CompetitorEntry `json:"competitors"`
}

type saveRequest struct {
	Competitors []service.CompetitorInput `json:"competitors"`
}

// HandleList returns the list in order.
//
// HTTP: GET /api/competitors
func (h *CompetitorHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())

	entries, err := h.competitors.List(r.Context(), username)
	if err != nil {
		h.logger.Error("listing competitors failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, competitorList{Competitors: entries})
}

// HandleSave replaces the whole list.
//
// HTTP: PUT /api/competitors
// REQUEST BODY: {"competitors": [{"id": "...", "name": "...", "youtube": "...", "instagram": "..."}]}
func (h *CompetitorHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())

	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	saved, err := h.competitors.Save(r.Context(), username, req.Competitors)
	if err != nil {
		h.logger.Warn("saving competitors failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, competitorList{Competitors: saved})
}

// HandleAdd appends one unverified entry.
//
// HTTP: POST /api/competitors
func (h *CompetitorHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())

	var in service.CompetitorInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.competitors.Add(r.Context(), username, in)
	if err != nil {
		h.logger.Warn("adding competitor failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// HandleDelete removes one entry.
//
// HTTP: DELETE /api/competitors/{id}
func (h *CompetitorHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.competitors.Delete(r.Context(), username, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleVerify checks one entry's handles against the platforms.
//
// HTTP: POST /api/competitors/{id}/verify
func (h *CompetitorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())
	id := chi.URLParam(r, "id")

	res, err := h.competitors.VerifyEntry(r.Context(), username, id)
	if err != nil {
		h.logger.Warn("verifying competitor failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
