package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/socialpulse/internal/auth"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/pipeline"
)

// SummaryRunner runs a summary cycle for one user.
type SummaryRunner interface {
	RunSummaryCycle(ctx context.Context, username string) (*pipeline.CycleResult, error)
}

// SummaryHandler triggers summary cycles on demand.
type SummaryHandler struct {
	runner SummaryRunner
	logger *slog.Logger
}

// NewSummaryHandler creates a SummaryHandler.
func NewSummaryHandler(runner SummaryRunner, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{runner: runner, logger: logger}
}

type platformSummary struct {
	Platform       model.Platform `json:"platform"`
	Handles        []string       `json:"handles"`
	Items          int            `json:"items"`
	Trend          string         `json:"trend,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
}

type summaryResponse struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Platforms   []platformSummary `json:"platforms"`
	Delivered   bool              `json:"delivered"`
	Report      string            `json:"report"`
	Warnings    []string          `json:"warnings"`
}

// HandleRun runs a cycle for the caller and returns the report. Partial
// failures, including a failed email, still return 200 and are listed under
// "warnings".
//
// HTTP: POST /api/summaries
func (h *SummaryHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())

	res, err := h.runner.RunSummaryCycle(r.Context(), username)
	if err != nil {
		h.logger.Error("summary cycle failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newSummaryResponse(res))
}

func newSummaryResponse(res *pipeline.CycleResult) summaryResponse {
	out := summaryResponse{
		Platforms: make([]platformSummary, 0, len(res.Platforms)),
		Delivered: res.DeliveryErr == nil,
		Warnings:  res.Warnings(),
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	if res.Report != nil {
		out.GeneratedAt = res.Report.GeneratedAt
		out.Report = res.Report.HTML
	}
	for _, p := range res.Platforms {
		ps := platformSummary{Platform: p.Platform, Handles: p.Handles, Items: p.Items}
		if ps.Handles == nil {
			ps.Handles = []string{}
		}
		if p.Trend != nil {
			ps.Trend = p.Trend.Trend
			ps.Recommendation = p.Trend.Recommendation
		}
		out.Platforms = append(out.Platforms, ps)
	}
	return out
}
