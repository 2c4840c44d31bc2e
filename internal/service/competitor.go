package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sakif/socialpulse/internal/apperror"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/repository"
)

const (
	MaxCompetitorNameLength = 100
	MaxCompetitors          = 50
)

// WarnNoValidHandles is returned by VerifyEntry when every handle failed.
const WarnNoValidHandles = "no valid handles provided"

// CompetitorInput is one entry as submitted by the user. ID is empty for new
// entries.
type CompetitorInput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	YouTube   string `json:"youtube"`
	Instagram string `json:"instagram"`
}

func (in *CompetitorInput) normalize() {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.YouTube = strings.TrimSpace(in.YouTube)
	in.Instagram = strings.TrimSpace(in.Instagram)
}

// Validate checks field lengths.
func (in CompetitorInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.RuneLength(0, MaxCompetitorNameLength).
			Error(fmt.Sprintf("name must be %d characters or less", MaxCompetitorNameLength))),
		validation.Field(&in.YouTube, validation.Length(0, MaxHandleLength)),
		validation.Field(&in.Instagram, validation.Length(0, MaxHandleLength)),
	)
}

// VerifyResult is the outcome of verifying one entry.
type VerifyResult struct {
	Entry    *model.CompetitorEntry `json:"entry"`
	Warnings []string               `json:"warnings"`
}

// CompetitorService manages a user's competitor list.
type CompetitorService struct {
	repo     repository.CompetitorRepository
	verifier HandleVerifier
	logger   *slog.Logger
}

// NewCompetitorService creates a CompetitorService.
func NewCompetitorService(repo repository.CompetitorRepository, verifier HandleVerifier, logger *slog.Logger) *CompetitorService {
	return &CompetitorService{repo: repo, verifier: verifier, logger: logger}
}

// List returns the user's entries in list order.
func (s *CompetitorService) List(ctx context.Context, username string) ([]model.CompetitorEntry, error) {
	entries, err := s.repo.ListByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/competitor: listing for %s: %w", username, err)
	}
	return entries, nil
}

// Save replaces the whole list. An entry keeps its verified flag only when
// it matches a stored entry by id and both handles are unchanged. Unknown ids
// get a fresh one.
func (s *CompetitorService) Save(ctx context.Context, username string, inputs []CompetitorInput) ([]model.CompetitorEntry, error) {
	if len(inputs) > MaxCompetitors {
		return nil, apperror.ValidationFailed("competitors",
			fmt.Sprintf("at most %d competitors can be tracked", MaxCompetitors))
	}

	current, err := s.repo.ListByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/competitor: loading current list for %s: %w", username, err)
	}
	stored := make(map[string]model.CompetitorEntry, len(current))
	for _, e := range current {
		stored[e.ID] = e
	}

	seen := make(map[string]bool, len(inputs))
	entries := make([]model.CompetitorEntry, 0, len(inputs))
	for i := range inputs {
		in := inputs[i]
		in.normalize()
		if err := in.Validate(); err != nil {
			return nil, validationError(err)
		}
		// an ID the user does not own is treated as a new entry
		if _, ok := stored[in.ID]; !ok {
			in.ID = ""
		}
		if in.ID != "" {
			if seen[in.ID] {
				return nil, apperror.ValidationFailed("id", fmt.Sprintf("duplicate competitor id %s", in.ID))
			}
			seen[in.ID] = true
		}

		entry := model.CompetitorEntry{
			ID:        in.ID,
			Username:  username,
			Name:      in.Name,
			YouTube:   in.YouTube,
			Instagram: in.Instagram,
		}
		if prev, ok := stored[in.ID]; ok {
			entry.Verified = prev.Verified && prev.YouTube == in.YouTube && prev.Instagram == in.Instagram
		}
		entries = append(entries, entry)
	}

	saved, err := s.repo.ReplaceAll(ctx, username, entries)
	if err != nil {
		return nil, fmt.Errorf("service/competitor: saving list for %s: %w", username, err)
	}

	s.logger.Info("competitor list saved",
		slog.String("username", username),
		slog.Int("count", len(saved)),
	)
	return saved, nil
}

// Add appends one unverified entry to the end of the list.
func (s *CompetitorService) Add(ctx context.Context, username string, in CompetitorInput) (*model.CompetitorEntry, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	current, err := s.repo.ListByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/competitor: loading current list for %s: %w", username, err)
	}
	if len(current) >= MaxCompetitors {
		return nil, apperror.ValidationFailed("competitors",
			fmt.Sprintf("at most %d competitors can be tracked", MaxCompetitors))
	}

	position := 0
	for _, e := range current {
		if e.Position >= position {
			position = e.Position + 1
		}
	}

	entry := &model.CompetitorEntry{
		Username:  username,
		Position:  position,
		Name:      in.Name,
		YouTube:   in.YouTube,
		Instagram: in.Instagram,
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("service/competitor: adding entry for %s: %w", username, err)
	}

	s.logger.Info("competitor added",
		slog.String("username", username),
		slog.String("id", entry.ID),
	)
	return entry, nil
}

// Delete removes one entry.
func (s *CompetitorService) Delete(ctx context.Context, username, id string) error {
	if err := s.repo.Delete(ctx, username, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/competitor: deleting %s: %w", id, err)
	}
	s.logger.Info("competitor deleted",
		slog.String("username", username),
		slog.String("id", id),
	)
	return nil
}

// VerifyEntry checks each handle of one entry against its platform.
// Handles that fail are cleared and reported as warnings. The entry becomes
// verified when at least one handle survives; otherwise it stays unverified
// and the result carries WarnNoValidHandles. Only this row is written.
func (s *CompetitorService) VerifyEntry(ctx context.Context, username, id string) (*VerifyResult, error) {
	entry, err := s.repo.GetByID(ctx, username, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/competitor: loading %s: %w", id, err)
	}

	result := &VerifyResult{Entry: entry, Warnings: []string{}}
	for _, p := range model.Platforms {
		handle := entry.Handle(p)
		if handle == "" {
			continue
		}
		v := s.verifier.Verify(ctx, p, handle)
		if v.Verified {
			continue
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s handle %q could not be verified and was removed", p.DisplayName(), handle))
		clearHandle(entry, p)
	}

	entry.Verified = entry.YouTube != "" || entry.Instagram != ""
	if !entry.Verified {
		result.Warnings = append(result.Warnings, WarnNoValidHandles)
	}

	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("service/competitor: saving verified entry %s: %w", id, err)
	}

	s.logger.Info("competitor verified",
		slog.String("username", username),
		slog.String("id", id),
		slog.Bool("verified", entry.Verified),
	)
	return result, nil
}

func clearHandle(e *model.CompetitorEntry, p model.Platform) {
	switch p {
	case model.PlatformYouTube:
		e.YouTube = ""
	case model.PlatformInstagram:
		e.Instagram = ""
	}
}
