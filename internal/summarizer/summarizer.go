// Package summarizer turns fetched content into a trend and a recommendation
// by asking a generative model for a strict two-field JSON object.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/socialpulse/internal/metrics"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/oracle/gemini"
)

// temperature keeps answers focused while allowing some variety.
const temperature = 0.5

var (
	// ErrNoContent means there was nothing to summarize. The oracle is not called.
	ErrNoContent = errors.New("summarizer: no content to summarize")
	// ErrNoResponse means the oracle failed or answered with nothing.
	ErrNoResponse = errors.New("summarizer: oracle returned no response")
	// ErrMalformedResponse means the answer did not satisfy the JSON contract.
	ErrMalformedResponse = errors.New("summarizer: malformed oracle response")
)

// Oracle generates text for a request.
type Oracle interface {
	Generate(ctx context.Context, req gemini.Request) (string, error)
}

// Summarizer produces one Trend per platform per call.
type Summarizer struct {
	oracle Oracle
	logger *slog.Logger
}

// New creates a Summarizer.
func New(oracle Oracle, logger *slog.Logger) *Summarizer {
	return &Summarizer{oracle: oracle, logger: logger}
}

// Summarize asks the oracle once for the platform's trend. It returns
// (nil, ErrNoContent), (nil, ErrNoResponse) or (nil, ErrMalformedResponse)
// instead of a Trend when there is no usable answer; callers treat all three
// as "no data". There are no retries.
func (s *Summarizer) Summarize(ctx context.Context, platform model.Platform, items []model.ContentItem) (*model.Trend, error) {
	trend, outcome, err := s.summarize(ctx, platform, items)
	metrics.RecordOracleCall(string(platform), outcome)
	if err != nil {
		s.logger.Warn("summarization produced no trend",
			slog.String("platform", string(platform)),
			slog.Int("items", len(items)),
			slog.String("error", err.Error()),
		)
	}
	return trend, err
}

func (s *Summarizer) summarize(ctx context.Context, platform model.Platform, items []model.ContentItem) (*model.Trend, string, error) {
	c, err := contractFor(platform)
	if err != nil {
		return nil, "unsupported", err
	}

	content := Format(platform, items)
	if content == "" {
		return nil, "no_content", ErrNoContent
	}

	raw, err := s.oracle.Generate(ctx, gemini.Request{
		SystemInstruction: c.systemInstruction(),
		Prompt:            content,
		Temperature:       temperature,
		ResponseSchema:    c.schema(),
	})
	if err != nil {
		return nil, "no_response", fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, "no_response", ErrNoResponse
	}

	trend, err := ParseTrend(platform, raw)
	if err != nil {
		return nil, "malformed", err
	}
	return trend, "ok", nil
}

// Format renders items as the oracle prompt, one block per item separated by
// blank lines. Instagram blocks carry the caption and like count, YouTube
// blocks the title and description. Empty input yields "".
func Format(platform model.Platform, items []model.ContentItem) string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		switch platform {
		case model.PlatformInstagram:
			likes := "n/a"
			if it.Likes != nil {
				likes = fmt.Sprint(*it.Likes)
			}
			blocks = append(blocks, fmt.Sprintf("Caption: %s\nLikes: %s", it.Text, likes))
		case model.PlatformYouTube:
			blocks = append(blocks, fmt.Sprintf("Title: %s\nDescription: %s", it.Title, it.Text))
		}
	}
	return strings.Join(blocks, "\n\n")
}
