package summarizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/oracle/gemini"
)

// contract names the two JSON fields the oracle must return for a platform.
type contract struct {
	platform       model.Platform
	trendField     string
	recommendField string
	sourceDesc     string
}

var contracts = map[model.Platform]contract{
	model.PlatformInstagram: {
		platform:       model.PlatformInstagram,
		trendField:     "instagram_trend",
		recommendField: "instagram_recommend",
		sourceDesc:     "Instagram post captions and likes",
	},
	model.PlatformYouTube: {
		platform:       model.PlatformYouTube,
		trendField:     "youtube_trend",
		recommendField: "youtube_recommend",
		sourceDesc:     "YouTube video titles and descriptions",
	},
}

func contractFor(p model.Platform) (contract, error) {
	c, ok := contracts[p]
	if !ok {
		return contract{}, fmt.Errorf("%w: unsupported platform %q", ErrMalformedResponse, p)
	}
	return c, nil
}

func (c contract) systemInstruction() string {
	return fmt.Sprintf(
		"You are an AI agent designed to analyze social media data across multiple users. "+
			"Based on the provided %s, analyze the trends and provide recommendations to succeed in the trend. "+
			"Return a JSON response with '%s' (string) and '%s' (string).",
		c.sourceDesc, c.trendField, c.recommendField,
	)
}

func (c contract) schema() *gemini.Schema {
	return &gemini.Schema{
		Type: "OBJECT",
		Properties: map[string]*gemini.Schema{
			c.trendField:     {Type: "STRING"},
			c.recommendField: {Type: "STRING"},
		},
		Required: []string{c.trendField, c.recommendField},
	}
}

// ParseTrend validates the oracle's raw answer against the platform's
// contract: a JSON object whose two fields are non-blank strings. Extra
// fields are ignored. Any violation returns ErrMalformedResponse.
func ParseTrend(platform model.Platform, raw string) (*model.Trend, error) {
	c, err := contractFor(platform)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	trend, err := stringField(fields, c.trendField)
	if err != nil {
		return nil, err
	}
	recommend, err := stringField(fields, c.recommendField)
	if err != nil {
		return nil, err
	}

	return &model.Trend{Platform: platform, Trend: trend, Recommendation: recommend}, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrMalformedResponse, name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: field %q is not a string", ErrMalformedResponse, name)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: field %q is blank", ErrMalformedResponse, name)
	}
	return s, nil
}
