package pipeline

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/sakif/socialpulse/internal/model"
)

// Placeholders used when a platform produced no trend.
const (
	NoTrendsPlaceholder          = "No trends available"
	NoRecommendationsPlaceholder = "No recommendations available"
)

var reportTemplate = template.Must(template.New("report").Parse(`<p>Here is the trend analysis with recommendations to win it:</p>
{{- range .}}
<p><b>{{.Name}} Trends:</b><br>{{.Trend}}</p>
<p><b>{{.Name}} Recommendations:</b><br>{{.Recommendation}}</p>
{{- end}}
<p>Thank you for using our service.</p>
`))

type reportSection struct {
	Name           string
	Trend          template.HTML
	Recommendation template.HTML
}

// Renderer builds the HTML email body from per-platform trends.
type Renderer struct {
	policy *bluemonday.Policy
}

// NewRenderer creates a Renderer. Oracle text may carry simple markup; it is
// passed through the UGC policy and everything else is stripped.
func NewRenderer() *Renderer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &Renderer{policy: p}
}

// Render returns the report with one trend and one recommendation section per
// platform, in model.Platforms order. Missing platforms get placeholders.
func (r *Renderer) Render(sections map[model.Platform]model.Trend) (string, error) {
	data := make([]reportSection, 0, len(model.Platforms))
	for _, p := range model.Platforms {
		s := reportSection{
			Name:           p.DisplayName(),
			Trend:          NoTrendsPlaceholder,
			Recommendation: NoRecommendationsPlaceholder,
		}
		if t, ok := sections[p]; ok {
			if v := r.sanitize(t.Trend); v != "" {
				s.Trend = v
			}
			if v := r.sanitize(t.Recommendation); v != "" {
				s.Recommendation = v
			}
		}
		data = append(data, s)
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) sanitize(s string) template.HTML {
	return template.HTML(strings.TrimSpace(r.policy.Sanitize(s)))
}
