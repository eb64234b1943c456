// Package notify delivers new-scholarship announcements over email and
// GitHub issues.
package notify

import (
	"fmt"
	"sort"

	"github.com/osteele/liquid"

	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

const digestSubjectTemplate = `🎓 {{ total }} new scholarship{% if total != 1 %}s{% endif %} in {{ country_list }}`

const digestHTMLTemplate = `<html>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>New scholarships matching your subscription</h2>
	{% for country in countries %}
	<h3>{{ country.name }}</h3>
	<ul>
		{% for s in country.scholarships %}
		<li><a href="{{ s.url }}">{{ s.title }}</a></li>
		{% endfor %}
	</ul>
	{% endfor %}
	<p style="color: #888; font-size: 12px;">
		You receive these alerts because you subscribed to scholarship updates.
	</p>
</body>
</html>`

const digestTextTemplate = `New scholarships matching your subscription:
{% for country in countries %}
{{ country.name }}:
{% for s in country.scholarships %}  - {{ s.title }}
    {{ s.url }}
{% endfor %}{% endfor %}`

// Renderer renders digest emails from grouped scholarships.
type Renderer struct {
	engine  *liquid.Engine
	names   map[string]string
	subject *liquid.Template
	html    *liquid.Template
	text    *liquid.Template
}

// NewRenderer parses the digest templates. countryNames maps country codes to
// display names; unknown codes fall back to the code itself.
func NewRenderer(countryNames map[string]string) (*Renderer, error) {
	engine := liquid.NewEngine()

	subject, err := engine.ParseString(digestSubjectTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing subject template: %w", err)
	}
	html, err := engine.ParseString(digestHTMLTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML template: %w", err)
	}
	text, err := engine.ParseString(digestTextTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing text template: %w", err)
	}

	return &Renderer{engine: engine, names: countryNames, subject: subject, html: html, text: text}, nil
}

// Digest is a rendered email ready to send.
type Digest struct {
	Subject string
	HTML    string
	Text    string
}

// Render builds the digest for one subscriber's scholarships.
func (r *Renderer) Render(byCountry map[string][]domain.Scholarship) (*Digest, error) {
	bindings := r.bindings(byCountry)

	subject, err := r.subject.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("rendering subject: %w", err)
	}
	html, err := r.html.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("rendering HTML body: %w", err)
	}
	text, err := r.text.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("rendering text body: %w", err)
	}

	return &Digest{Subject: subject, HTML: html, Text: text}, nil
}

func (r *Renderer) bindings(byCountry map[string][]domain.Scholarship) liquid.Bindings {
	codes := sortedCodes(byCountry)

	total := 0
	countries := make([]map[string]any, 0, len(codes))
	names := make([]string, 0, len(codes))

	for _, code := range codes {
		items := byCountry[code]
		total += len(items)
		name := r.countryName(code)
		names = append(names, name)

		scholarships := make([]map[string]any, 0, len(items))
		for _, s := range items {
			scholarships = append(scholarships, map[string]any{"title": s.Title, "url": s.URL})
		}
		countries = append(countries, map[string]any{
			"code":         code,
			"name":         name,
			"scholarships": scholarships,
		})
	}

	return liquid.Bindings{
		"total":        total,
		"countries":    countries,
		"country_list": joinNames(names),
	}
}

func (r *Renderer) countryName(code string) string {
	if name, ok := r.names[code]; ok {
		return name
	}
	return code
}

func sortedCodes(byCountry map[string][]domain.Scholarship) []string {
	codes := make([]string, 0, len(byCountry))
	for code := range byCountry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	out := ""
	for i, n := range names[:len(names)-1] {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out + " and " + names[len(names)-1]
}
