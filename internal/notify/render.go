// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package notify

import (
	"bytes"
	"embed"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/samber/oops"
)

//go:embed templates/*.html
var templatesFS embed.FS

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	blankPattern = regexp.MustCompile(`\n\s*\n+`)
)

// Renderer renders the embedded account mail templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("mail").Option("missingkey=zero").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_PARSE_FAILED").Wrap(err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render executes template name with vars and returns the HTML body and a
// plain-text body derived from it.
func (r *Renderer) Render(name string, vars map[string]string) (htmlBody, textBody string, err error) {
	tmpl := r.templates.Lookup(name)
	if tmpl == nil {
		return "", "", oops.Code("MAIL_TEMPLATE_UNKNOWN").With("template", name).Errorf("unknown mail template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", "", oops.Code("MAIL_TEMPLATE_RENDER_FAILED").With("template", name).Wrap(err)
	}
	htmlBody = buf.String()
	return htmlBody, PlainText(htmlBody), nil
}

// PlainText strips markup from an HTML body, unescapes entities and drops
// runs of blank lines.
func PlainText(body string) string {
	text := tagPattern.ReplaceAllString(body, "")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
