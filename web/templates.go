// ABOUTME: TemplateEngine loads embedded HTML templates and renders them with Go's html/template.
// ABOUTME: Provides markdown and timeAgo template helpers for the run history pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389-research/conjure/runstore"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds all data passed to templates for rendering.
type PageData struct {
	Title    string
	Run      *runstore.RunRecord
	Runs     []runstore.RunRecord
	ImageURL string
	ModelURL string
	Report   string // Markdown report for the run detail page
}

// TemplateEngine loads and renders embedded HTML templates.
type TemplateEngine struct {
	templates map[string]*template.Template
}

// templateFuncs returns the FuncMap available to all templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"markdown": markdownToHTML,
		"timeAgo":  timeAgo,
		"truncate": truncate,
	}
}

// NewTemplateEngine parses all embedded templates and returns a ready-to-use
// engine. Each page template is parsed together with the layout so that the
// layout wraps every page.
func NewTemplateEngine() (*TemplateEngine, error) {
	funcs := templateFuncs()

	pages := []string{
		"index.html",
		"run_detail.html",
	}

	engine := &TemplateEngine{
		templates: make(map[string]*template.Template),
	}

	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		engine.templates[page] = t
	}

	return engine, nil
}

// Render executes the named template with the given data and writes the result
// to w. It sets the Content-Type header to text/html.
func (e *TemplateEngine) Render(w http.ResponseWriter, name string, data any) error {
	t, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return t.ExecuteTemplate(w, "layout.html", data)
}

// RenderTo executes the named template with the given data and writes the
// result to an arbitrary io.Writer (useful for testing without HTTP).
func (e *TemplateEngine) RenderTo(w io.Writer, name string, data any) error {
	t, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	return t.ExecuteTemplate(w, "layout.html", data)
}

// markdownToHTML converts a markdown string to HTML using goldmark.
// Raw HTML in the input is escaped by goldmark's defaults.
func markdownToHTML(input string) template.HTML {
	var buf bytes.Buffer
	md := goldmark.New()
	if err := md.Convert([]byte(input), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(input))
	}
	return template.HTML(buf.String())
}

// timeAgo formats a time as a relative duration string (e.g. "5m ago", "2h ago").
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}

// truncate shortens a string to at most n runes, appending an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
