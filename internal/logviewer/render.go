package logviewer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page template names.
const (
	pageIndex        = "index"
	pageLogList      = "loglist"
	pageLog          = "logbase"
	pageUnauthorized = "unauthorized"
	pageNotFound     = "not_found"
	pageError        = "error"
)

// pageData is passed to every template.
type pageData struct {
	LoggedIn   bool
	User       *DiscordUser
	UsingOAuth bool
	Prefix     string
	Message    string
	Data       any
}

// renderer executes the embedded page templates.
type renderer struct {
	templates *template.Template
	markdown  goldmark.Markdown
}

func newRenderer() (*renderer, error) {
	r := &renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.Strikethrough,
				extension.Linkify,
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		),
	}

	templates, err := template.New("").Funcs(template.FuncMap{
		"markdown": r.renderMarkdown,
		"ago":      humanize.Time,
		"datetime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
		"bytes":    func(n int) string { return humanize.Bytes(uint64(max(n, 0))) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	r.templates = templates

	return r, nil
}

// render writes the named page with the given status code.
// The page is executed into a buffer first so template errors never leave a half written response.
func (r *renderer) render(w http.ResponseWriter, status int, name string, data *pageData) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)

	return err
}

// renderMarkdown converts message content to HTML. Raw HTML in the content is dropped.
func (r *renderer) renderMarkdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content)) //nolint:gosec // escaped above
	}

	return template.HTML(buf.String()) //nolint:gosec // goldmark omits raw HTML by default
}

// stripQuery removes size parameters from CDN avatar URLs.
func stripQuery(url string) string {
	base, _, _ := strings.Cut(url, "?")
	return base
}
