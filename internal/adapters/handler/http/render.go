package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/vncsmyrnk/polls/internal/core/domain"
)

//go:embed templates
var templateFiles embed.FS

// pages maps a page name to the files parsed on top of base.html.
var pages = map[string][]string{
	"index":            {"index.html"},
	"detail":           {"detail.html"},
	"results":          {"results.html"},
	"404":              {"404.html"},
	"500":              {"500.html"},
	"admin/changelist": {"admin/header.html", "admin/changelist.html"},
	"admin/form":       {"admin/header.html", "admin/form.html"},
	"admin/delete":     {"admin/header.html", "admin/delete.html"},
	"admin/login":      {"admin/header.html", "admin/login.html"},
}

// Renderer executes the embedded page templates. Dates are shown in the
// configured location.
type Renderer struct {
	pages    map[string]*template.Template
	location *time.Location
	now      func() time.Time
}

func NewRenderer(loc *time.Location, now func() time.Time) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}

	rd := &Renderer{
		pages:    make(map[string]*template.Template, len(pages)),
		location: loc,
		now:      now,
	}

	funcs := template.FuncMap{
		"pluralize": pluralize,
		"percent":   formatPercent,
		"date":      rd.formatDate,
		"recent": func(q *domain.Question) bool {
			return q.WasPublishedRecently(rd.now())
		},
	}

	for name, files := range pages {
		patterns := []string{"templates/base.html"}
		for _, f := range files {
			patterns = append(patterns, "templates/"+f)
		}

		t, err := template.New(name).Funcs(funcs).ParseFS(templateFiles, patterns...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		rd.pages[name] = t
	}

	return rd, nil
}

func (rd *Renderer) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	t, ok := rd.pages[name]
	if !ok {
		rd.serverError(w, r, fmt.Errorf("unknown page %q", name))
		return
	}

	// render fully before writing so a template error can still become a 500
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.serverError(w, r, fmt.Errorf("failed to render %s: %w", name, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (rd *Renderer) notFound(w http.ResponseWriter, r *http.Request) {
	rd.render(w, r, http.StatusNotFound, "404", nil)
}

func (rd *Renderer) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)

	var buf bytes.Buffer
	if err := rd.pages["500"].ExecuteTemplate(&buf, "base", nil); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	buf.WriteTo(w)
}

func (rd *Renderer) formatDate(t time.Time) string {
	return t.In(rd.location).Format("Jan 2, 2006, 15:04")
}

// pluralize returns "s" unless n is one.
func pluralize(n any) string {
	var v int64
	switch n := n.(type) {
	case int:
		v = int64(n)
	case int64:
		v = n
	}
	if v == 1 {
		return ""
	}
	return "s"
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}
