// Package view renders the panel's server-side HTML pages.
package view

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/school-erp/superadmin/pkg/models"
)

//go:embed templates/*.html
var files embed.FS

// Nav is one sidebar entry.
type Nav struct {
	Href  string
	Label string
}

// NavItems is the sidebar in display order.
var NavItems = []Nav{
	{"/dashboard", "Dashboard"},
	{"/dashboard/tenants", "Tenants"},
	{"/dashboard/plans", "Plans"},
	{"/dashboard/audit", "Audit logs"},
	{"/dashboard/settings", "Settings"},
}

// Page is the data every template receives.
type Page struct {
	Title   string
	Path    string
	User    *models.User
	Notice  string
	Content any
}

// Active reports whether the sidebar entry href is the current section.
func (p Page) Active(href string) bool {
	if href == "/dashboard" {
		return p.Path == href
	}
	return p.Path == href || strings.HasPrefix(p.Path, href+"/")
}

// Nav returns the sidebar entries.
func (p Page) Nav() []Nav {
	return NavItems
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	logger *slog.Logger
	pages  map[string]*template.Template
}

// New parses the embedded templates.
func New(logger *slog.Logger) (*Renderer, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{logger: logger, pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := strings.TrimSuffix(strings.TrimPrefix(name, "templates/"), ".html")
		if base == "layout" {
			continue
		}
		t, err := template.New(base).Funcs(funcs).ParseFS(files, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[base] = t
	}
	return r, nil
}

// Render writes page with status. Rendering happens into a buffer first so a
// template error never produces half a page.
func (v *Renderer) Render(w http.ResponseWriter, status int, page string, data Page) {
	t, ok := v.pages[page]
	if !ok {
		v.logger.Error("unknown page", "page", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		v.logger.Error("failed to render page", "page", page, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

var funcs = template.FuncMap{
	"inr":     inr,
	"when":    when,
	"pretty":  pretty,
	"checked": func(m map[string]bool, key string) bool { return m[key] },
	"add":     func(a, b int) int { return a + b },
	"field":   func(errs map[string]string, key string) string { return errs[key] },
}

// inr formats v as whole rupees with Indian digit grouping (₹12,34,567).
func inr(v float64) string {
	n := int64(math.Round(v))
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return sign + "₹" + s
	}
	head, tail := s[:len(s)-3], s[len(s)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + "₹" + strings.Join(groups, ",") + "," + tail
}

// when renders an RFC 3339 timestamp in a readable form, or the raw value.
func when(s string) string {
	if s == "" {
		return "—"
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Format("02 Jan 2006 15:04")
}

func pretty(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
