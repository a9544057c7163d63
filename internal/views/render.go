package views

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/anonto42/concordance/backend/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer implements echo.Renderer over the embedded page templates.
// Every page is parsed together with the base layout and the shared partials.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2 Jan 2006 15:04") },
}

func NewRenderer() (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	var partials, pages []string
	for _, f := range files {
		switch name := path.Base(f); {
		case name == "base.html":
		case strings.HasPrefix(name, "_"):
			partials = append(partials, f)
		default:
			pages = append(pages, f)
		}
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		patterns := append([]string{"templates/base.html"}, partials...)
		patterns = append(patterns, page)
		t, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[path.Base(page)] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "base.html", data)
}

// jsonPrefixes are served by echo's JSON error handler
var jsonPrefixes = []string{"/api/", "/ops/", "/health", "/metrics"}

// ErrorHandler renders HTML error pages for the web routes and defers to echo for the rest
func ErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		p := c.Request().URL.Path
		for _, prefix := range jsonPrefixes {
			if strings.HasPrefix(p, prefix) {
				e.DefaultHTTPErrorHandler(err, c)
				return
			}
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			message = http.StatusText(code)
			if m, ok := he.Message.(string); ok {
				message = m
			}
		}
		if code >= http.StatusInternalServerError {
			logrus.WithError(err).WithField("path", p).Error("Request failed")
		}

		data := &viewData{
			Title:       http.StatusText(code),
			CurrentUser: middleware.CurrentUser(c),
			Code:        code,
			Message:     message,
		}
		if rerr := c.Render(code, "error.html", data); rerr != nil {
			logrus.WithError(rerr).Warn("Failed to render error page")
			e.DefaultHTTPErrorHandler(err, c)
		}
	}
}
