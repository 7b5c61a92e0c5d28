package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

// ResultView is a successful classification prepared for rendering.
type ResultView struct {
	Label       string
	Probability float64
}

// Percent renders the probability for display; empty when unknown.
func (r *ResultView) Percent() string {
	if r.Probability == 0 {
		return ""
	}
	return strconv.FormatFloat(r.Probability*100, 'f', 1, 64) + "%"
}

// PageData is the render context for the upload page. At most one of
// Result and Error is set; both empty renders the bare upload form.
type PageData struct {
	Result *ResultView
	Image  string
	Error  string
}

func parsePageTemplate() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/index.html"))
}

// renderPage writes the upload page. The page policy always answers 200;
// a template failure is the one case that escalates to the error boundary.
func (s *Server) renderPage(w http.ResponseWriter, data PageData) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.logger.Error("render page failed", zap.Error(err))
		s.respondFailure(w, failure{kind: failureInternal, details: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("write page failed", zap.Error(err))
	}
}
