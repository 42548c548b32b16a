package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const PanelPath = "/health/"

// Panel is the health panel as seen by the HTTP surface.
type Panel interface {
	// Refresh activates the refresh trigger; false when the page has none.
	Refresh(ctx context.Context) bool
	// Copy activates the copy trigger and reports whether the clipboard
	// accepted the text; found is false when the page has no copy trigger.
	Copy(ctx context.Context) (found, copied bool, err error)
	Render(w io.Writer) error
	WriteText(w io.Writer) error
}

// MetricsSource serves the collector's views.
type MetricsSource interface {
	Handler() http.HandlerFunc
	PrometheusHandler() http.Handler
}

type copyResponse struct {
	Copied bool   `json:"copied"`
	Error  string `json:"error,omitempty"`
}

// NewRouter mounts the panel and metrics routes.
func NewRouter(panel Panel, metrics MetricsSource, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, PanelPath, http.StatusFound)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeBuffered(w, log, "text/html; charset=utf-8", panel.Render)
		})
		r.Get("/text", func(w http.ResponseWriter, r *http.Request) {
			writeBuffered(w, log, "text/plain; charset=utf-8", panel.WriteText)
		})
		r.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
			if !panel.Refresh(r.Context()) {
				http.NotFound(w, r)
				return
			}
			http.Redirect(w, r, PanelPath, http.StatusSeeOther)
		})
		r.Post("/copy", func(w http.ResponseWriter, r *http.Request) {
			found, copied, err := panel.Copy(r.Context())
			if !found {
				http.NotFound(w, r)
				return
			}
			resp := copyResponse{Copied: copied}
			if err != nil {
				resp.Error = err.Error()
			}

			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(resp); err != nil {
				log.Error("Failed to encode copy response", slog.Any("err", err))
			}
		})
	})

	if metrics != nil {
		r.Handle("/metrics", metrics.PrometheusHandler())
		r.Get("/metrics/panel", metrics.Handler())
	}

	return r
}

// writeBuffered renders into memory first so a failed render becomes a 500
// instead of a truncated page.
func writeBuffered(w http.ResponseWriter, log *slog.Logger, contentType string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		log.Error("Failed to render panel", slog.Any("err", err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(buf.Bytes())
}
