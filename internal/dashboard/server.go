// Package dashboard serves the car-sharing dashboard over HTTP. Handlers are
// thin: every request loads sources through the shared cache and calls
// pipeline.ComputeView for the requested brand.
package dashboard

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/KaramelBytes/tripboard/internal/dataset"
	"github.com/KaramelBytes/tripboard/internal/logging"
	"github.com/KaramelBytes/tripboard/internal/pipeline"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
)

// Options configures the dashboard.
type Options struct {
	PreviewRows int
	AssetsHost  string
}

// Server renders views from cached sources.
type Server struct {
	cache *dataset.Cache
	files dataset.Files
	opt   Options
}

// New returns a dashboard server reading files through cache.
func New(cache *dataset.Cache, files dataset.Files, opt Options) *Server {
	return &Server{cache: cache, files: files, opt: opt}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/charts", s.handleCharts)
	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.handleViewJSON)
		r.Get("/brands", s.handleBrandsJSON)
		r.Post("/reload", s.handleReload)
	})
	return r
}

// view loads (or reuses) the sources and computes the view for the brand
// query parameter.
func (s *Server) view(r *http.Request) (*pipeline.ViewResult, error) {
	src, err := s.cache.Get(s.files)
	if err != nil {
		return nil, err
	}
	brand := r.URL.Query().Get("brand")
	start := time.Now()
	v, err := pipeline.ComputeView(src, brand, pipeline.Options{PreviewRows: s.opt.PreviewRows})
	if err != nil {
		return nil, err
	}
	logging.Debug().
		Str("request_id", chimiddleware.GetReqID(r.Context())).
		Str("brand", v.Selection).
		Int("trips", v.Summary.TotalTrips).
		Dur("took", time.Since(start)).
		Msg("view computed")
	return v, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, newIndexData(v)); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := RenderPage(&buf, v, s.opt.AssetsHost); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleViewJSON(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r)
	if err != nil {
		logging.Error().Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Msg("compute view failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleBrandsJSON(w http.ResponseWriter, r *http.Request) {
	src, err := s.cache.Get(s.files)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	rows, err := pipeline.DeriveTimes(pipeline.Join(src))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brands": pipeline.Brands(rows)})
}

// handleReload drops the cached sources and loads the files again, so edits
// on disk show up without restarting the process.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.cache.Reset()
	src, err := s.cache.Get(s.files)
	if err != nil {
		logging.Error().Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Msg("reload failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	logging.Info().Str("session", src.Session).Int("trips", len(src.Trips)).Msg("datasets reloaded")
	writeJSON(w, http.StatusOK, map[string]any{"session": src.Session, "trips": len(src.Trips)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "cache_policy": string(s.cache.Policy())})
}

// renderError shows a terminal message for this render cycle; the user
// recovers by changing the selection or fixing the files.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Error().Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Msg("render failed")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_ = errorTemplate.Execute(w, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		l := logging.With().Str("request_id", chimiddleware.GetReqID(r.Context())).Logger()
		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

var errorTemplate = template.Must(template.New("error").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Car Sharing Dashboard</title></head>
<body style="font-family:sans-serif;margin:2rem">
<h1>🚗 Car Sharing Dashboard</h1>
<p style="color:#b00020"><strong>Error:</strong> {{.}}</p>
<p><a href="/">Back</a></p>
</body></html>`))
