// Package server exposes the engine to the dashboard shell as a JSON API:
// login, dataset listing, cascading filter options, reports and workbook
// downloads. Handlers hold no state of their own; each request is one
// session over the shared load cache.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"recebiveis/internal"
	"recebiveis/internal/config"
	"recebiveis/internal/engine"
	"recebiveis/internal/filter"
)

type Server struct {
	cfg    config.Config
	engine *engine.Engine
	log    zerolog.Logger
	cron   *cron.Cron
}

func New(cfg config.Config, eng *engine.Engine, log zerolog.Logger) *Server {
	return &Server{cfg: cfg, engine: eng, log: log}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/datasets", s.handleDatasets).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{name}/options/{dimension}", s.handleOptions).Methods(http.MethodPost)
	api.HandleFunc("/datasets/{name}/report", s.handleReport).Methods(http.MethodPost)
	api.HandleFunc("/datasets/{name}/export", s.handleExport).Methods(http.MethodPost)
	api.HandleFunc("/datasets/{name}/refresh", s.handleRefresh).Methods(http.MethodPost)
	return r
}

// Run serves the API and, when configured, schedules the cache re-warm.
func (s *Server) Run() error {
	if s.cfg.RefreshCron != "" {
		s.cron = cron.New()
		_, err := s.cron.AddFunc(s.cfg.RefreshCron, func() {
			s.engine.Warm(context.Background())
		})
		if err != nil {
			return fmt.Errorf("invalid REFRESH_CRON: %w", err)
		}
		s.cron.Start()
	}

	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("listening")
	return http.ListenAndServe(s.cfg.ListenAddr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleDatasets(w http.ResponseWriter, _ *http.Request) {
	type datasetInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		BucketSet   string `json:"bucketSet"`
	}
	out := []datasetInfo{}
	for _, ds := range s.engine.Registry().Datasets {
		out = append(out, datasetInfo{Name: ds.Name, Description: ds.Description, BucketSet: ds.BucketSet})
	}
	writeJSON(w, out)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filters, _, err := requestFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	values, err := s.engine.Options(r.Context(), vars["name"], vars["dimension"], filters)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, values)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filters, opts, err := requestFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rep, err := s.engine.Report(r.Context(), vars["name"], filters, opts)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"report":  rep,
		"summary": rep.Summary(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filters, opts, err := requestFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f, err := s.engine.Workbook(r.Context(), vars["name"], filters, opts)
	if err != nil {
		s.respondError(w, err)
		return
	}

	buf := bytes.NewBuffer(nil)
	if _, err := f.WriteTo(buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%s_%s.xlsx", vars["name"], time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.engine.Invalidate(vars["name"])
	if _, err := s.engine.LoadDataset(r.Context(), vars["name"], true); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "refreshed"})
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var unknownDim *internal.UnknownDimensionError
	var missingCol *internal.RequiredColumnMissingError
	switch {
	case errors.As(err, &unknownDim), errors.As(err, &missingCol):
		status = http.StatusBadRequest
	case errors.Is(err, internal.ErrSheetMissing), errors.Is(err, internal.ErrSourceCorrupt):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, internal.ErrSourceUnavailable):
		status = http.StatusBadGateway
	}
	s.log.Error().Err(err).Int("status", status).Msg("request failed")
	http.Error(w, err.Error(), status)
}

func requestFilters(r *http.Request) (filter.Filters, engine.ReportOptions, error) {
	if r.Body == nil {
		return nil, engine.ReportOptions{}, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, engine.ReportOptions{}, err
	}
	return engine.ParseFilterJSON(raw)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
