package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/healthqa-cli/internal/audit"
	"github.com/sells-group/healthqa-cli/internal/config"
	"github.com/sells-group/healthqa-cli/internal/model"
	"github.com/sells-group/healthqa-cli/internal/quality"
	"github.com/sells-group/healthqa-cli/internal/store"
)

type apiServer struct {
	store store.Store
	cfg   *config.Config
}

// newAPIRouter builds the dashboard API router over a store.
func newAPIRouter(st store.Store, c *config.Config) http.Handler {
	s := &apiServer{store: st, cfg: c}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: c.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/findings", s.handleListFindings)
		r.Post("/findings/{id}/resolve", s.handleResolveFinding)
		r.Get("/metrics", s.handleListMetrics)
		r.Post("/checks/run", s.handleRunChecks)
	})

	return r
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleListFindings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.FindingFilter{
		Severity:  model.Severity(q.Get("severity")),
		Status:    model.FindingStatus(q.Get("status")),
		CheckType: model.CheckType(q.Get("check_type")),
		TableName: q.Get("table"),
		RunID:     q.Get("run_id"),
		Limit:     intParam(q.Get("limit")),
		Offset:    intParam(q.Get("offset")),
	}

	findings, err := s.store.ListFindings(r.Context(), filter)
	if err != nil {
		zap.L().Error("list findings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list findings failed")
		return
	}
	if findings == nil {
		findings = []model.Finding{}
	}
	writeJSON(w, http.StatusOK, findings)
}

func (s *apiServer) handleResolveFinding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status     string  `json:"status"`
		AssignedTo *string `json:"assigned_to"`
		Notes      *string `json:"notes"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	status := model.FindingStatusResolved
	if req.Status != "" {
		status = model.FindingStatus(req.Status)
	}
	switch status {
	case model.FindingStatusOpen, model.FindingStatusInProgress,
		model.FindingStatusResolved, model.FindingStatusAcknowledged:
	default:
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	var resolvedAt *time.Time
	if status == model.FindingStatusResolved {
		now := time.Now().UTC()
		resolvedAt = &now
	}

	if err := s.store.UpdateFindingStatus(r.Context(), id, status, req.AssignedTo, req.Notes, resolvedAt); err != nil {
		zap.L().Warn("resolve finding", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusNotFound, "finding not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

func (s *apiServer) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.MetricFilter{
		Category: q.Get("category"),
		Limit:    intParam(q.Get("limit")),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		filter.Since = t
	}

	metrics, err := s.store.ListMetrics(r.Context(), filter)
	if err != nil {
		zap.L().Error("list metrics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list metrics failed")
		return
	}
	if metrics == nil {
		metrics = []model.Metric{}
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *apiServer) handleRunChecks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AsOf   string `json:"as_of"`
		DryRun bool   `json:"dry_run"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	evalTime, err := parseAsOf(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of timestamp")
		return
	}

	snap, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		zap.L().Error("load snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "snapshot load failed")
		return
	}

	ev := quality.NewEvaluator(s.cfg.Check)
	findings, checksRun := ev.RunAll(r.Context(), snap, evalTime)

	if req.DryRun {
		writeJSON(w, http.StatusOK, model.Summarize("", evalTime, checksRun, findings, 0))
		return
	}

	summary, err := audit.NewRecorder(s.store, s.cfg.Audit).Record(r.Context(), findings, evalTime, checksRun)
	if err != nil {
		zap.L().Error("record run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "run persistence failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func intParam(v string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
