// Package server exposes the engine over HTTP: validation runs, signal
// recording, paper-trading verdicts, indicator health, and metrics.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/tradewell/alphagate/internal/metrics"
	"github.com/tradewell/alphagate/internal/monitor"
	"github.com/tradewell/alphagate/internal/papertrade"
	"github.com/tradewell/alphagate/internal/persistence"
	"github.com/tradewell/alphagate/internal/recorder"
	"github.com/tradewell/alphagate/internal/validate"
)

// Server routes HTTP requests to the engine's components.
type Server struct {
	runner       *validate.Runner
	monitor      *monitor.Monitor
	recorder     *recorder.SignalRecorder
	evaluator    *papertrade.Evaluator
	attributions persistence.AttributionRepo
	metrics      *metrics.Registry
	version      string
}

// New assembles the HTTP surface.
func New(runner *validate.Runner, mon *monitor.Monitor, rec *recorder.SignalRecorder, eval *papertrade.Evaluator, attr persistence.AttributionRepo, m *metrics.Registry, version string) *Server {
	return &Server{
		runner:       runner,
		monitor:      mon,
		recorder:     rec,
		evaluator:    eval,
		attributions: attr,
		metrics:      m,
		version:      version,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost)
	api.HandleFunc("/indicators/{id}/health", s.handleIndicatorHealth).Methods(http.MethodGet)
	api.HandleFunc("/indicators/{id}/signals", s.handleRecordSignals).Methods(http.MethodPost)
	api.HandleFunc("/indicators/{id}/outcomes", s.handleRecordOutcomes).Methods(http.MethodPost)
	api.HandleFunc("/indicators/{id}/paper-evaluation", s.handlePaperEvaluation).Methods(http.MethodPost)
	api.HandleFunc("/indicators/{id}/attributions", s.handleListAttributions).Methods(http.MethodGet)
	api.HandleFunc("/decisions/{id}/attributions", s.handleRecordAttribution).Methods(http.MethodPost)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "alphagate",
		"version": s.version,
	})
}

type validateRequest struct {
	IndicatorID     string               `json:"indicator_id"`
	Signals         []float64            `json:"signals"`
	Returns         []float64            `json:"returns"`
	SignalsByTime   [][]float64          `json:"signals_by_time,omitempty"`
	ReturnsByTime   [][]float64          `json:"returns_by_time,omitempty"`
	Existing        map[string][]float64 `json:"existing,omitempty"`
	TrialsAttempted int                  `json:"trials_attempted,omitempty"`
}

type validateResponse struct {
	Result     *validate.Result    `json:"result"`
	Evaluation validate.Evaluation `json:"evaluation"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.IndicatorID == "" {
		writeError(w, http.StatusBadRequest, "indicator_id is required")
		return
	}

	result, err := s.runner.Run(validate.Input{
		IndicatorID:     req.IndicatorID,
		Signals:         req.Signals,
		Returns:         req.Returns,
		SignalsByTime:   req.SignalsByTime,
		ReturnsByTime:   req.ReturnsByTime,
		Existing:        req.Existing,
		TrialsAttempted: req.TrialsAttempted,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Result: result, Evaluation: s.runner.Evaluate(result)})
}

func (s *Server) handleIndicatorHealth(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if r.URL.Query().Get("cached") == "true" {
		if hc, ok := s.monitor.LatestCheck(r.Context(), id); ok {
			writeJSON(w, http.StatusOK, hc)
			return
		}
	}

	activeCount := 0
	if v := r.URL.Query().Get("active"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "active must be an integer")
			return
		}
		activeCount = n
	}

	hc, err := s.monitor.CheckIndicator(r.Context(), id, activeCount)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, hc)
}

type recordSignalsRequest struct {
	Date    string             `json:"date"`
	Signals map[string]float64 `json:"signals"`
}

func (s *Server) handleRecordSignals(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req recordSignalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	date, err := time.Parse(persistence.DateFormat, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	if err := s.recorder.RecordSignals(r.Context(), id, date, req.Signals); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"recorded": len(req.Signals)})
}

type recordOutcomesRequest struct {
	AsOf        string             `json:"as_of"`
	HorizonDays int                `json:"horizon_days"`
	Outcomes    map[string]float64 `json:"outcomes"`
}

func (s *Server) handleRecordOutcomes(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req recordOutcomesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	asOf, err := time.Parse(persistence.DateFormat, req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
		return
	}

	matched, err := s.recorder.RecordOutcomes(r.Context(), id, asOf, req.HorizonDays, req.Outcomes)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"matched": matched, "offered": len(req.Outcomes)})
}

type paperEvaluationRequest struct {
	BacktestSharpe      float64 `json:"backtest_sharpe"`
	BacktestMaxDrawdown float64 `json:"backtest_max_drawdown"`
}

func (s *Server) handlePaperEvaluation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req paperEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report, err := s.evaluator.Evaluate(r.Context(), id, papertrade.BacktestStats{
		Sharpe:      req.BacktestSharpe,
		MaxDrawdown: req.BacktestMaxDrawdown,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type recordAttributionRequest struct {
	IndicatorID        string  `json:"indicator_id"`
	SignalValue        float64 `json:"signal_value"`
	ContributionWeight float64 `json:"contribution_weight"`
	WasCorrect         *bool   `json:"was_correct,omitempty"`
}

func (s *Server) handleRecordAttribution(w http.ResponseWriter, r *http.Request) {
	decisionID := mux.Vars(r)["id"]

	var req recordAttributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	err := s.attributions.Upsert(r.Context(), persistence.DecisionAttributionRow{
		DecisionID:         decisionID,
		IndicatorID:        req.IndicatorID,
		SignalValue:        req.SignalValue,
		ContributionWeight: req.ContributionWeight,
		WasCorrect:         req.WasCorrect,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"decision_id": decisionID, "indicator_id": req.IndicatorID})
}

func (s *Server) handleListAttributions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := s.attributions.ListByIndicator(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
