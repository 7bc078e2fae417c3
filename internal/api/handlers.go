package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/alexshd/biotica"
	"github.com/alexshd/biotica/internal/store"
)

const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{
		"status": "error",
		"error":  err.Error(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse JSON: %w", err))
		return false
	}
	return true
}

// series decodes a JSON array whose null entries become NaN, so callers can
// send gaps in a time series.
type series []float64

func (s *series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	*s = out
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"store":   s.results != nil,
		"alerts":  s.publisher != nil && s.publisher.Enabled(),
		"plots":   len(s.history.Plots()),
		"weights": s.engine.Weights().Map(),
	})
}

type computeRequest struct {
	biotica.PlotRecord
	Validate   *bool     `json:"validate,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

func (req computeRequest) validate() bool {
	return req.Validate == nil || *req.Validate
}

// validationResponse reports a result that failed strict validation.
func validationResponse(w http.ResponseWriter, verr *biotica.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"status":   "error",
		"error":    verr.Error(),
		"warnings": verr.Warnings,
	})
}

func (s *Server) computeHandler(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.engine.ComputeRecord(req.PlotRecord, req.validate())
	var verr *biotica.ValidationError
	switch {
	case errors.As(err, &verr):
		validationResponse(w, verr)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !req.ObservedAt.IsZero() {
		result.Timestamp = req.ObservedAt
	}

	writeJSON(w, http.StatusOK, s.assess(r.Context(), result))
}

type batchRequest struct {
	Plots    []biotica.PlotRecord `json:"plots"`
	Validate *bool                `json:"validate,omitempty"`
}

type batchItem struct {
	Index      int         `json:"index"`
	PlotID     string      `json:"plot_id"`
	Assessment *Assessment `json:"assessment,omitempty"`
	Error      string      `json:"error,omitempty"`
	Warnings   interface{} `json:"warnings,omitempty"`
}

type batchResponse struct {
	Items   []batchItem          `json:"items"`
	Summary biotica.BatchSummary `json:"summary"`
}

func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Plots) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("batch has no plots"))
		return
	}

	proc := biotica.NewBatchProcessor(s.engine,
		biotica.WithWorkers(s.workers),
		biotica.WithBatchValidation(req.Validate == nil || *req.Validate))
	items, summary, err := proc.ProcessAndSummarize(r.Context(), req.Plots)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.metrics.ObserveBatch(summary.Duration)

	resp := batchResponse{Items: make([]batchItem, len(items)), Summary: summary}
	for i, it := range items {
		out := batchItem{Index: it.Index, PlotID: it.PlotID}
		if it.Err != nil {
			out.Error = it.Err.Error()
			var verr *biotica.ValidationError
			if errors.As(it.Err, &verr) {
				out.Warnings = verr.Warnings
			}
		} else {
			a := s.assess(r.Context(), *it.Result)
			out.Assessment = &a
		}
		resp.Items[i] = out
	}
	writeJSON(w, http.StatusOK, resp)
}

type tippingRequest struct {
	Variable   string            `json:"variable"`
	Series     series            `json:"series"`
	Timestamps []float64         `json:"timestamps"`
	Columns    map[string]series `json:"columns"`
	PlotID     string            `json:"plot_id"`
}

func (s *Server) tippingHandler(w http.ResponseWriter, r *http.Request) {
	var req tippingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	switch {
	case req.PlotID != "":
		h, ok := s.history.Get(req.PlotID)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("no history for plot %q", req.PlotID))
			return
		}
		tp := h.Detect(s.detector)
		s.metrics.ObserveTipping(tp)
		writeJSON(w, http.StatusOK, tp)
	case len(req.Columns) > 0:
		cols := make(map[string][]float64, len(req.Columns))
		for name, c := range req.Columns {
			cols[name] = c
		}
		out := s.detector.DetectMultivariate(cols, req.Timestamps)
		for _, tp := range out {
			s.metrics.ObserveTipping(tp)
		}
		writeJSON(w, http.StatusOK, out)
	default:
		name := req.Variable
		if name == "" {
			name = "IBR"
		}
		tp := s.detector.DetectNamed(name, req.Series, req.Timestamps)
		s.metrics.ObserveTipping(tp)
		writeJSON(w, http.StatusOK, tp)
	}
}

type ewsRequest struct {
	Series series `json:"series"`
	Method string `json:"method"`
}

func (s *Server) ewsHandler(w http.ResponseWriter, r *http.Request) {
	var req ewsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	report, err := s.ews.Analyze(req.Series, biotica.EWSMethod(req.Method))
	switch {
	case errors.Is(err, biotica.ErrUnknownMethod):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type scenarioRequest struct {
	Base      map[biotica.Parameter]float64 `json:"base"`
	Scenarios []biotica.Scenario            `json:"scenarios"`
}

func (s *Server) scenarioHandler(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	report, err := s.engine.SimulateScenarios(req.Base, req.Scenarios)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type sensitivityRequest struct {
	Base      map[biotica.Parameter]float64 `json:"base"`
	Parameter biotica.Parameter             `json:"parameter"`
	Low       *float64                      `json:"low"`
	High      *float64                      `json:"high"`
	Steps     int                           `json:"steps"`
}

func (s *Server) sensitivityHandler(w http.ResponseWriter, r *http.Request) {
	var req sensitivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lo, hi, steps := 0.3, 1.0, 8
	if req.Low != nil {
		lo = *req.Low
	}
	if req.High != nil {
		hi = *req.High
	}
	if req.Steps != 0 {
		steps = req.Steps
	}

	if req.Parameter != "" {
		p, err := biotica.ParseParameter(string(req.Parameter))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		res, err := s.engine.Sensitivity(req.Base, p, lo, hi, steps)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	res, err := s.engine.SensitivityAll(req.Base, lo, hi, steps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listBiomesHandler(w http.ResponseWriter, r *http.Request) {
	profiles := make([]biotica.BiomeProfile, 0, len(s.biomes.List()))
	for _, b := range s.biomes.List() {
		p, _ := s.biomes.Get(b)
		profiles = append(profiles, p)
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) getBiomeHandler(w http.ResponseWriter, r *http.Request) {
	b, err := biotica.ParseBiome(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	p, ok := s.biomes.Get(b)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", biotica.ErrUnknownBiome, b))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile": p,
		"similar": s.biomes.FindSimilar(b, 3),
	})
}

func (s *Server) classifyBiomeHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid lat: %w", err))
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid lon: %w", err))
		return
	}
	var elevation float64
	if v := q.Get("elevation"); v != "" {
		if elevation, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid elevation: %w", err))
			return
		}
	}

	candidates := s.biomes.ClassifyByCoordinates(lat, lon, elevation)
	resolved, _ := s.resolver.Resolve(candidates, biotica.DefaultTransitionThreshold)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"resolved":   resolved,
	})
}

func (s *Server) listResultsHandler(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}
	q := r.URL.Query()
	f := store.ResultFilter{
		PlotID:         q.Get("plot_id"),
		Classification: biotica.Classification(q.Get("classification")),
		Limit:          100,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		f.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid since: %w", err))
			return
		}
		f.Since = t
	}

	rows, err := s.results.List(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) getResultHandler(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}
	row, err := s.results.Get(mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	res, err := row.Result()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listAlertsHandler(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}
	rows, err := s.alerts.List(r.URL.Query().Get("plot_id"), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) listPlotsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.history.Plots())
}

func (s *Server) plotStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h, ok := s.history.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no history for plot %q", id))
		return
	}
	stats := h.Stats()
	g := s.governor(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plot_id":        id,
		"classification": s.engine.Thresholds().Classify(stats.Latest),
		"history":        stats,
		"tipping":        h.Detect(s.detector),
		"governor":       g.Statistics(),
	})
}
