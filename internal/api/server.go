// Package api serves the biotica engine, detector and biome registry over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/alexshd/biotica"
	"github.com/alexshd/biotica/internal/alert"
	"github.com/alexshd/biotica/internal/metrics"
	"github.com/alexshd/biotica/internal/store"
)

// Deps are the collaborators of a Server. Engine and Detector are required;
// the rest may be nil.
type Deps struct {
	Engine    *biotica.Engine
	Detector  *biotica.Detector
	Biomes    *biotica.BiomeRegistry
	DB        *store.DB
	Publisher *alert.Publisher
	Metrics   *metrics.Metrics
	Log       *slog.Logger
	AccessLog io.Writer

	Workers     int
	HistorySize int
	// GovernorOptions configure the governor created for each plot.
	GovernorOptions []biotica.GovernorOption
}

// Server holds per-plot state across requests: score histories and governors.
type Server struct {
	engine    *biotica.Engine
	detector  *biotica.Detector
	ews       *biotica.EarlyWarningSignals
	biomes    *biotica.BiomeRegistry
	resolver  *biotica.TransitionZoneResolver
	history   *biotica.HistoryBook
	results   *store.ResultRepository
	alerts    *store.AlertRepository
	publisher *alert.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	accessLog io.Writer
	workers   int

	govOpts   []biotica.GovernorOption
	govMu     sync.Mutex
	governors map[string]*biotica.Governor
}

var errNoStore = errors.New("result archive not configured")

// NewServer validates deps and builds a server.
func NewServer(deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("api server requires an engine")
	}
	if deps.Detector == nil {
		return nil, errors.New("api server requires a detector")
	}
	if deps.Biomes == nil {
		deps.Biomes = biotica.NewBiomeRegistry()
	}
	if deps.Log == nil {
		deps.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.AccessLog == nil {
		deps.AccessLog = io.Discard
	}

	s := &Server{
		engine:    deps.Engine,
		detector:  deps.Detector,
		ews:       biotica.NewEarlyWarningSignals(nil),
		biomes:    deps.Biomes,
		resolver:  biotica.NewTransitionZoneResolver(deps.Biomes),
		history:   biotica.NewHistoryBook(deps.HistorySize),
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		log:       deps.Log.With(slog.String("component", "api")),
		accessLog: deps.AccessLog,
		workers:   deps.Workers,
		govOpts:   deps.GovernorOptions,
		governors: make(map[string]*biotica.Governor),
	}
	if deps.DB != nil {
		s.results = store.NewResultRepository(deps.DB)
		s.alerts = store.NewAlertRepository(deps.DB)
	}
	return s, nil
}

// Router registers every route.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	s.handle(r, "/health", "health", s.healthHandler, http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	s.handle(r, "/v1/ibr", "ibr", s.computeHandler, http.MethodPost)
	s.handle(r, "/v1/ibr/batch", "ibr_batch", s.batchHandler, http.MethodPost)
	s.handle(r, "/v1/tipping", "tipping", s.tippingHandler, http.MethodPost)
	s.handle(r, "/v1/ews", "ews", s.ewsHandler, http.MethodPost)
	s.handle(r, "/v1/scenarios", "scenarios", s.scenarioHandler, http.MethodPost)
	s.handle(r, "/v1/sensitivity", "sensitivity", s.sensitivityHandler, http.MethodPost)

	s.handle(r, "/v1/biomes", "biomes", s.listBiomesHandler, http.MethodGet)
	s.handle(r, "/v1/biomes/classify", "biomes_classify", s.classifyBiomeHandler, http.MethodGet)
	s.handle(r, "/v1/biomes/{name}", "biome", s.getBiomeHandler, http.MethodGet)

	s.handle(r, "/v1/results", "results", s.listResultsHandler, http.MethodGet)
	s.handle(r, "/v1/results/{id}", "result", s.getResultHandler, http.MethodGet)
	s.handle(r, "/v1/plots", "plots", s.listPlotsHandler, http.MethodGet)
	s.handle(r, "/v1/plots/{id}/status", "plot_status", s.plotStatusHandler, http.MethodGet)
	s.handle(r, "/v1/alerts", "alerts", s.listAlertsHandler, http.MethodGet)

	return r
}

// Handler is the router wrapped with access logging and panic recovery.
func (s *Server) Handler() http.Handler {
	h := handlers.CombinedLoggingHandler(s.accessLog, s.Router())
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(h)
}

func (s *Server) handle(r *mux.Router, path, route string, fn http.HandlerFunc, methods ...string) {
	r.Handle(path, s.metrics.WrapHandler(route, fn)).Methods(methods...)
}

func (s *Server) governor(plotID string) *biotica.Governor {
	if plotID == "" {
		return biotica.NewGovernor(s.govOpts...)
	}
	s.govMu.Lock()
	defer s.govMu.Unlock()
	g, ok := s.governors[plotID]
	if !ok {
		g = biotica.NewGovernor(s.govOpts...)
		s.governors[plotID] = g
	}
	return g
}

// Assessment is the outcome of scoring one plot observation.
type Assessment struct {
	Result    biotica.IBRResult           `json:"result"`
	Tipping   *biotica.TippingPointResult `json:"tipping,omitempty"`
	Action    biotica.Action              `json:"action"`
	AlertID   string                      `json:"alert_id,omitempty"`
	Published bool                        `json:"published"`
}

// assess archives result, extends its plot history, runs the detector over
// that history and lets the plot's governor decide. Archive and broker
// failures are logged, never returned: the score itself is still valid.
func (s *Server) assess(ctx context.Context, result biotica.IBRResult) Assessment {
	s.metrics.ObserveResult(result)
	out := Assessment{Result: result}

	if s.results != nil {
		if err := s.results.Save(result); err != nil {
			s.log.Error("result_save_err", slog.Any("err", err), slog.String("id", result.ID))
		}
	}

	if result.PlotID != "" {
		s.history.Record(result)
		if h, ok := s.history.Get(result.PlotID); ok {
			tp := h.Detect(s.detector)
			s.metrics.ObserveTipping(tp)
			out.Tipping = &tp
		}
	}

	out.Action = s.governor(result.PlotID).Assess(result, out.Tipping)
	s.metrics.ObserveAction(out.Action)
	if out.Action.Type == biotica.ActionMonitor {
		return out
	}

	if s.alerts != nil {
		row, err := s.alerts.Save(result.ID, out.Action)
		if err != nil {
			s.log.Error("alert_save_err", slog.Any("err", err), slog.String("plot_id", result.PlotID))
		} else {
			out.AlertID = row.ID
		}
	}
	if s.publisher != nil {
		published, err := s.publisher.Publish(ctx, out.AlertID, out.Action)
		if err != nil {
			s.metrics.AlertError()
		}
		out.Published = published
		if published && out.AlertID != "" {
			if err := s.alerts.MarkPublished(out.AlertID); err != nil {
				s.log.Error("alert_mark_err", slog.Any("err", err), slog.String("alert_id", out.AlertID))
			}
		}
	}
	return out
}
