package api

import (
	"context"
	"net/http"
	"time"

	"project-automation-api/internal/api/automation"
	"project-automation-api/internal/api/health"
	rulelog "project-automation-api/internal/api/log"
	"project-automation-api/internal/api/rule"
	"project-automation-api/internal/domain"
	"project-automation-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Engine is the automation engine as seen by the HTTP layer.
type Engine interface {
	Dispatch(ctx context.Context, ev domain.Event) (domain.Report, error)
	RunPeriodic(ctx context.Context) (domain.Report, error)
	RunDateBased(ctx context.Context) (domain.Report, error)
	BackfillInvoiceChase(ctx context.Context) (domain.Report, error)
}

// Options holds the request deadlines.
type Options struct {
	DispatchTimeout  time.Duration
	SchedulerTimeout time.Duration
}

type Server struct {
	Router *chi.Mux
	store  store.Storer
	engine Engine
	db     health.Pinger
	opts   Options
	Logger *zap.Logger
}

// NewServer wires the routes. db may be nil, in which case /health skips the database check.
func NewServer(s store.Storer, engine Engine, db health.Pinger, opts Options, log *zap.Logger) *Server {
	server := &Server{
		Router: chi.NewRouter(),
		store:  s,
		engine: engine,
		db:     db,
		opts:   opts,
		Logger: log.With(zap.String("component", "api")),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(s.requestLogger)
	// Aanroepers zijn database-webhooks en interne tools, dus CORS staat open
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Client-Info", "Apikey"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	dispatch := automation.HandleDispatch(s.engine, s.opts.DispatchTimeout, s.Logger)
	periodic := automation.HandleRun(s.engine.RunPeriodic, s.opts.SchedulerTimeout, s.Logger)

	s.Router.Get("/health", health.HandleHealth(s.db, s.Logger))
	s.Router.Handle("/metrics", promhttp.Handler())

	// Oude /functions paden blijven bereikbaar voor bestaande webhooks
	s.Router.Route("/functions/v1", func(r chi.Router) {
		r.Post("/execute-automation-rules", dispatch)
		r.Post("/execute-periodic-automations", periodic)
	})

	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Route("/automations", func(r chi.Router) {
			r.Post("/dispatch", dispatch)
			r.Post("/periodic", periodic)
			r.Post("/date-based", automation.HandleRun(s.engine.RunDateBased, s.opts.SchedulerTimeout, s.Logger))
			r.Post("/backfill/invoice-chase", automation.HandleRun(s.engine.BackfillInvoiceChase, s.opts.SchedulerTimeout, s.Logger))
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", rule.HandleListRules(s.store, s.Logger))
			r.Get("/{ruleId}", rule.HandleGetRule(s.store, s.Logger))
			r.Get("/{ruleId}/logs", rulelog.HandleGetRuleLogs(s.store, s.Logger))
			r.Get("/{ruleId}/executions", rule.HandleGetRuleExecutions(s.store, s.Logger))
		})
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.Logger.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
