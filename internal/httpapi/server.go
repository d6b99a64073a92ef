// Package httpapi is the thin reference HTTP adapter over the query
// boundary (spec §6): get_entity, get_relationships, search_entities,
// lookup_by_identifier, shell_network_detect, alerts_list/acknowledge,
// resolution_queue/submit_decision, and accuracy_metrics. It is
// deliberately minimal — a demonstration of how an external caller
// would reach the core, not the hard part of the system.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fraudwatch/sovereign-core/pkg/groundtruth"
	"github.com/fraudwatch/sovereign-core/pkg/model"
	"github.com/fraudwatch/sovereign-core/pkg/patterns"
	"github.com/fraudwatch/sovereign-core/pkg/subgraph"
)

// EntityStore is the subset of *store.Store the entity-facing handlers
// depend on.
type EntityStore interface {
	GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error)
	ListMergedInto(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	CurrentFacts(ctx context.Context, subject uuid.UUID, predicate *model.Predicate) ([]model.Fact, error)
	SearchEntities(ctx context.Context, query string, entityType model.EntityType, limit, offset int) ([]model.Entity, error)
	LookupByIdentifier(ctx context.Context, idType model.IdentifierType, value string) (model.Entity, bool, error)
}

// AlertStore is the subset of *store.Store the alert handlers depend on.
type AlertStore interface {
	ListAlerts(ctx context.Context, ruleName string, acknowledged *bool, limit int) ([]model.Alert, error)
	AcknowledgeAlert(ctx context.Context, id uuid.UUID, by string) error
}

// ReviewStore is the subset of *store.Store the resolution-queue
// handlers depend on directly; verdict submission goes through
// pkg/review.Queue instead, since that is where the binding semantics
// live.
type ReviewStore interface {
	ListPendingReview(ctx context.Context, limit int) ([]model.ResolutionDecision, error)
	GetDecisionByMention(ctx context.Context, mentionID uuid.UUID) (model.ResolutionDecision, error)
}

// ReviewQueue is the subset of *review.Queue the verdict-submission
// handler depends on.
type ReviewQueue interface {
	SubmitMatch(ctx context.Context, decision model.ResolutionDecision, chosenEntity uuid.UUID, reviewer string) error
	SubmitReject(ctx context.Context, decision model.ResolutionDecision, reviewer string) (uuid.UUID, error)
}

// PatternEngine is the subset of *patterns.Engine the shell-network
// handler depends on.
type PatternEngine interface {
	ShellNetwork(ctx context.Context, params patterns.ShellNetworkParams) ([]patterns.ShellNetworkMatch, error)
}

// Server wires the query-boundary operations onto a chi router.
type Server struct {
	router chi.Router
	server *http.Server
	log    *zap.Logger
}

// Deps bundles everything a Server needs, kept as narrow interfaces so
// each handler group can be tested against a fake without constructing
// a full *store.Store.
type Deps struct {
	Entities    EntityStore
	Alerts      AlertStore
	Review      ReviewStore
	Queue       ReviewQueue
	Subgraph    subgraph.Store
	Patterns    PatternEngine
	GroundTruth *groundtruth.Evaluator
}

// NewServer builds the chi router bound to addr. It does not start
// listening until StartAsync is called.
func NewServer(addr string, deps Deps, log *zap.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions()))

	h := &handlers{deps: deps, log: log}

	r.Get("/health", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/entities/{id}", h.getEntity)
		r.Get("/entities/{id}/relationships", h.getRelationships)
		r.Get("/entities/search", h.searchEntities)
		r.Get("/identifiers/{type}/{value}", h.lookupByIdentifier)
		r.Post("/patterns/shell-network", h.shellNetworkDetect)
		r.Get("/alerts", h.listAlerts)
		r.Post("/alerts/{id}/acknowledge", h.acknowledgeAlert)
		r.Get("/review-queue", h.resolutionQueue)
		r.Post("/review-queue/decisions", h.submitDecision)
		r.Get("/accuracy", h.accuracyMetrics)
	})

	return &Server{
		router: r,
		server: &http.Server{Addr: addr, Handler: r},
		log:    log,
	}
}

func (s *Server) Router() http.Handler { return s.router }

// StartAsync begins serving in a background goroutine, mirroring
// pkg/metrics.Server's non-blocking startup.
func (s *Server) StartAsync() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts the server down, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type handlers struct {
	deps Deps
	log  *zap.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
