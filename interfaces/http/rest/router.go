package rest

import (
	"encoding/json"
	"net/http"

	"trackd-backend/application/services"
	"trackd-backend/interfaces/http/rest/handlers"
	"trackd-backend/interfaces/http/rest/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	issues     *services.IssueService
	milestones *services.MilestoneService
	logger     *zap.Logger
	registry   *prometheus.Registry
	enableCORS bool
}

// NewRouter creates a new router instance. registry may be nil to disable the
// metrics endpoint.
func NewRouter(
	issues *services.IssueService,
	milestones *services.MilestoneService,
	logger *zap.Logger,
	registry *prometheus.Registry,
	enableCORS bool,
) *Router {
	return &Router{
		issues:     issues,
		milestones: milestones,
		logger:     logger,
		registry:   registry,
		enableCORS: enableCORS,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	if rt.registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/issues", func(r chi.Router) {
			issueHandler := handlers.NewIssueHandler(rt.issues, rt.logger)
			r.Post("/", issueHandler.CreateIssue)
			r.Get("/{issueID}", issueHandler.GetIssue)
			r.Delete("/{issueID}", issueHandler.DeleteIssue)
			r.Put("/{issueID}/title", issueHandler.Retitle)
			r.Put("/{issueID}/body", issueHandler.UpdateBody)
			r.Post("/{issueID}/close", issueHandler.CloseIssue)
			r.Post("/{issueID}/reopen", issueHandler.ReopenIssue)
			r.Post("/{issueID}/comments", issueHandler.AddComment)
			r.Put("/{issueID}/comments/{commentID}", issueHandler.EditComment)
			r.Delete("/{issueID}/comments/{commentID}", issueHandler.RemoveComment)
			r.Post("/{issueID}/labels", issueHandler.AttachLabel)
			r.Delete("/{issueID}/labels/{name}", issueHandler.DetachLabel)
			r.Put("/{issueID}/milestone", issueHandler.AssignMilestone)
			r.Delete("/{issueID}/milestone", issueHandler.ClearMilestone)
		})

		r.Route("/milestones", func(r chi.Router) {
			milestoneHandler := handlers.NewMilestoneHandler(rt.milestones, rt.logger)
			r.Post("/", milestoneHandler.CreateMilestone)
			r.Get("/{milestoneID}", milestoneHandler.GetMilestone)
			r.Delete("/{milestoneID}", milestoneHandler.DeleteMilestone)
			r.Put("/{milestoneID}/title", milestoneHandler.Retitle)
			r.Put("/{milestoneID}/due-date", milestoneHandler.SetDueDate)
			r.Post("/{milestoneID}/close", milestoneHandler.CloseMilestone)
			r.Post("/{milestoneID}/reopen", milestoneHandler.ReopenMilestone)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
