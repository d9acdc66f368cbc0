package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router stdlib http.ServeMux with explicit method checks in the handlers.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler (promhttp and the like).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuditAnalysisRoutes heat map, detail, AI analysis and findings.
func (r *Router) RegisterAuditAnalysisRoutes(h *AuditAnalysisHandler) {
	r.HandleHandler(auditAnalysisPrefix, h)
}

// RegisterAgentRoutes agent ingestion.
func (r *Router) RegisterAgentRoutes(h *AgentSyncHandler) {
	r.Handle("/api/v1/agent/sync", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Sync(w, req)
	})
}

// RegisterOpsRoutes liveness and, when metrics is not nil, the Prometheus scrape endpoint.
func (r *Router) RegisterOpsRoutes(metrics http.Handler) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
	if metrics != nil {
		r.HandleHandler("/metrics", metrics)
	}
}
