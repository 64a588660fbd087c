package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/vulnradar/vulnradar/internal/config"
	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/feed"
	"github.com/vulnradar/vulnradar/internal/identity"
	"github.com/vulnradar/vulnradar/internal/observability"
	"github.com/vulnradar/vulnradar/internal/rating"
	"github.com/vulnradar/vulnradar/internal/store"
	"github.com/vulnradar/vulnradar/internal/types"

	_ "github.com/vulnradar/vulnradar/build/swagger" // Import generated docs
)

// @title vulnradar API
// @version 1.0
// @description REST API for tracking CVE records, matching them to company vendor selections, and routing them through a TLP-gated task workflow.
// @description
// @description ## Features
// @description - Ingest CVE records from the NVD feed with deduplication and TLP classification
// @description - Company vendor selections with full-replace semantics
// @description - Role-gated vulnerability visibility (employee/manager/admin)
// @description - Task assignment and self-claim with clearance checks
// @description - Relevance rating of vulnerabilities per company

// @contact.name vulnradar
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter your identity token (with or without "Bearer " prefix)

// APIServer provides the HTTP JSON API for vulnerabilities, tasks and
// vendor selections.
type APIServer struct {
	config     *config.Config
	store      *store.Store
	verifier   identity.Verifier
	downloader *feed.Downloader
	rater      *rating.Engine
	router     *http.ServeMux
	server     *http.Server
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cfg *config.Config, st *store.Store, verifier identity.Verifier, downloader *feed.Downloader, rater *rating.Engine, logger *slog.Logger) *APIServer {
	api := &APIServer{
		config:     cfg,
		store:      st,
		verifier:   verifier,
		downloader: downloader,
		rater:      rater,
		router:     http.NewServeMux(),
		logger:     logger,
		metrics:    observability.GetMetrics(),
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      api.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return api
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes() {
	// Auth
	s.handle("/api/auth/verify-token", s.handleVerifyToken)
	s.handle("/api/auth/me", s.authMiddleware(s.handleMe, false))

	// Directory endpoints; companies and vendors are public reads
	s.handle("/api/companies", s.handleCompanies)
	s.handle("/api/companies/", s.authMiddleware(s.handleCompanyUsers, true))
	s.handle("/api/vendors", s.handleVendors)

	// Caller-scoped endpoints
	s.handle("/api/user/company", s.authMiddleware(s.handleUserCompany, false))
	s.handle("/api/user/vendors", s.authMiddleware(s.handleUserVendors, false))
	s.handle("/api/user/update", s.authMiddleware(s.handleUserUpdate, false))

	// Vulnerabilities
	s.handle("/api/vulnerabilities", s.authMiddleware(s.handleListVulnerabilities, false))
	s.handle("/api/vulnerabilities/company", s.authMiddleware(s.handleCompanyVulnerabilities, false))
	s.handle("/api/vulnerabilities/completed", s.authMiddleware(s.handleCompletedVulnerabilities, true))
	s.handle("/api/vulnerabilities/ingest", s.authMiddleware(s.handleIngest, false))
	s.handle("/api/vulnerabilities/rate", s.authMiddleware(s.handleRate, false))
	s.handle("/api/vulnerabilities/download-all", s.authMiddleware(s.handleDownloadAll, true))
	s.handle("/api/vulnerabilities/", s.authMiddleware(s.handleGetVulnerability, false))

	// Tasks
	s.handle("/api/tasks", s.authMiddleware(s.handleTasks, false))
	s.handle("/api/tasks/claim", s.authMiddleware(s.handleClaimTask, false))
	s.handle("/api/tasks/", s.authMiddleware(s.handleUpdateTask, false))

	// Read-only listings
	s.handle("/api/vulnerability-ratings", s.authMiddleware(s.handleListRatings, false))
	s.handle("/api/company-vendors", s.authMiddleware(s.handleListCompanyVendors, false))
	s.handle("/api/user-companies", s.authMiddleware(s.handleListUserCompanies, false))
	s.handle("/api/audit-logs", s.authMiddleware(s.handleListAuditLogs, true))

	// Swagger documentation
	s.router.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Redirect root to swagger
	s.router.HandleFunc("/", s.handleRootRedirect)
}

// handle registers a route wrapped with CORS handling and request metrics.
func (s *APIServer) handle(pattern string, h http.HandlerFunc) {
	s.router.HandleFunc(pattern, s.corsMiddleware(s.metricsMiddleware(pattern, h)))
}

// corsMiddleware adds CORS headers to allow cross-origin requests
func (s *APIServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowOrigin(r))
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// allowOrigin echoes the request origin when it is on the configured list.
func (s *APIServer) allowOrigin(r *http.Request) string {
	origin := r.Header.Get("Origin")
	for _, allowed := range s.config.API.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if allowed == origin {
			return origin
		}
	}
	if len(s.config.API.AllowedOrigins) > 0 {
		return s.config.API.AllowedOrigins[0]
	}
	return "*"
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records request counts and latency per route pattern.
func (s *APIServer) metricsMiddleware(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	}
}

type contextKey string

const userContextKey contextKey = "user"

// userFrom returns the authenticated user injected by authMiddleware.
func userFrom(r *http.Request) *types.User {
	user, _ := r.Context().Value(userContextKey).(*types.User)
	return user
}

// bearerToken extracts the credential from the Authorization header,
// accepting both "Bearer <token>" and just "<token>".
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

// authMiddleware verifies the bearer credential and resolves the caller to
// a stored user. adminOnly additionally requires the admin role.
func (s *APIServer) authMiddleware(next http.HandlerFunc, adminOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.respondError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		ident, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.metrics.TokenVerifications.WithLabelValues("rejected").Inc()
			s.respondMappedError(w, err, "credential verification failed")
			return
		}
		if !ident.EmailVerified {
			s.metrics.TokenVerifications.WithLabelValues("rejected").Inc()
			s.respondError(w, http.StatusUnauthorized, "email address not verified")
			return
		}

		user, err := s.store.GetUserBySubject(r.Context(), ident.SubjectID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				s.respondError(w, http.StatusUnauthorized, "unknown user, verify the token first")
				return
			}
			s.respondMappedError(w, err, "failed to resolve user")
			return
		}
		s.metrics.TokenVerifications.WithLabelValues("ok").Inc()

		if adminOnly && user.Role != types.RoleAdmin {
			s.respondError(w, http.StatusForbidden, "admin role required")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// Start starts the API server
func (s *APIServer) Start(ctx context.Context) error {
	s.logger.Info("starting API server",
		"port", s.config.API.Port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error",
				"error", err.Error())
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down API server")
	return s.server.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the API server
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed handler, used by tests.
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// respondJSON sends a JSON response
func (s *APIServer) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("error encoding JSON response",
			"error", err.Error())
	}
}

// respondError sends an error response
func (s *APIServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondMappedError translates sentinel and transient errors to HTTP
// status codes.
func (s *APIServer) respondMappedError(w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, errors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, errors.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrRateLimit):
		status = http.StatusTooManyRequests
	case errors.IsTransient(err):
		status = http.StatusServiceUnavailable
	}
	s.respondError(w, status, fmt.Sprintf("%s: %v", message, err))
}

// parseQueryParam extracts a query parameter from the request
func parseQueryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// parseQueryParamInt extracts an integer query parameter
func parseQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

// pathID parses the trailing numeric id of a path like /api/tasks/{id}.
func pathID(r *http.Request, prefix string) (int64, error) {
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, fmt.Errorf("missing id in path: %w", errors.ErrInvalidInput)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", raw, errors.ErrInvalidInput)
	}
	return id, nil
}

// audit records a state-changing action. Failures are logged, never fatal.
func (s *APIServer) audit(r *http.Request, user *types.User, actionType, entityType string, entityID *int64, details string) {
	entry := &types.AuditLog{
		ActionType: actionType,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		IPAddress:  r.RemoteAddr,
	}
	if user != nil {
		entry.UserID = &user.ID
	}
	if err := s.store.AppendAudit(r.Context(), entry); err != nil {
		s.logger.Error("failed to write audit entry",
			"action", actionType,
			"error", err.Error())
	}
}

// handleRootRedirect redirects / to /swagger/
func (s *APIServer) handleRootRedirect(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
}
