package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gartstein/hrmigrate/internal/migration/auth"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server wires the REST router, middleware stack and HTTP listener.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	logger     *zap.Logger
	endpoint   string
}

// NewServer constructs a Server listening on the given port.
func NewServer(port int, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{},
		router:     mux.NewRouter(),
		logger:     logger,
		endpoint:   fmt.Sprintf(":%d", port),
	}
}

// RegisterRoutes mounts the entity handlers under /api/v1 and wraps the
// router with logging, CORS and JWT auth middleware.
func (s *Server) RegisterRoutes(
	departments *DepartmentHandler,
	jobs *JobHandler,
	employees *EmployeeHandler,
	jwtSecret string,
) {
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	registerEntity(api, "departments", entityRoutes{
		list:   departments.List,
		get:    departments.Get,
		create: departments.Create,
		update: departments.Update,
		delete: departments.Delete,
		upload: departments.Upload,
		batch:  departments.BatchInsert,
	})
	registerEntity(api, "jobs", entityRoutes{
		list:   jobs.List,
		get:    jobs.Get,
		create: jobs.Create,
		update: jobs.Update,
		delete: jobs.Delete,
		upload: jobs.Upload,
		batch:  jobs.BatchInsert,
	})
	registerEntity(api, "employees", entityRoutes{
		list:   employees.List,
		get:    employees.Get,
		create: employees.Create,
		update: employees.Update,
		delete: employees.Delete,
		upload: employees.Upload,
		batch:  employees.BatchInsert,
	})

	handler := s.loggingMiddleware(s.router)
	handler = cors.AllowAll().Handler(handler)
	handler = auth.HTTPMiddleware(handler, jwtSecret)

	s.httpServer.Handler = handler
	s.httpServer.Addr = s.endpoint
}

type entityRoutes struct {
	list   http.HandlerFunc
	get    http.HandlerFunc
	create http.HandlerFunc
	update http.HandlerFunc
	delete http.HandlerFunc
	upload http.HandlerFunc
	batch  http.HandlerFunc
}

// registerEntity mounts the uniform route shape shared by all three
// entities. The id pattern is numeric so the upload routes do not collide.
func registerEntity(api *mux.Router, name string, routes entityRoutes) {
	api.HandleFunc("/"+name, routes.list).Methods(http.MethodGet)
	api.HandleFunc("/"+name, routes.create).Methods(http.MethodPost)
	api.HandleFunc("/"+name+"/upload", routes.upload).Methods(http.MethodPost)
	api.HandleFunc("/"+name+"/upload/batch", routes.batch).Methods(http.MethodPost)
	api.HandleFunc("/"+name+"/{id:[0-9]+}", routes.get).Methods(http.MethodGet)
	api.HandleFunc("/"+name+"/{id:[0-9]+}", routes.update).Methods(http.MethodPut)
	api.HandleFunc("/"+name+"/{id:[0-9]+}", routes.delete).Methods(http.MethodDelete)
}

// loggingMiddleware tags each request with a correlation id and logs its
// outcome timing.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		correlationID := r.Header.Get("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		w.Header().Set("X-Correlation-Id", correlationID)
		next.ServeHTTP(w, r)
		s.logger.Info("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("correlation_id", correlationID),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Start runs the HTTP server, blocking until it stops.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("endpoint", s.endpoint))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP serve error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Server stopped")
}
