// =============================================================================
// Report Consolidator - HTTP API
// =============================================================================
//
// JSON API used by the web front end. It exposes the auto-mapper, the
// consolidated report store and the exports over HTTP.
//
// ROUTES:
//   GET    /api/health
//   GET    /api/forms                 list alias tables
//   GET    /api/forms/{form}          one alias table
//   POST   /api/columns               extract headers from an upload
//   POST   /api/automap               map columns onto a form
//   GET    /api/reports               full store
//   DELETE /api/reports               clear the store
//   GET    /api/reports/summary       counts, buckets, slide estimate
//   GET    /api/reports/flat          flattened export payload
//   GET    /api/reports/events        store change stream (SSE)
//   POST   /api/reports/{category}    replace a category
//   DELETE /api/reports/{category}    clear a category
//   GET    /api/export/xlsx           consolidated workbook
//   POST   /api/export/ppt            consolidated deck via the backend
//
// =============================================================================

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ginjaninja78/report-consolidator/internal/automap"
	"github.com/ginjaninja78/report-consolidator/internal/export"
	"github.com/ginjaninja78/report-consolidator/internal/logging"
	"github.com/ginjaninja78/report-consolidator/internal/reportstore"
)

// DefaultMaxUploadBytes bounds spreadsheet uploads.
const DefaultMaxUploadBytes = 32 << 20

// Deps are the components the API serves.
type Deps struct {
	Store    *reportstore.Store
	Registry *automap.Registry

	// PPT renders decks. Nil disables /api/export/ppt.
	PPT *export.Client

	Logger         logging.Logger
	MaxUploadBytes int64
	Version        string
}

// Server is the HTTP API.
type Server struct {
	store    *reportstore.Store
	registry *automap.Registry
	ppt      *export.Client
	logger   logging.Logger

	maxUpload int64
	version   string

	router      *mux.Router
	events      *Broadcaster
	unsubscribe func()
}

// New wires the routes and subscribes to store events. Call Close when done.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Registry == nil {
		deps.Registry = automap.DefaultRegistry()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}

	s := &Server{
		store:     deps.Store,
		registry:  deps.Registry,
		ppt:       deps.PPT,
		logger:    deps.Logger,
		maxUpload: deps.MaxUploadBytes,
		version:   deps.Version,
		events:    NewBroadcaster(deps.Logger),
	}
	s.unsubscribe = s.store.Subscribe(s.events.Publish)
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/forms", s.handleListForms).Methods(http.MethodGet)
	api.HandleFunc("/forms/{form}", s.handleGetForm).Methods(http.MethodGet)
	api.HandleFunc("/columns", s.handleColumns).Methods(http.MethodPost)
	api.HandleFunc("/automap", s.handleAutoMap).Methods(http.MethodPost)

	api.HandleFunc("/reports", s.handleGetReports).Methods(http.MethodGet)
	api.HandleFunc("/reports", s.handleClearReports).Methods(http.MethodDelete)
	api.HandleFunc("/reports/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/reports/flat", s.handleFlat).Methods(http.MethodGet)
	api.HandleFunc("/reports/events", s.events.ServeHTTP).Methods(http.MethodGet)
	api.HandleFunc("/reports/{category}", s.handleAddReports).Methods(http.MethodPost)
	api.HandleFunc("/reports/{category}", s.handleClearCategory).Methods(http.MethodDelete)

	api.HandleFunc("/export/xlsx", s.handleExportXLSX).Methods(http.MethodGet)
	api.HandleFunc("/export/ppt", s.handleExportPPT).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Use(s.logRequests)
	return r
}

// Handler returns the API handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops event delivery.
func (s *Server) Close() {
	s.unsubscribe()
	s.events.Close()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// Event streams only end when their clients go away.
	s.events.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("%s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}
