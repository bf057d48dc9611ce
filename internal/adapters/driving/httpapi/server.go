// Package httpapi serves run history and on-demand report runs over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driving"
	"github.com/custodia-labs/adreports/internal/logger"
)

// defaultRunLimit applies when /runs has no limit parameter.
const defaultRunLimit = 20

// Server routes the status API.
type Server struct {
	reports driving.ReportRunner
	history driving.RunHistory
	router  chi.Router
}

// NewServer creates the API. Either port may be nil; its routes then answer 503.
func NewServer(reports driving.ReportRunner, history driving.RunHistory) *Server {
	s := &Server{reports: reports, history: history}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
	})
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", s.handleListReports)
		r.Post("/{name}/run", s.handleRunReport)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s %d", r.Method, r.URL.Path, ww.Status())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("run history not configured"))
		return
	}

	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if runs == nil {
		runs = []domain.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("run history not configured"))
		return
	}

	run, err := s.history.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListReports(w http.ResponseWriter, _ *http.Request) {
	if s.reports == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("reports not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"reports": s.reports.Reports()})
}

// RunRequest is the body of POST /reports/{name}/run.
type RunRequest struct {
	// Customers are "id" or "id:name".
	Customers      []string          `json:"customers"`
	SpreadsheetURL string            `json:"spreadsheet_url,omitempty"`
	WarehouseTable string            `json:"warehouse_table,omitempty"`
	DriveFolderID  string            `json:"drive_folder_id,omitempty"`
	ShareWith      []string          `json:"share_with,omitempty"`
	Options        map[string]string `json:"options,omitempty"`
}

// handleRunReport runs synchronously and answers with the run summary.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("reports not configured"))
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	customers := make([]domain.Customer, 0, len(req.Customers))
	for _, c := range req.Customers {
		if customer := domain.ParseCustomer(c); customer.ID != "" {
			customers = append(customers, customer)
		}
	}

	def := domain.ReportDefinition{
		Name:           chi.URLParam(r, "name"),
		SpreadsheetURL: req.SpreadsheetURL,
		WarehouseTable: req.WarehouseTable,
		DriveFolderID:  req.DriveFolderID,
		ShareWith:      req.ShareWith,
		Options:        req.Options,
	}
	summary, err := s.reports.Run(r.Context(), def, customers)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
