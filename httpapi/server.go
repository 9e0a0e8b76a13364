// Package httpapi exposes the crib over HTTP with JSON bodies. Handlers
// validate at the boundary (missing fields, non-positive quantities) and
// delegate everything else to the core, mapping its error taxonomy onto
// HTTP statuses and the service's user-visible messages.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"toolcrib"
)

type Server struct {
	crib   *toolcrib.Crib
	logger *slog.Logger
}

func New(crib *toolcrib.Crib, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{crib: crib, logger: logger}
}

// Handler returns the full HTTP handler: routes wrapped in request-ID,
// access-log, metrics and CORS middleware. Authentication is deliberately
// absent; an upstream gateway owns it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /get_hw_info", s.handleGetHWInfo)
	mux.HandleFunc("POST /check_out", s.handleCheckOut)
	mux.HandleFunc("POST /check_in", s.handleCheckIn)
	mux.HandleFunc("POST /create_hardware_set", s.handleCreateSet)
	mux.HandleFunc("GET /get_all_hw_names", s.handleGetAllNames)
	mux.HandleFunc("GET /get_project_checkouts", s.handleGetProjectCheckouts)
	mux.Handle("GET /metrics", promhttp.Handler())

	h := instrument(mux)
	h = s.accessLog(h)
	h = requestID(h)
	return cors.Default().Handler(h)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Hardware Service API",
		"version": toolcrib.Version,
	})
}

func (s *Server) handleGetHWInfo(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("hwSetName")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Missing 'hwSetName' in request")
		return
	}

	set, err := s.crib.Set(r.Context(), name)
	if err != nil {
		s.writeCribError(w, r, err, "Failed to query hardware set")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hardwareName": set.Name,
		"capacity":     set.Capacity,
		"availability": set.Availability,
	})
}

type checkoutRequest struct {
	ProjectID string `json:"projectId"`
	HWSetName string `json:"hwSetName"`
	Qty       int    `json:"qty"`
	UserID    string `json:"userId"`
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCheckoutBody(w, r)
	if !ok {
		return
	}

	err := s.crib.Checkout(r.Context(), req.ProjectID, req.HWSetName, req.Qty, req.UserID)
	observeOperation("check_out", err)
	if err != nil {
		s.writeCribError(w, r, err, "Failed to check out hardware")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Checked out successfully"})
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCheckoutBody(w, r)
	if !ok {
		return
	}

	err := s.crib.Checkin(r.Context(), req.ProjectID, req.HWSetName, req.Qty, req.UserID)
	observeOperation("check_in", err)
	if err != nil {
		s.writeCribError(w, r, err, "Failed to check in hardware")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Checked in successfully"})
}

func (s *Server) handleCreateSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HWSetName string `json:"hwSetName"`
		Capacity  int    `json:"capacity"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.HWSetName == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if req.Capacity <= 0 {
		writeError(w, http.StatusBadRequest, "'capacity' must be a positive integer")
		return
	}

	_, err := s.crib.CreateSet(r.Context(), req.HWSetName, req.Capacity)
	observeOperation("create_hardware_set", err)
	if err != nil {
		if errors.Is(err, toolcrib.ErrSetExists) {
			writeError(w, http.StatusConflict, fmt.Sprintf("%s set already exists", req.HWSetName))
			return
		}
		s.writeCribError(w, r, err, "Failed to create hardware set")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Hardware set created successfully!"})
}

func (s *Server) handleGetAllNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.crib.SetNames(r.Context())
	if err != nil {
		s.writeCribError(w, r, err, "Failed to list hardware sets")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hardwareNames": names})
}

func (s *Server) handleGetProjectCheckouts(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "Missing 'projectId' in request")
		return
	}

	holdings, err := s.crib.ProjectHoldings(r.Context(), projectID)
	if err != nil {
		s.writeCribError(w, r, err, "Failed to list project checkouts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projectId": projectID,
		"checkouts": holdings,
	})
}

// decodeCheckoutBody decodes and boundary-validates the shared check_out /
// check_in request body. qty must be strictly positive before reaching the
// core; userId is required present but not otherwise validated.
func (s *Server) decodeCheckoutBody(w http.ResponseWriter, r *http.Request) (checkoutRequest, bool) {
	var req checkoutRequest
	if !s.decodeBody(w, r, &req) {
		return req, false
	}
	if req.ProjectID == "" || req.HWSetName == "" || req.UserID == "" || req.Qty == 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return req, false
	}
	if req.Qty < 0 {
		writeError(w, http.StatusBadRequest, "'qty' must be a positive integer")
		return req, false
	}
	return req, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return false
	}
	return true
}

// writeCribError maps the core error taxonomy onto HTTP statuses.
// internalMsg is the user-visible message for store failures; the underlying
// error detail goes to the log, not the response.
func (s *Server) writeCribError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, toolcrib.ErrSetNotFound):
		writeError(w, http.StatusNotFound, "Hardware set does not exist")
	case errors.Is(err, toolcrib.ErrInsufficientAvailability):
		writeError(w, http.StatusBadRequest, "Not enough units available to check out")
	case errors.Is(err, toolcrib.ErrHoldingRange):
		writeError(w, http.StatusBadRequest, "Cannot check in more than currently checked out")
	case errors.Is(err, toolcrib.ErrCapacityExceeded):
		writeError(w, http.StatusBadRequest, "Too big to check in")
	case errors.Is(err, toolcrib.ErrAvailabilityRange):
		writeError(w, http.StatusBadRequest, "Availability out of range")
	case errors.Is(err, toolcrib.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Missing required fields")
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, internalMsg)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}
