package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/spec"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// handleIngest ingests the manifest document in the request body.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	res, err := s.ingestor.Run(r.Context(), r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// handleSpecByHash returns the spec with the given content hash.
func (s *Server) handleSpecByHash(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	sp, err := s.store.QueryByHash(r.Context(), hash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sp.Record())
}

// handleSpecsByName returns all specs carrying the queried package name.
func (s *Server) handleSpecsByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing name query parameter"))
		return
	}
	specs, err := s.store.QueryByName(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	records := make([]spec.Record, 0, len(specs))
	for _, sp := range specs {
		records = append(records, sp.Record())
	}
	s.writeJSON(w, http.StatusOK, records)
}

// handleCompilers lists all merged compiler specs.
func (s *Server) handleCompilers(w http.ResponseWriter, r *http.Request) {
	compilers, err := s.store.Compilers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if compilers == nil {
		compilers = []spec.Compiler{}
	}
	s.writeJSON(w, http.StatusOK, compilers)
}

// handleHealth is a liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v as a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

// writeError maps structured error codes to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidManifest, errors.ErrCodeInvalidSchema,
		errors.ErrCodeInvalidCompiler, errors.ErrCodeInvalidInput,
		errors.ErrCodeDuplicateHash, errors.ErrCodeUnresolvedDependency:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, errorResponse{
		Code:    errors.GetCode(err),
		Message: errors.UserMessage(err),
	})
}
