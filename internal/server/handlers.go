package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/rag"
	"github.com/hyperjump/tansaku/internal/storage"
)

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"topK,omitempty"`
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req rag.ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("context request", zap.Any("profile", req.Profile), zap.String("topic", req.Topic))
	result, err := s.engine.DemographicContext(r.Context(), req)
	if err != nil {
		s.respondEngineError(w, "context", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question))
	answer, err := s.engine.Ask(r.Context(), req.Question, req.TopK)
	if err != nil {
		s.respondEngineError(w, "ask", err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleIndexSource(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		s.respondError(w, http.StatusNotImplemented, "indexing not enabled")
		return
	}
	var input models.SourceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(input.Content) == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	s.logger.Debug("index source request", zap.String("id", input.ID), zap.String("title", input.Title))
	src, n, err := s.indexer.IndexSource(r.Context(), &input)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"id": src.ID, "passages": n, "status": "indexed"})
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	src, err := s.storage.GetSource(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "source not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, src)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		s.respondError(w, http.StatusNotImplemented, "indexing not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete source request", zap.String("id", id))
	if err := s.indexer.DeleteSource(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "source not found")
			return
		}
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sources, err := s.storage.CountSources(ctx)
	if err != nil {
		s.logger.Error("status: count sources failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	passages, err := s.storage.CountPassages(ctx)
	if err != nil {
		s.logger.Error("status: count passages failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sources":  sources,
		"passages": passages,
		"config":   s.status,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"rerank_enabled":  s.status.RerankEnabled,
		"keyword_enabled": s.status.KeywordEnabled,
		"cache_backend":   s.status.CacheBackend,
	})
}

// respondEngineError maps orchestrator errors to status codes.
func (s *Server) respondEngineError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrEmptyQuery):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrGraphUnavailable), errors.Is(err, models.ErrVectorUnavailable):
		s.logger.Warn(op+" unavailable", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error(op+" failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
