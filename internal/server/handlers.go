package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/matcher"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/store"
)

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var query models.MatchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.match(w, r, &query)
}

// handleMatchGet serves GET /api/v1/match?q=...&k=...&store=true&filter=...
func (s *Server) handleMatchGet(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	query := models.MatchQuery{Query: v.Get("q"), Filter: v.Get("filter")}
	if k := v.Get("k"); k != "" {
		n, err := strconv.Atoi(k)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "k must be an integer")
			return
		}
		query.TopK = n
	}
	if st := v.Get("store"); st != "" {
		b, err := strconv.ParseBool(st)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "store must be a boolean")
			return
		}
		query.UseStore = b
	}
	s.match(w, r, &query)
}

func (s *Server) match(w http.ResponseWriter, r *http.Request, query *models.MatchQuery) {
	s.logger.Debug("match request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	response, err := s.engine.Match(r.Context(), query)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("match failed", zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

// statusFor maps matching errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, matcher.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, matcher.ErrNoSession), errors.Is(err, embedding.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	sess := s.engine.Session()
	if sess == nil {
		s.respondError(w, http.StatusServiceUnavailable, matcher.ErrNoSession.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": sess.Products(),
		"total":    sess.Len(),
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "product id must be an integer")
		return
	}
	sess := s.engine.Session()
	if sess == nil {
		s.respondError(w, http.StatusServiceUnavailable, matcher.ErrNoSession.Error())
		return
	}
	p, ok := sess.Product(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "product not found")
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	n, err := s.engine.Publish(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, matcher.ErrNoStore):
			status = http.StatusNotImplemented
		case errors.Is(err, matcher.ErrNoSession):
			status = http.StatusServiceUnavailable
		}
		s.logger.Warn("publish failed", zap.Error(err))
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"published": n, "status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"good_threshold": s.engine.Threshold(),
	}
	if sess := s.engine.Session(); sess != nil {
		resp["products"] = sess.Len()
		resp["dimensions"] = sess.Dims()
		resp["loaded_at"] = sess.LoadedAt()
	} else {
		resp["products"] = 0
	}

	if st := s.engine.Store(); st != nil {
		storeInfo := map[string]interface{}{"type": st.Type()}
		if n, err := st.Size(r.Context()); err != nil {
			s.logger.Warn("status: store size failed", zap.Error(err))
			storeInfo["error"] = err.Error()
		} else {
			storeInfo["size"] = n
		}
		resp["store"] = storeInfo
	}

	if s.config != nil {
		configInfo := map[string]interface{}{
			"catalog_path":       s.config.Catalog.Path,
			"catalog_filter":     s.config.Catalog.Filter,
			"embedding_strategy": s.config.Embedding.Strategy,
			"embedding_fallback": s.config.Embedding.Fallback,
			"store_type":         s.config.Store.Type,
			"default_top_k":      s.config.Match.DefaultTopK,
		}
		if s.config.Store.Path != "" {
			configInfo["store_path"] = s.config.Store.Path
			diskBytes, err := store.DiskUsageBytes(store.Footprint(store.Options{
				Type: s.config.Store.Type,
				Path: s.config.Store.Path,
			})...)
			if err == nil {
				resp["disk_usage_bytes"] = diskBytes
			}
		}
		resp["config"] = configInfo
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
