package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/prodsheet/internal/model"
	"github.com/sells-group/prodsheet/internal/store"
)

// maxPageSize caps the limit query parameter.
const maxPageSize = 1000

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	skip := parseIntParam(q.Get("skip"), 0)
	if skip < 0 {
		skip = 0
	}
	limit := parseIntParam(q.Get("limit"), 100)
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	status := model.Status(q.Get("status"))
	if status != "" && !model.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "unknown status %q", status)
		return
	}

	f := store.Filter{
		Style:       q.Get("style"),
		Status:      status,
		OrderNumber: q.Get("order_number"),
		Skip:        skip,
		Limit:       limit,
	}

	items, err := s.store.Query(r.Context(), f)
	if err != nil {
		zap.L().Error("server: list items", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	total, err := s.store.Count(r.Context(), f)
	if err != nil {
		zap.L().Error("server: count items", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if items == nil {
		items = []model.ProductionItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
		"skip":  skip,
		"limit": limit,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.StatusCounts(r.Context())
	if err != nil {
		zap.L().Error("server: status counts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status_counts": counts})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		zap.L().Error("server: get item", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item %s not found", id)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := s.store.DeleteByID(r.Context(), id)
	if err != nil {
		zap.L().Error("server: delete item", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "item %s not found", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "message": "deleted"})
}

func parseIntParam(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
