package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/applounge/lounge/pkg/fused"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type categoriesQuery struct {
	Type string `validate:"omitempty,oneof=app apps application game games"`
}

type searchQuery struct {
	Query string `validate:"required,max=200"`
}

type BrowseRequest struct {
	ID        string `json:"id" validate:"required,max=200"`
	Title     string `json:"title"`
	BrowseURL string `json:"browse_url" validate:"omitempty,max=2048"`
	Source    string `json:"source" validate:"required"`
}

type sessionResponse struct {
	Session string `json:"session"`
	Result  any    `json:"result"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// statusCode maps a failed fetch to the HTTP status reported for it.
func statusCode(status fused.ResultStatus) int {
	switch {
	case status.IsOK():
		return http.StatusOK
	case errors.Is(status.Err, fused.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(status.Err, fused.ErrSourceDisabled), errors.Is(status.Err, fused.ErrSourceUnavailable):
		return http.StatusConflict
	case status.Kind == fused.ResultTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Aggregator.Home(r.Context(), nil))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	q := categoriesQuery{Type: r.URL.Query().Get("type")}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "type must be app or game")
		return
	}
	categoryType, _ := fused.ParseCategoryType(q.Type)
	writeJSON(w, http.StatusOK, s.Aggregator.Categories(r.Context(), categoryType))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := searchQuery{Query: r.URL.Query().Get("q")}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	search, result := s.Aggregator.Search(r.Context(), q.Query, nil)
	id := s.sessions.put(&session{search: search})
	writeJSON(w, http.StatusOK, sessionResponse{Session: id, Result: result})
}

func (s *Server) handleSearchMore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.get(id)
	if !ok || sess.search == nil {
		writeError(w, http.StatusNotFound, "unknown or expired search session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: id, Result: sess.search.LoadMore(r.Context())})
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	var req BrowseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	src, err := fused.ParseSource(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	browse, err := s.Aggregator.Browse(fused.Category{ID: req.ID, Title: req.Title, BrowseURL: req.BrowseURL, Source: src})
	if err != nil {
		writeError(w, statusCode(fused.Unknown(err)), err.Error())
		return
	}
	id := s.sessions.put(&session{browse: browse})
	writeJSON(w, http.StatusCreated, sessionResponse{Session: id, Result: browse.Current()})
}

func (s *Server) handleBrowseMore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.get(id)
	if !ok || sess.browse == nil {
		writeError(w, http.StatusNotFound, "unknown or expired browse session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: id, Result: sess.browse.LoadMore(r.Context())})
}

func (s *Server) handleAppDetails(w http.ResponseWriter, r *http.Request) {
	src, err := fused.ParseSource(chi.URLParam(r, "source"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	app, status := s.Aggregator.AppDetails(r.Context(), src, chi.URLParam(r, "id"))
	if !status.IsOK() {
		writeJSON(w, statusCode(status), map[string]any{"status": status})
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	changes, err := s.DB.ListRecentChanges(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
